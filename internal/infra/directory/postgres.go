// Package directory adapts the voucher catalog and provider registry.
package directory

import (
	"context"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/infra/db"
	"redemption-guard/internal/pkg/geo"
	"redemption-guard/internal/pkg/pgconv"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	getVoucherLimitsSQL = `SELECT max_redemptions, max_redemptions_per_user, valid_from, valid_to
		FROM vouchers WHERE id = $1`

	getProviderSQL = `SELECT id, name, lat, lng FROM providers WHERE id = $1`
)

type VoucherCatalog struct {
	db db.DBTX
}

func NewVoucherCatalog(dbtx db.DBTX) *VoucherCatalog {
	return &VoucherCatalog{db: dbtx}
}

func (c *VoucherCatalog) GetLimits(ctx context.Context, voucherID uuid.UUID) (redemption.Limits, error) {
	var (
		l                  redemption.Limits
		validFrom, validTo pgtype.Timestamptz
	)
	err := c.db.QueryRow(ctx, getVoucherLimitsSQL, voucherID).
		Scan(&l.MaxRedemptions, &l.MaxRedemptionsPerUser, &validFrom, &validTo)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return redemption.Limits{}, infra.WrapRepoErr("voucher not found", err, infra.KindNotFound)
		}
		return redemption.Limits{}, infra.WrapRepoErr("failed to get voucher limits", err)
	}
	l.ValidFrom = pgconv.TimePtrFromPgtype(validFrom)
	l.ValidTo = pgconv.TimePtrFromPgtype(validTo)
	return l, nil
}

type ProviderRegistry struct {
	db db.DBTX
}

func NewProviderRegistry(dbtx db.DBTX) *ProviderRegistry {
	return &ProviderRegistry{db: dbtx}
}

func (r *ProviderRegistry) GetProvider(ctx context.Context, providerID uuid.UUID) (*shared.ProviderProfile, error) {
	var (
		p        shared.ProviderProfile
		lat, lng pgtype.Float8
	)
	err := r.db.QueryRow(ctx, getProviderSQL, providerID).Scan(&p.ID, &p.Name, &lat, &lng)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("provider not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get provider", err)
	}
	if lat.Valid && lng.Valid {
		pt, err := geo.NewPoint(lat.Float64, lng.Float64)
		if err != nil {
			return nil, infra.WrapRepoErr("provider has invalid coordinates", err)
		}
		p.Location = &pt
	}
	return &p, nil
}
