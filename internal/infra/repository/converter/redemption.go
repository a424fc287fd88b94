package converter

import (
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// RedemptionColumns matches the scan order of ScanRedemption.
const RedemptionColumns = `id, voucher_id, customer_id, provider_id, code, redeemed_at, recorded_at, lat, lng, is_offline, synced_at`

type RedemptionRow struct {
	ID         uuid.UUID
	VoucherID  uuid.UUID
	CustomerID uuid.UUID
	ProviderID uuid.UUID
	Code       string
	RedeemedAt pgtype.Timestamptz
	RecordedAt pgtype.Timestamptz
	Lat        pgtype.Float8
	Lng        pgtype.Float8
	IsOffline  bool
	SyncedAt   pgtype.Timestamptz
}

func ScanRedemption(row pgx.Row) (*redemption.Redemption, error) {
	var r RedemptionRow
	if err := row.Scan(
		&r.ID, &r.VoucherID, &r.CustomerID, &r.ProviderID, &r.Code,
		&r.RedeemedAt, &r.RecordedAt, &r.Lat, &r.Lng, &r.IsOffline, &r.SyncedAt,
	); err != nil {
		return nil, err
	}
	return RowToRedemption(r)
}

func RowToRedemption(r RedemptionRow) (*redemption.Redemption, error) {
	code, err := redemption.NewCode(r.Code)
	if err != nil {
		return nil, errs.Wrapf(err, "stored redemption %s has an invalid code", r.ID)
	}

	loc := redemption.NoLocation()
	if r.Lat.Valid && r.Lng.Valid {
		loc, err = redemption.NewLocation(r.Lat.Float64, r.Lng.Float64)
		if err != nil {
			return nil, errs.Wrapf(err, "stored redemption %s has an invalid location", r.ID)
		}
	}

	return redemption.ReconstructRedemption(
		r.ID, r.VoucherID, r.CustomerID, r.ProviderID,
		code,
		pgconv.TimeFromPgtype(r.RedeemedAt),
		pgconv.TimeFromPgtype(r.RecordedAt),
		loc,
		r.IsOffline,
		pgconv.TimePtrFromPgtype(r.SyncedAt),
	), nil
}

// RedemptionToArgs returns insert arguments in RedemptionColumns order.
func RedemptionToArgs(r *redemption.Redemption) []any {
	lat, lng := pgtype.Float8{}, pgtype.Float8{}
	if p, ok := r.Location().Point(); ok {
		lat = pgtype.Float8{Float64: p.Lat, Valid: true}
		lng = pgtype.Float8{Float64: p.Lng, Valid: true}
	}
	return []any{
		r.ID(), r.VoucherID(), r.CustomerID(), r.ProviderID(), r.Code().String(),
		pgconv.TimeToPgtype(r.RedeemedAt()), pgconv.TimeToPgtype(r.RecordedAt()),
		lat, lng, r.IsOffline(), pgconv.TimePtrToPgtype(r.SyncedAt()),
	}
}
