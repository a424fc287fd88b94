package repository

import (
	"context"
	"time"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/infra/db"
	"redemption-guard/internal/infra/repository/converter"
	"redemption-guard/internal/pkg/pgconv"

	"github.com/google/uuid"
)

const (
	findRedemptionByCodeSQL = `SELECT ` + converter.RedemptionColumns + ` FROM redemptions WHERE code = $1`

	insertRedemptionSQL = `INSERT INTO redemptions (` + converter.RedemptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code) DO NOTHING
		RETURNING id`

	// Conditional upserts: no row comes back once the cap is reached, and a
	// zero cap never inserts the first row.
	incrementVoucherCounterSQL = `INSERT INTO voucher_redemption_counters AS c (voucher_id, count)
		SELECT $1::uuid, 1 WHERE $2::int > 0
		ON CONFLICT (voucher_id) DO UPDATE SET count = c.count + 1
		WHERE c.count < $2::int
		RETURNING c.count`

	incrementCustomerCounterSQL = `INSERT INTO customer_redemption_counters AS c (voucher_id, customer_id, count)
		SELECT $1::uuid, $2::uuid, 1 WHERE $3::int > 0
		ON CONFLICT (voucher_id, customer_id) DO UPDATE SET count = c.count + 1
		WHERE c.count < $3::int
		RETURNING c.count`

	customerHistorySQL = `SELECT ` + converter.RedemptionColumns + ` FROM redemptions
		WHERE customer_id = $1 AND redeemed_at >= $2
		ORDER BY redeemed_at, id`

	markSyncedSQL = `UPDATE redemptions SET synced_at = $2 WHERE id = ANY($1) AND synced_at IS NULL`
)

type RedemptionRepository struct {
	db db.DBTX
}

func NewRedemptionRepository(dbtx db.DBTX) *RedemptionRepository {
	return &RedemptionRepository{db: dbtx}
}

func (r *RedemptionRepository) FindByCode(ctx context.Context, code string) (*redemption.Redemption, error) {
	red, err := converter.ScanRedemption(r.db.QueryRow(ctx, findRedemptionByCodeSQL, code))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to find redemption by code", err)
	}
	return red, nil
}

func (r *RedemptionRepository) InsertIfAbsent(ctx context.Context, red *redemption.Redemption) (*redemption.Redemption, bool, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, insertRedemptionSQL, converter.RedemptionToArgs(red)...).Scan(&id)
	if err == nil {
		return red, true, nil
	}
	if !pgconv.IsNoRows(err) {
		return nil, false, infra.WrapRepoErr("failed to insert redemption", err)
	}

	existing, err := r.FindByCode(ctx, red.Code().String())
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, infra.NewRepoErr(infra.KindRetryable, "conflicting redemption vanished before read")
	}
	return existing, false, nil
}

func (r *RedemptionRepository) IncrementAndCheck(ctx context.Context, voucherID, customerID uuid.UUID, limits redemption.Limits) error {
	var count int
	err := r.db.QueryRow(ctx, incrementVoucherCounterSQL, voucherID, limits.MaxRedemptions).Scan(&count)
	if pgconv.IsNoRows(err) {
		return &redemption.LimitExceededError{
			Scope: redemption.ScopeVoucher, VoucherID: voucherID, CustomerID: customerID, Limit: limits.MaxRedemptions,
		}
	}
	if err != nil {
		return infra.WrapRepoErr("failed to increment voucher counter", err)
	}

	err = r.db.QueryRow(ctx, incrementCustomerCounterSQL, voucherID, customerID, limits.MaxRedemptionsPerUser).Scan(&count)
	if pgconv.IsNoRows(err) {
		return &redemption.LimitExceededError{
			Scope: redemption.ScopePerUser, VoucherID: voucherID, CustomerID: customerID, Limit: limits.MaxRedemptionsPerUser,
		}
	}
	if err != nil {
		return infra.WrapRepoErr("failed to increment customer counter", err)
	}
	return nil
}

func (r *RedemptionRepository) HistoryForCustomer(ctx context.Context, customerID uuid.UUID, since time.Time) ([]*redemption.Redemption, error) {
	rows, err := r.db.Query(ctx, customerHistorySQL, customerID, pgconv.TimeToPgtype(since))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load customer history", err)
	}
	defer rows.Close()

	var out []*redemption.Redemption
	for rows.Next() {
		red, err := converter.ScanRedemption(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan redemption", err)
		}
		out = append(out, red)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate customer history", err)
	}
	// the domain tie-break is authoritative
	redemption.SortCausal(out)
	return out, nil
}

func (r *RedemptionRepository) MarkSynced(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, markSyncedSQL, ids, pgconv.TimeToPgtype(at)); err != nil {
		return infra.WrapRepoErr("failed to mark redemptions synced", err)
	}
	return nil
}
