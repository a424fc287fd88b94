package readstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"redemption-guard/internal/infra"
	"redemption-guard/internal/infra/db"
	"redemption-guard/internal/infra/repository/converter"
	"redemption-guard/internal/pkg/pgconv"
	"redemption-guard/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RedemptionReadStore struct {
	db db.DBTX
}

func NewRedemptionReadStore(dbtx db.DBTX) *RedemptionReadStore {
	return &RedemptionReadStore{db: dbtx}
}

func (r *RedemptionReadStore) HistoryByCustomer(ctx context.Context, customerID uuid.UUID, since time.Time) ([]*queries.RedemptionView, error) {
	return r.history(ctx, "customer_id", customerID, since)
}

func (r *RedemptionReadStore) HistoryByProvider(ctx context.Context, providerID uuid.UUID, since time.Time) ([]*queries.RedemptionView, error) {
	return r.history(ctx, "provider_id", providerID, since)
}

func (r *RedemptionReadStore) history(ctx context.Context, column string, id uuid.UUID, since time.Time) ([]*queries.RedemptionView, error) {
	sql := `SELECT ` + converter.RedemptionColumns + ` FROM redemptions
		WHERE ` + column + ` = $1 AND redeemed_at >= $2
		ORDER BY redeemed_at, id`
	rows, err := r.db.Query(ctx, sql, id, pgconv.TimeToPgtype(since))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query redemption history", err)
	}
	return collectRedemptionViews(rows)
}

func (r *RedemptionReadStore) Search(ctx context.Context, f queries.RedemptionFilter, page, limit int, sortBy queries.RedemptionSortField, order queries.SortOrder) (*queries.Page[*queries.RedemptionView], error) {
	where, args := redemptionWhere(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM redemptions`+where, args...).Scan(&total); err != nil {
		return nil, infra.WrapRepoErr("failed to count redemptions", err)
	}

	// sortBy and order are validated enums, never caller-provided text
	dir := "DESC"
	if order == queries.SortAsc {
		dir = "ASC"
	}
	sql := fmt.Sprintf(`SELECT %s FROM redemptions%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		converter.RedemptionColumns, where, string(sortBy), dir, dir, len(args)+1, len(args)+2)
	args = append(args, limit, queries.Offset(page, limit))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to search redemptions", err)
	}
	items, err := collectRedemptionViews(rows)
	if err != nil {
		return nil, err
	}
	return queries.NewPage(items, page, limit, total), nil
}

func redemptionWhere(f queries.RedemptionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.VoucherID != nil {
		add("voucher_id = $%d", *f.VoucherID)
	}
	if f.CustomerID != nil {
		add("customer_id = $%d", *f.CustomerID)
	}
	if f.ProviderID != nil {
		add("provider_id = $%d", *f.ProviderID)
	}
	if f.From != nil {
		add("redeemed_at >= $%d", pgconv.TimeToPgtype(*f.From))
	}
	if f.To != nil {
		add("redeemed_at < $%d", pgconv.TimeToPgtype(*f.To))
	}
	if f.IsOffline != nil {
		add("is_offline = $%d", *f.IsOffline)
	}
	if f.Unsynced {
		conds = append(conds, "is_offline AND synced_at IS NULL")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func collectRedemptionViews(rows pgx.Rows) ([]*queries.RedemptionView, error) {
	defer rows.Close()

	var out []*queries.RedemptionView
	for rows.Next() {
		red, err := converter.ScanRedemption(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan redemption", err)
		}
		out = append(out, queries.NewRedemptionView(red))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate redemptions", err)
	}
	return out, nil
}
