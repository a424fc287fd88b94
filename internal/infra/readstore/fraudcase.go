package readstore

import (
	"context"
	"fmt"
	"strings"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/infra/db"
	"redemption-guard/internal/infra/repository/converter"
	"redemption-guard/internal/pkg/pgconv"
	"redemption-guard/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	auditFlagsInWindowSQL = `SELECT '' AS status, jsonb_build_array(flag) FROM fraud_flag_audit WHERE recorded_at >= $1 AND recorded_at < $2`

	casesInWindowSQL = `SELECT status, flags FROM fraud_cases WHERE opened_at >= $1 AND opened_at < $2`
)

type FraudCaseReadStore struct {
	db db.DBTX
}

func NewFraudCaseReadStore(dbtx db.DBTX) *FraudCaseReadStore {
	return &FraudCaseReadStore{db: dbtx}
}

func (r *FraudCaseReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.CaseView, error) {
	sql := `SELECT ` + converter.CaseColumns + ` FROM fraud_cases c WHERE c.id = $1`
	c, err := converter.ScanCase(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("fraud case not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get fraud case view", err)
	}
	return queries.NewCaseView(c), nil
}

func (r *FraudCaseReadStore) List(ctx context.Context, f queries.CaseFilter, page, limit int) (*queries.Page[*queries.CaseView], error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.CustomerID != nil {
		add("c.customer_id = $%d", *f.CustomerID)
	}
	if f.Status != nil {
		add("c.status = $%d", f.Status.String())
	}
	if f.From != nil {
		add("c.opened_at >= $%d", pgconv.TimeToPgtype(*f.From))
	}
	if f.To != nil {
		add("c.opened_at < $%d", pgconv.TimeToPgtype(*f.To))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM fraud_cases c`+where, args...).Scan(&total); err != nil {
		return nil, infra.WrapRepoErr("failed to count fraud cases", err)
	}

	sql := fmt.Sprintf(`SELECT %s FROM fraud_cases c%s ORDER BY c.opened_at DESC, c.id DESC LIMIT $%d OFFSET $%d`,
		converter.CaseColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, queries.Offset(page, limit))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list fraud cases", err)
	}
	defer rows.Close()

	var items []*queries.CaseView
	for rows.Next() {
		c, err := converter.ScanCase(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan fraud case", err)
		}
		items = append(items, queries.NewCaseView(c))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate fraud cases", err)
	}
	return queries.NewPage(items, page, limit, total), nil
}

// Statistics aggregates in Go over the window's rows; flag details live in
// jsonb and the filters apply per flag.
func (r *FraudCaseReadStore) Statistics(ctx context.Context, q queries.StatisticsQuery) (*queries.StatisticsResult, error) {
	res := queries.NewStatisticsResult(q)
	from, to := pgconv.TimeToPgtype(q.From), pgconv.TimeToPgtype(q.To)

	rows, err := r.db.Query(ctx, auditFlagsInWindowSQL, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query flag audit", err)
	}
	err = forEachFlagSet(rows, func(_ string, flags []fraud.Flag) {
		for _, f := range flags {
			if q.MatchesFlag(f) {
				res.TotalFlags++
				res.FlagsByType[f.Type]++
				res.FlagsBySeverity[f.Severity]++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, casesInWindowSQL, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query cases in window", err)
	}
	err = forEachFlagSet(rows, func(status string, flags []fraud.Flag) {
		for _, f := range flags {
			if q.MatchesFlag(f) {
				res.CasesOpened++
				res.CasesByStatus[fraudcase.Status(status)]++
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// forEachFlagSet scans (status, flags jsonb) rows.
func forEachFlagSet(rows pgx.Rows, fn func(status string, flags []fraud.Flag)) error {
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			raw    []byte
		)
		if err := rows.Scan(&status, &raw); err != nil {
			return infra.WrapRepoErr("failed to scan flags", err)
		}
		flags, err := converter.FlagsFromJSON(raw)
		if err != nil {
			return err
		}
		fn(status, flags)
	}
	if err := rows.Err(); err != nil {
		return infra.WrapRepoErr("failed to iterate flags", err)
	}
	return nil
}
