package repository

import (
	"context"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/infra/db"
	"redemption-guard/internal/infra/repository/converter"
	"redemption-guard/internal/pkg/pgconv"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	insertCaseSQL = `INSERT INTO fraud_cases
		(id, customer_id, provider_id, flags, flag_types, severity, status, opened_at,
		 reviewed_by, reviewed_at, resolved_at, actions, reopened_from, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateCaseSQL = `UPDATE fraud_cases SET
		flags = $3, flag_types = $4, severity = $5, status = $6,
		reviewed_by = $7, reviewed_at = $8, resolved_at = $9, actions = $10, version = $11
		WHERE id = $1 AND version = $2`

	linkCaseRedemptionSQL = `INSERT INTO fraud_case_redemptions (case_id, redemption_id, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (case_id, redemption_id) DO NOTHING`

	caseExistsSQL = `SELECT EXISTS (SELECT 1 FROM fraud_cases WHERE id = $1)`

	findCaseByIDSQL = `SELECT ` + converter.CaseColumns + ` FROM fraud_cases c WHERE c.id = $1`

	findOpenCaseSQL = `SELECT ` + converter.CaseColumns + ` FROM fraud_cases c
		WHERE c.customer_id = $1 AND c.status <> 'RESOLVED' AND c.flag_types && $2::text[]
		ORDER BY c.opened_at, c.id
		LIMIT 1`

	insertFlagAuditSQL = `INSERT INTO fraud_flag_audit
		(redemption_id, flag_type, customer_id, provider_id, flag, case_id, decision, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (redemption_id, flag_type) DO NOTHING`

	recordedFlagTypesSQL = `SELECT flag_type FROM fraud_flag_audit WHERE redemption_id = $1 ORDER BY flag_type`
)

type FraudCaseRepository struct {
	db db.DBTX
}

func NewFraudCaseRepository(dbtx db.DBTX) *FraudCaseRepository {
	return &FraudCaseRepository{db: dbtx}
}

func (r *FraudCaseRepository) Create(ctx context.Context, c *fraudcase.Case) error {
	flags, err := converter.FlagsToJSON(c.Flags())
	if err != nil {
		return err
	}
	actions, err := converter.ActionsToJSON(c.Actions())
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, insertCaseSQL,
		c.ID(), c.CustomerID(), c.ProviderID(),
		flags, converter.FlagTypeNames(c.FlagTypes()), c.HighestSeverity().String(), c.Status().String(),
		pgconv.TimeToPgtype(c.OpenedAt()),
		pgconv.StringPtrToPgtype(c.ReviewedBy()), pgconv.TimePtrToPgtype(c.ReviewedAt()), pgconv.TimePtrToPgtype(c.ResolvedAt()),
		actions, pgconv.UUIDPtrToPgtype(c.ReopenedFrom()), c.Version(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create fraud case", err)
	}
	return r.linkRedemptions(ctx, c)
}

func (r *FraudCaseRepository) Update(ctx context.Context, c *fraudcase.Case, expectedVersion int64) error {
	flags, err := converter.FlagsToJSON(c.Flags())
	if err != nil {
		return err
	}
	actions, err := converter.ActionsToJSON(c.Actions())
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, updateCaseSQL,
		c.ID(), expectedVersion,
		flags, converter.FlagTypeNames(c.FlagTypes()), c.HighestSeverity().String(), c.Status().String(),
		pgconv.StringPtrToPgtype(c.ReviewedBy()), pgconv.TimePtrToPgtype(c.ReviewedAt()), pgconv.TimePtrToPgtype(c.ResolvedAt()),
		actions, c.Version(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update fraud case", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, caseExistsSQL, c.ID()).Scan(&exists); err != nil {
			return infra.WrapRepoErr("failed to check fraud case existence", err)
		}
		if !exists {
			return infra.NewRepoErr(infra.KindNotFound, "fraud case not found: "+c.ID().String())
		}
		return infra.NewRepoErr(infra.KindVersionConflict, "fraud case was modified concurrently")
	}
	return r.linkRedemptions(ctx, c)
}

func (r *FraudCaseRepository) linkRedemptions(ctx context.Context, c *fraudcase.Case) error {
	for i, id := range c.RedemptionIDs() {
		if _, err := r.db.Exec(ctx, linkCaseRedemptionSQL, c.ID(), id, i); err != nil {
			return infra.WrapRepoErr("failed to link redemption to fraud case", err)
		}
	}
	return nil
}

func (r *FraudCaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*fraudcase.Case, error) {
	c, err := converter.ScanCase(r.db.QueryRow(ctx, findCaseByIDSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("fraud case not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get fraud case", err)
	}
	return c, nil
}

func (r *FraudCaseRepository) FindOpenCaseForCustomer(ctx context.Context, customerID uuid.UUID, types []fraud.FlagType) (*fraudcase.Case, error) {
	c, err := converter.ScanCase(r.db.QueryRow(ctx, findOpenCaseSQL, customerID, converter.FlagTypeNames(types)))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to find open fraud case", err)
	}
	return c, nil
}

func (r *FraudCaseRepository) RecordFlags(ctx context.Context, e shared.FlagAuditEntry) error {
	caseID := pgconv.UUIDPtrToPgtype(e.CaseID)
	at := pgconv.TimeToPgtype(e.RecordedAt)
	for _, f := range e.Flags {
		flag, err := converter.FlagToJSON(f)
		if err != nil {
			return err
		}
		_, err = r.db.Exec(ctx, insertFlagAuditSQL,
			e.RedemptionID, f.Type.String(), e.CustomerID, e.ProviderID,
			flag, caseID, e.Decision, at,
		)
		if err != nil {
			return infra.WrapRepoErr("failed to record fraud flags", err)
		}
	}
	return nil
}

func (r *FraudCaseRepository) RecordedFlagTypes(ctx context.Context, redemptionID uuid.UUID) ([]fraud.FlagType, error) {
	rows, err := r.db.Query(ctx, recordedFlagTypesSQL, redemptionID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load recorded flag types", err)
	}
	defer rows.Close()

	var types []fraud.FlagType
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, infra.WrapRepoErr("failed to scan flag type", err)
		}
		types = append(types, fraud.FlagType(t))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate flag types", err)
	}
	return types, nil
}
