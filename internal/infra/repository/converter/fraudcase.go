package converter

import (
	"encoding/json"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CaseColumns matches the scan order of ScanCase. Redemption ids are
// aggregated from fraud_case_redemptions in insertion order.
const CaseColumns = `c.id, c.customer_id, c.provider_id, c.flags, c.status, c.opened_at,
	c.reviewed_by, c.reviewed_at, c.resolved_at, c.actions, c.reopened_from, c.version,
	COALESCE((SELECT array_agg(cr.redemption_id ORDER BY cr.position)
	          FROM fraud_case_redemptions cr WHERE cr.case_id = c.id), '{}')`

type flagJSON struct {
	Type     fraud.FlagType `json:"type"`
	Severity fraud.Severity `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

type actionJSON struct {
	Type        fraudcase.ActionType `json:"type"`
	Timestamp   time.Time            `json:"timestamp"`
	PerformedBy string               `json:"performed_by"`
	Details     map[string]any       `json:"details,omitempty"`
}

func FlagsToJSON(flags []fraud.Flag) ([]byte, error) {
	out := make([]flagJSON, 0, len(flags))
	for _, f := range flags {
		out = append(out, flagJSON(f))
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode flags")
	}
	return b, nil
}

func FlagToJSON(f fraud.Flag) ([]byte, error) {
	b, err := json.Marshal(flagJSON(f))
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode flag")
	}
	return b, nil
}

func FlagsFromJSON(b []byte) ([]fraud.Flag, error) {
	var in []flagJSON
	if len(b) > 0 {
		if err := json.Unmarshal(b, &in); err != nil {
			return nil, errs.Wrap(err, "failed to decode flags")
		}
	}
	out := make([]fraud.Flag, 0, len(in))
	for _, f := range in {
		out = append(out, fraud.Flag(f))
	}
	return out, nil
}

func ActionsToJSON(actions []fraudcase.Action) ([]byte, error) {
	out := make([]actionJSON, 0, len(actions))
	for _, a := range actions {
		out = append(out, actionJSON(a))
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode case actions")
	}
	return b, nil
}

func ActionsFromJSON(b []byte) ([]fraudcase.Action, error) {
	var in []actionJSON
	if len(b) > 0 {
		if err := json.Unmarshal(b, &in); err != nil {
			return nil, errs.Wrap(err, "failed to decode case actions")
		}
	}
	out := make([]fraudcase.Action, 0, len(in))
	for _, a := range in {
		out = append(out, fraudcase.Action(a))
	}
	return out, nil
}

func ScanCase(row pgx.Row) (*fraudcase.Case, error) {
	var (
		id, customerID, providerID uuid.UUID
		flagsRaw, actionsRaw       []byte
		status                     string
		openedAt                   pgtype.Timestamptz
		reviewedBy                 pgtype.Text
		reviewedAt, resolvedAt     pgtype.Timestamptz
		reopenedFrom               pgtype.UUID
		version                    int64
		redemptionIDs              []uuid.UUID
	)
	if err := row.Scan(
		&id, &customerID, &providerID, &flagsRaw, &status, &openedAt,
		&reviewedBy, &reviewedAt, &resolvedAt, &actionsRaw, &reopenedFrom, &version,
		&redemptionIDs,
	); err != nil {
		return nil, err
	}

	flags, err := FlagsFromJSON(flagsRaw)
	if err != nil {
		return nil, err
	}
	actions, err := ActionsFromJSON(actionsRaw)
	if err != nil {
		return nil, err
	}

	return fraudcase.ReconstructCase(
		id, customerID, providerID,
		redemptionIDs,
		flags,
		fraudcase.Status(status),
		pgconv.TimeFromPgtype(openedAt),
		pgconv.StringPtrFromPgtype(reviewedBy),
		pgconv.TimePtrFromPgtype(reviewedAt), pgconv.TimePtrFromPgtype(resolvedAt),
		actions,
		pgconv.UUIDPtrFromPgtype(reopenedFrom),
		version,
	), nil
}

// FlagTypeNames is the text[] form stored alongside the jsonb flags for
// overlap queries.
func FlagTypeNames(types []fraud.FlagType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.String())
	}
	return out
}
