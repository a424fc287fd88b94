package queries

import (
	"context"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrCaseNotFound        = errs.Mark(errs.New("fraud case not found"), errs.ErrNotFound)
	ErrInvalidStatsWindow  = errs.Mark(errs.New("statistics window must have from before to"), errs.ErrValidation)
	ErrInvalidStatsFilters = errs.Mark(errs.New("unknown severity or flag type"), errs.ErrValidation)
)

type FlagView struct {
	Type     fraud.FlagType `json:"type"`
	Severity fraud.Severity `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

type ActionView struct {
	Type        fraudcase.ActionType `json:"type"`
	Timestamp   time.Time            `json:"timestamp"`
	PerformedBy string               `json:"performed_by"`
	Details     map[string]any       `json:"details,omitempty"`
}

type CaseView struct {
	ID            uuid.UUID        `json:"id"`
	CustomerID    uuid.UUID        `json:"customer_id"`
	ProviderID    uuid.UUID        `json:"provider_id"`
	RedemptionIDs []uuid.UUID      `json:"redemption_ids"`
	Flags         []FlagView       `json:"flags"`
	Severity      fraud.Severity   `json:"severity"`
	Status        fraudcase.Status `json:"status"`
	OpenedAt      time.Time        `json:"opened_at"`
	ReviewedBy    *string          `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time       `json:"reviewed_at,omitempty"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
	Actions       []ActionView     `json:"actions"`
	ReopenedFrom  *uuid.UUID       `json:"reopened_from,omitempty"`
	Version       int64            `json:"version"`
}

func NewCaseView(c *fraudcase.Case) *CaseView {
	flags := make([]FlagView, 0, len(c.Flags()))
	for _, f := range c.Flags() {
		flags = append(flags, FlagView{Type: f.Type, Severity: f.Severity, Message: f.Message, Details: f.Details})
	}
	actions := make([]ActionView, 0, len(c.Actions()))
	for _, a := range c.Actions() {
		actions = append(actions, ActionView{Type: a.Type, Timestamp: a.Timestamp, PerformedBy: a.PerformedBy, Details: a.Details})
	}
	return &CaseView{
		ID:            c.ID(),
		CustomerID:    c.CustomerID(),
		ProviderID:    c.ProviderID(),
		RedemptionIDs: c.RedemptionIDs(),
		Flags:         flags,
		Severity:      c.HighestSeverity(),
		Status:        c.Status(),
		OpenedAt:      c.OpenedAt(),
		ReviewedBy:    c.ReviewedBy(),
		ReviewedAt:    c.ReviewedAt(),
		ResolvedAt:    c.ResolvedAt(),
		Actions:       actions,
		ReopenedFrom:  c.ReopenedFrom(),
		Version:       c.Version(),
	}
}

type CaseFilter struct {
	CustomerID *uuid.UUID
	Status     *fraudcase.Status
	From       *time.Time
	To         *time.Time
}

// StatisticsQuery selects flags recorded and cases opened in [From, To).
// Severity and FlagType narrow both.
type StatisticsQuery struct {
	From     time.Time
	To       time.Time
	Severity *fraud.Severity
	FlagType *fraud.FlagType
}

type StatisticsResult struct {
	From            time.Time                `json:"from"`
	To              time.Time                `json:"to"`
	TotalFlags      int                      `json:"total_flags"`
	FlagsByType     map[fraud.FlagType]int   `json:"flags_by_type"`
	FlagsBySeverity map[fraud.Severity]int   `json:"flags_by_severity"`
	CasesOpened     int                      `json:"cases_opened"`
	CasesByStatus   map[fraudcase.Status]int `json:"cases_by_status"`
}

func NewStatisticsResult(q StatisticsQuery) *StatisticsResult {
	return &StatisticsResult{
		From:            q.From,
		To:              q.To,
		FlagsByType:     map[fraud.FlagType]int{},
		FlagsBySeverity: map[fraud.Severity]int{},
		CasesByStatus:   map[fraudcase.Status]int{},
	}
}

// MatchesFlag applies the optional severity / type narrowing.
func (q StatisticsQuery) MatchesFlag(f fraud.Flag) bool {
	if q.Severity != nil && f.Severity != *q.Severity {
		return false
	}
	if q.FlagType != nil && f.Type != *q.FlagType {
		return false
	}
	return true
}

func (q StatisticsQuery) Contains(t time.Time) bool {
	return !t.Before(q.From) && t.Before(q.To)
}

type FraudCaseReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CaseView, error)
	List(ctx context.Context, filter CaseFilter, page, limit int) (*Page[*CaseView], error)
	Statistics(ctx context.Context, q StatisticsQuery) (*StatisticsResult, error)
}

type FraudCaseQueries interface {
	Get(ctx context.Context, id uuid.UUID) (*CaseView, error)
	List(ctx context.Context, filter CaseFilter, page, limit int) (*Page[*CaseView], error)
	Statistics(ctx context.Context, q StatisticsQuery) (*StatisticsResult, error)
}

type fraudCaseQueriesImpl struct {
	repo FraudCaseReadStore
}

func NewFraudCaseQueries(repo FraudCaseReadStore) FraudCaseQueries {
	return &fraudCaseQueriesImpl{repo: repo}
}

func (q *fraudCaseQueriesImpl) Get(ctx context.Context, id uuid.UUID) (*CaseView, error) {
	v, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return v, nil
}

func (q *fraudCaseQueriesImpl) List(ctx context.Context, filter CaseFilter, page, limit int) (*Page[*CaseView], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, errs.Mark(errs.Newf("unknown status %q", *filter.Status), errs.ErrValidation)
	}
	page, err := ValidatePage(page)
	if err != nil {
		return nil, err
	}
	return q.repo.List(ctx, filter, page, ValidateLimit(limit))
}

func (q *fraudCaseQueriesImpl) Statistics(ctx context.Context, sq StatisticsQuery) (*StatisticsResult, error) {
	if sq.From.IsZero() || sq.To.IsZero() || !sq.From.Before(sq.To) {
		return nil, ErrInvalidStatsWindow
	}
	if (sq.Severity != nil && !sq.Severity.IsValid()) || (sq.FlagType != nil && !sq.FlagType.IsValid()) {
		return nil, ErrInvalidStatsFilters
	}
	return q.repo.Statistics(ctx, sq)
}
