package fraudcase

import (
	"slices"
	"time"

	"redemption-guard/internal/domain/fraud"

	"github.com/google/uuid"
)

// Case aggregates flags for human review. Status moves strictly forward
// OPEN -> IN_REVIEW -> RESOLVED; every mutation bumps version so writers can
// detect lost updates.
type Case struct {
	id            uuid.UUID
	customerID    uuid.UUID
	providerID    uuid.UUID
	redemptionIDs []uuid.UUID
	flags         []fraud.Flag
	status        Status
	openedAt      time.Time
	reviewedBy    *string
	reviewedAt    *time.Time
	resolvedAt    *time.Time
	actions       []Action
	reopenedFrom  *uuid.UUID
	version       int64
}

// ShouldOpen is the case-opening policy: any HIGH flag, or at least two flags
// of MEDIUM or above.
func ShouldOpen(flags []fraud.Flag) bool {
	elevated := 0
	for _, f := range flags {
		if f.Severity == fraud.SeverityHigh {
			return true
		}
		if f.Severity.AtLeast(fraud.SeverityMedium) {
			elevated++
		}
	}
	return elevated >= 2
}

func Open(customerID, providerID, redemptionID uuid.UUID, flags []fraud.Flag, now time.Time) (*Case, error) {
	if len(flags) == 0 {
		return nil, ErrNoFlags
	}
	if !ShouldOpen(flags) {
		return nil, ErrBelowThreshold
	}
	return &Case{
		id:            uuid.New(),
		customerID:    customerID,
		providerID:    providerID,
		redemptionIDs: []uuid.UUID{redemptionID},
		flags:         slices.Clone(flags),
		status:        StatusOpen,
		openedAt:      now.UTC(),
		version:       1,
	}, nil
}

// Reopen starts a new case that references a resolved one. The source case
// is left untouched.
func Reopen(source *Case, reviewer string, now time.Time) (*Case, error) {
	if source.status != StatusResolved {
		return nil, ErrNotResolved
	}
	if _, err := normalizeReviewer(reviewer); err != nil {
		return nil, err
	}
	from := source.id
	return &Case{
		id:            uuid.New(),
		customerID:    source.customerID,
		providerID:    source.providerID,
		redemptionIDs: slices.Clone(source.redemptionIDs),
		flags:         slices.Clone(source.flags),
		status:        StatusOpen,
		openedAt:      now.UTC(),
		reopenedFrom:  &from,
		version:       1,
	}, nil
}

func ReconstructCase(
	id, customerID, providerID uuid.UUID,
	redemptionIDs []uuid.UUID,
	flags []fraud.Flag,
	status Status,
	openedAt time.Time,
	reviewedBy *string,
	reviewedAt, resolvedAt *time.Time,
	actions []Action,
	reopenedFrom *uuid.UUID,
	version int64,
) *Case {
	return &Case{
		id:            id,
		customerID:    customerID,
		providerID:    providerID,
		redemptionIDs: redemptionIDs,
		flags:         flags,
		status:        status,
		openedAt:      openedAt,
		reviewedBy:    reviewedBy,
		reviewedAt:    reviewedAt,
		resolvedAt:    resolvedAt,
		actions:       actions,
		reopenedFrom:  reopenedFrom,
		version:       version,
	}
}

// Overlaps reports whether the case already carries any of the given flag types.
func (c *Case) Overlaps(types []fraud.FlagType) bool {
	for _, f := range c.flags {
		if slices.Contains(types, f.Type) {
			return true
		}
	}
	return false
}

// Attach adds a redemption and its flags to an active case. Redemption ids
// form an ordered set; flags are appended as-is.
func (c *Case) Attach(redemptionID uuid.UUID, flags []fraud.Flag) error {
	if !c.status.IsActive() {
		return ErrCaseResolved
	}
	if len(flags) == 0 {
		return ErrNoFlags
	}
	if !slices.Contains(c.redemptionIDs, redemptionID) {
		c.redemptionIDs = append(c.redemptionIDs, redemptionID)
	}
	c.flags = append(c.flags, flags...)
	c.version++
	return nil
}

func (c *Case) StartReview(reviewer string, now time.Time) error {
	if c.status != StatusOpen {
		return ErrNotOpen
	}
	r, err := normalizeReviewer(reviewer)
	if err != nil {
		return err
	}
	t := now.UTC()
	c.status = StatusInReview
	c.reviewedBy = &r
	c.reviewedAt = &t
	c.version++
	return nil
}

func (c *Case) Resolve(actions []Action, now time.Time) error {
	if c.status != StatusInReview {
		return ErrNotInReview
	}
	if len(actions) == 0 {
		return ErrNoActions
	}
	for _, a := range actions {
		if !a.Type.IsValid() {
			return ErrInvalidActionType
		}
	}
	t := now.UTC()
	c.actions = append(c.actions, actions...)
	c.status = StatusResolved
	c.resolvedAt = &t
	c.version++
	return nil
}

// CheckVersion guards optimistic writes issued by reviewers.
func (c *Case) CheckVersion(expected int64) error {
	if c.version != expected {
		return ErrStaleVersion
	}
	return nil
}

// HighestSeverity is LOW for a case without flags.
func (c *Case) HighestSeverity() fraud.Severity {
	best := fraud.SeverityLow
	for _, f := range c.flags {
		if f.Severity.Rank() > best.Rank() {
			best = f.Severity
		}
	}
	return best
}

func (c *Case) ID() uuid.UUID              { return c.id }
func (c *Case) CustomerID() uuid.UUID      { return c.customerID }
func (c *Case) ProviderID() uuid.UUID      { return c.providerID }
func (c *Case) RedemptionIDs() []uuid.UUID { return slices.Clone(c.redemptionIDs) }
func (c *Case) Flags() []fraud.Flag        { return slices.Clone(c.flags) }
func (c *Case) FlagTypes() []fraud.FlagType {
	return fraud.Types(c.flags)
}
func (c *Case) Status() Status           { return c.status }
func (c *Case) OpenedAt() time.Time      { return c.openedAt }
func (c *Case) ReviewedBy() *string      { return c.reviewedBy }
func (c *Case) ReviewedAt() *time.Time   { return c.reviewedAt }
func (c *Case) ResolvedAt() *time.Time   { return c.resolvedAt }
func (c *Case) Actions() []Action        { return slices.Clone(c.actions) }
func (c *Case) ReopenedFrom() *uuid.UUID { return c.reopenedFrom }
func (c *Case) Version() int64           { return c.version }
