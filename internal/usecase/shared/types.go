package shared

import (
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/pkg/geo"

	"github.com/google/uuid"
)

type ProviderProfile struct {
	ID       uuid.UUID
	Name     string
	Location *geo.Point
}

// FlagAuditEntry keeps every evaluation that produced flags, including those
// that did not reach the case-opening threshold. Stores key it by
// (RedemptionID, flag type).
type FlagAuditEntry struct {
	CustomerID   uuid.UUID
	ProviderID   uuid.UUID
	RedemptionID uuid.UUID
	Flags        []fraud.Flag
	CaseID       *uuid.UUID
	Decision     string
	RecordedAt   time.Time
}

// Outcome labels shared by metrics and logs.
const (
	OutcomeRecorded  = "recorded"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

type NoopObserver struct{}

func (NoopObserver) RecordRedemption(string, bool)                  {}
func (NoopObserver) RecordFlags([]fraud.Flag)                       {}
func (NoopObserver) RecordCaseDecision(string)                      {}
func (NoopObserver) RecordCaseTransition(fraudcase.Status)          {}
func (NoopObserver) RecordDetectionFailure(string)                  {}
func (NoopObserver) RecordReconciliation(time.Duration, int, error) {}
