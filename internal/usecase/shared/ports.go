package shared

//go:generate mockgen -destination=../../../tests/mock/shared/mock_ports.go -package=sharedmock redemption-guard/internal/usecase/shared VoucherLimitsProvider,ProviderLocationProvider,PartitionLocker,Observer

import (
	"context"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/domain/redemption"

	"github.com/google/uuid"
)

// RedemptionWriteRepository is the authoritative side of the ledger. Detection
// reads history from here, never from a lagging read replica.
type RedemptionWriteRepository interface {
	// FindByCode returns nil, nil when the code has never been redeemed.
	FindByCode(ctx context.Context, code string) (*redemption.Redemption, error)
	// InsertIfAbsent reports wasNew=false together with the stored row when the code already exists.
	InsertIfAbsent(ctx context.Context, r *redemption.Redemption) (stored *redemption.Redemption, wasNew bool, err error)
	// IncrementAndCheck atomically bumps the voucher-wide and per-customer
	// counters, failing with *redemption.LimitExceededError if either cap is reached.
	IncrementAndCheck(ctx context.Context, voucherID, customerID uuid.UUID, limits redemption.Limits) error
	HistoryForCustomer(ctx context.Context, customerID uuid.UUID, since time.Time) ([]*redemption.Redemption, error)
	MarkSynced(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type FraudCaseWriteRepository interface {
	Create(ctx context.Context, c *fraudcase.Case) error
	// Update persists c only if the stored version still equals expectedVersion.
	Update(ctx context.Context, c *fraudcase.Case, expectedVersion int64) error
	FindByID(ctx context.Context, id uuid.UUID) (*fraudcase.Case, error)
	// FindOpenCaseForCustomer returns nil, nil when no active case overlaps the given types.
	FindOpenCaseForCustomer(ctx context.Context, customerID uuid.UUID, types []fraud.FlagType) (*fraudcase.Case, error)
	// RecordFlags appends to the flag audit log. A (redemption, flag type)
	// pair already logged is skipped.
	RecordFlags(ctx context.Context, entry FlagAuditEntry) error
	// RecordedFlagTypes lists the flag types already logged for a redemption.
	RecordedFlagTypes(ctx context.Context, redemptionID uuid.UUID) ([]fraud.FlagType, error)
}

type VoucherLimitsProvider interface {
	GetLimits(ctx context.Context, voucherID uuid.UUID) (redemption.Limits, error)
}

type ProviderLocationProvider interface {
	GetProvider(ctx context.Context, providerID uuid.UUID) (*ProviderProfile, error)
}

// PartitionLocker serializes work per key (customer id) across goroutines or
// instances, depending on the backend.
type PartitionLocker interface {
	Lock(ctx context.Context, key uuid.UUID) (unlock func(), err error)
}

// Observer receives pipeline telemetry. Implementations must be nil-safe.
type Observer interface {
	RecordRedemption(outcome string, offline bool)
	RecordFlags(flags []fraud.Flag)
	RecordCaseDecision(decision string)
	RecordCaseTransition(to fraudcase.Status)
	RecordDetectionFailure(stage string)
	RecordReconciliation(duration time.Duration, items int, err error)
}
