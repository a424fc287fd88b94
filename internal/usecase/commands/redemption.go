package commands

import (
	"context"
	"log/slog"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/pkg/clock"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrVoucherNotFound = errs.Mark(errs.New("voucher not found"), errs.ErrNotFound)
	ErrCodeTaken       = errs.Mark(errs.New("redemption code was used by another customer or voucher"), errs.ErrValidation)

	// errDuplicateInsert rolls back counter increments when a concurrent
	// submission of the same code won the insert.
	errDuplicateInsert = errs.New("redemption code inserted concurrently")
)

type RecordRequest struct {
	VoucherID  uuid.UUID          `json:"voucher_id"`
	CustomerID uuid.UUID          `json:"customer_id"`
	ProviderID uuid.UUID          `json:"provider_id"`
	Code       string             `json:"code"`
	RedeemedAt time.Time          `json:"redeemed_at"`
	Location   *redemption.LatLng `json:"location,omitempty"`
	IsOffline  bool               `json:"is_offline"`
}

type RecordResult struct {
	Redemption *redemption.Redemption
	// IsReplayed: the code was already redeemed; Redemption is the stored record.
	IsReplayed bool
	Flags      []fraud.Flag
	// Decision is nil for replays, offline records and degraded detection.
	Decision *CaseDecision
	// DetectionDegraded: the redemption is durable but detection failed or ran
	// without every signal.
	DetectionDegraded bool
	// Reevaluated: later redemptions checked again because this one arrived
	// after them.
	Reevaluated []Reevaluation
}

type RedemptionCommands interface {
	Record(ctx context.Context, req RecordRequest) (*RecordResult, error)
}

type redemptionUseCaseImpl struct {
	uow       shared.UnitOfWork
	limits    shared.VoucherLimitsProvider
	detection *DetectionPipeline
	clock     clock.Clock
	observer  shared.Observer
	settings  Settings
}

func NewRedemptionUseCase(
	uow shared.UnitOfWork,
	limits shared.VoucherLimitsProvider,
	detection *DetectionPipeline,
	clk clock.Clock,
	observer shared.Observer,
	settings Settings,
) RedemptionCommands {
	if observer == nil {
		observer = shared.NoopObserver{}
	}
	return &redemptionUseCaseImpl{
		uow:       uow,
		limits:    limits,
		detection: detection,
		clock:     clk,
		observer:  observer,
		settings:  settings,
	}
}

func (uc *redemptionUseCaseImpl) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	ctx, span := tracer.Start(ctx, "redemption.record")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer_id", req.CustomerID.String()),
		attribute.String("voucher_id", req.VoucherID.String()),
		attribute.Bool("offline", req.IsOffline),
	)

	stored, replayed, err := uc.persist(ctx, req)
	if err != nil {
		outcome := shared.OutcomeFailed
		if isRejection(err) {
			outcome = shared.OutcomeRejected
		}
		uc.observer.RecordRedemption(outcome, req.IsOffline)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	res := &RecordResult{Redemption: stored, IsReplayed: replayed}
	if replayed {
		uc.observer.RecordRedemption(shared.OutcomeDuplicate, req.IsOffline)
		span.SetAttributes(attribute.Bool("replayed", true))
		return res, nil
	}
	uc.observer.RecordRedemption(shared.OutcomeRecorded, stored.IsOffline())
	span.SetAttributes(attribute.String("redemption_id", stored.ID().String()))

	if stored.IsOffline() {
		// detection is deferred to reconciliation
		return res, nil
	}

	// The redemption is committed; detection must not be cut short by the
	// caller going away.
	dctx, cancel := withTimeout(context.WithoutCancel(ctx), uc.settings.DetectionTimeout)
	defer cancel()

	out, err := uc.detection.Detect(dctx, stored)
	if err != nil {
		slog.Error("online fraud detection failed",
			"customer_id", stored.CustomerID().String(),
			"redemption_id", stored.ID().String(),
			"error", err.Error(),
			"stack", errs.ExtractStackLines(err, 8))
		res.DetectionDegraded = true
		span.SetAttributes(attribute.Bool("detection_degraded", true))
		return res, nil
	}
	res.Flags = out.Flags
	res.Decision = out.Decision
	res.DetectionDegraded = out.Degraded
	res.Reevaluated = out.Reevaluated
	return res, nil
}

// persist validates req and records it, returning the stored redemption and
// whether it already existed.
func (uc *redemptionUseCaseImpl) persist(ctx context.Context, req RecordRequest) (*redemption.Redemption, bool, error) {
	r, err := redemption.NewRedemption(req.toInput(), uc.clock.Now(), uc.settings.MaxClockSkew)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	// A replayed code must not depend on the catalog being reachable.
	existing, err := uc.uow.Redemptions().FindByCode(ctx, r.Code().String())
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return replayOf(existing, r)
	}

	limits, err := uc.lookupLimits(ctx, r.VoucherID())
	if err != nil {
		return nil, false, err
	}

	var (
		stored   *redemption.Redemption
		replayed bool
	)
	err = uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		repo := tx.Redemptions()

		existing, err := repo.FindByCode(ctx, r.Code().String())
		if err != nil {
			return err
		}
		if existing != nil {
			if !sameOwner(existing, r) {
				return ErrCodeTaken
			}
			stored, replayed = existing, true
			return nil
		}

		if err := repo.IncrementAndCheck(ctx, r.VoucherID(), r.CustomerID(), limits); err != nil {
			return err
		}
		if !limits.IsValidAt(r.RedeemedAt()) {
			return errs.ErrVoucherNotActive
		}

		row, wasNew, err := repo.InsertIfAbsent(ctx, r)
		if err != nil {
			return err
		}
		stored = row
		if !wasNew {
			replayed = true
			return errDuplicateInsert
		}
		return nil
	})
	if errs.Is(err, errDuplicateInsert) {
		return replayOf(stored, r)
	}
	if err != nil {
		return nil, false, err
	}
	return stored, replayed, nil
}

// replayOf returns the stored redemption for a resubmitted code, refusing it
// when the code was redeemed for a different customer or voucher.
func replayOf(existing, r *redemption.Redemption) (*redemption.Redemption, bool, error) {
	if !sameOwner(existing, r) {
		return nil, false, ErrCodeTaken
	}
	return existing, true, nil
}

func sameOwner(existing, r *redemption.Redemption) bool {
	return existing.CustomerID() == r.CustomerID() && existing.VoucherID() == r.VoucherID()
}

func (uc *redemptionUseCaseImpl) lookupLimits(ctx context.Context, voucherID uuid.UUID) (redemption.Limits, error) {
	lctx, cancel := withTimeout(ctx, uc.settings.LookupTimeout)
	defer cancel()

	limits, err := uc.limits.GetLimits(lctx, voucherID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return redemption.Limits{}, ErrVoucherNotFound
		}
		return redemption.Limits{}, errs.Mark(errs.Wrapf(err, "voucher limits unavailable for %s", voucherID), errs.ErrDependencyUnavailable)
	}
	return limits, nil
}

func isRejection(err error) bool {
	return errs.Is(err, errs.ErrValidation) ||
		errs.Is(err, errs.ErrLimitExceeded) ||
		errs.Is(err, errs.ErrVoucherNotActive) ||
		errs.Is(err, errs.ErrNotFound)
}

func (req RecordRequest) toInput() redemption.NewRedemptionInput {
	return redemption.NewRedemptionInput{
		VoucherID:  req.VoucherID,
		CustomerID: req.CustomerID,
		ProviderID: req.ProviderID,
		Code:       req.Code,
		RedeemedAt: req.RedeemedAt,
		Location:   req.Location,
		IsOffline:  req.IsOffline,
	}
}
