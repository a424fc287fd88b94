package commands

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/pkg/clock"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var ErrForeignCustomer = errs.Mark(errs.New("offline record belongs to another customer"), errs.ErrValidation)

type ItemStatus string

const (
	// ItemRecorded: newly persisted and evaluated in corrected order.
	ItemRecorded ItemStatus = "recorded"
	// ItemDuplicate: the code was already known (in the batch or the store).
	ItemDuplicate ItemStatus = "duplicate"
	// ItemRejected: validation, limit or validity-window failure.
	ItemRejected ItemStatus = "rejected"
	// ItemFailed: infrastructure failure; the record can be resubmitted.
	ItemFailed ItemStatus = "failed"
)

type ReconciledItem struct {
	// Index is the position in the submitted batch.
	Index      int
	Code       string
	Status     ItemStatus
	Redemption *redemption.Redemption
	Flags      []fraud.Flag
	Decision   *CaseDecision
	// Synced reports whether detection ran to completion and syncedAt was stamped.
	Synced            bool
	DetectionDegraded bool
	Err               error
}

type ReconciliationResult struct {
	CustomerID uuid.UUID
	Items      []ReconciledItem
	// Replayed lists the batch redemptions evaluated, in the causal order used.
	Replayed []uuid.UUID
	// Reevaluated holds stored redemptions that follow a replayed one and
	// were checked again against the corrected timeline.
	Reevaluated []Reevaluation
}

// Count returns how many items ended in status s.
func (r *ReconciliationResult) Count(s ItemStatus) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

type ReconcileCommands interface {
	Reconcile(ctx context.Context, customerID uuid.UUID, batch []RecordRequest) (*ReconciliationResult, error)
	ReconcileAll(ctx context.Context, batches map[uuid.UUID][]RecordRequest) (map[uuid.UUID]*ReconciliationResult, error)
}

type reconcileUseCaseImpl struct {
	uow       shared.UnitOfWork
	recorder  *redemptionUseCaseImpl
	detection *DetectionPipeline
	clock     clock.Clock
	observer  shared.Observer
	workers   int
}

func NewReconcileUseCase(
	uow shared.UnitOfWork,
	limits shared.VoucherLimitsProvider,
	detection *DetectionPipeline,
	clk clock.Clock,
	observer shared.Observer,
	settings Settings,
) ReconcileCommands {
	if observer == nil {
		observer = shared.NoopObserver{}
	}
	return &reconcileUseCaseImpl{
		uow: uow,
		recorder: &redemptionUseCaseImpl{
			uow:      uow,
			limits:   limits,
			clock:    clk,
			observer: observer,
			settings: settings,
		},
		detection: detection,
		clock:     clk,
		observer:  observer,
		workers:   max(settings.ReconcileWorkers, 1),
	}
}

// Reconcile records an offline batch for one customer and replays detection
// over the customer's timeline in corrected causal order. Runs for the same
// customer are serialized.
func (uc *reconcileUseCaseImpl) Reconcile(ctx context.Context, customerID uuid.UUID, batch []RecordRequest) (*ReconciliationResult, error) {
	if customerID == uuid.Nil {
		return nil, errs.Mark(errs.New("customer id is required"), errs.ErrValidation)
	}

	ctx, span := tracer.Start(ctx, "redemption.reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("customer_id", customerID.String()), attribute.Int("batch", len(batch)))

	start := time.Now()
	res, err := uc.reconcile(ctx, customerID, batch)
	uc.observer.RecordReconciliation(time.Since(start), len(batch), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return nil, err
	}

	slog.Info("offline batch reconciled",
		"customer_id", customerID.String(),
		"items", len(batch),
		"recorded", res.Count(ItemRecorded),
		"duplicate", res.Count(ItemDuplicate),
		"rejected", res.Count(ItemRejected),
		"failed", res.Count(ItemFailed),
		"replayed", len(res.Replayed),
		"reevaluated", len(res.Reevaluated))
	return res, nil
}

func (uc *reconcileUseCaseImpl) reconcile(ctx context.Context, customerID uuid.UUID, batch []RecordRequest) (*ReconciliationResult, error) {
	unlock, err := uc.detection.locker.Lock(ctx, customerID)
	if err != nil {
		uc.observer.RecordDetectionFailure(stageLock)
		return nil, errs.Wrap(err, "failed to lock customer partition")
	}
	defer unlock()

	res := &ReconciliationResult{CustomerID: customerID, Items: make([]ReconciledItem, len(batch))}
	firstByCode := make(map[string]int, len(batch))
	// replay holds item indexes whose redemption still needs evaluation
	replay := map[uuid.UUID]int{}

	for i, req := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := &res.Items[i]
		item.Index = i
		item.Code = req.Code
		req.IsOffline = true

		if req.CustomerID != customerID {
			item.Status, item.Err = ItemRejected, ErrForeignCustomer
			continue
		}
		code, cerr := redemption.NewCode(req.Code)
		if cerr == nil {
			if first, ok := firstByCode[code.String()]; ok {
				item.Status = ItemDuplicate
				item.Redemption = res.Items[first].Redemption
				continue
			}
			firstByCode[code.String()] = i
		}

		stored, replayed, err := uc.recorder.persist(ctx, req)
		switch {
		case err != nil && isRejection(err):
			item.Status, item.Err = ItemRejected, err
			uc.observer.RecordRedemption(shared.OutcomeRejected, true)
		case err != nil:
			item.Status, item.Err = ItemFailed, err
			uc.observer.RecordRedemption(shared.OutcomeFailed, true)
		case replayed:
			item.Status, item.Redemption = ItemDuplicate, stored
			uc.observer.RecordRedemption(shared.OutcomeDuplicate, true)
			// recorded by an earlier run that never finished syncing
			if stored.NeedsSync() && stored.CustomerID() == customerID {
				replay[stored.ID()] = i
			}
		default:
			item.Status, item.Redemption = ItemRecorded, stored
			uc.observer.RecordRedemption(shared.OutcomeRecorded, true)
			replay[stored.ID()] = i
		}
	}

	if len(replay) == 0 {
		return res, nil
	}
	if err := uc.replay(ctx, res, replay); err != nil {
		return nil, err
	}
	return res, nil
}

// replay evaluates the pending redemptions in causal order against the
// customer's full timeline and stamps the ones that completed. Stored
// redemptions that follow a pending one within the lookback are evaluated
// again, since a late arrival can change their predecessors.
func (uc *reconcileUseCaseImpl) replay(ctx context.Context, res *ReconciliationResult, pending map[uuid.UUID]int) error {
	ordered := make([]*redemption.Redemption, 0, len(pending))
	for _, idx := range pending {
		ordered = append(ordered, res.Items[idx].Redemption)
	}
	redemption.SortCausal(ordered)

	history, err := uc.detection.history(ctx, res.CustomerID, ordered[0].RedeemedAt())
	if err != nil {
		return err
	}
	timeline := append(slices.Clone(ordered), uc.detection.successors(ordered, history)...)
	redemption.SortCausal(timeline)

	locations := newProviderLocations(uc.detection)
	var synced []uuid.UUID
	for _, r := range timeline {
		idx, isPending := pending[r.ID()]
		if !isPending {
			re := uc.detection.reevaluate(ctx, r, history, locations)
			if re.Err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			res.Reevaluated = append(res.Reevaluated, re)
			continue
		}

		item := &res.Items[idx]
		res.Replayed = append(res.Replayed, r.ID())

		out, err := uc.detection.evaluate(ctx, r, history, locations)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("offline fraud detection failed",
				"customer_id", res.CustomerID.String(),
				"redemption_id", r.ID().String(),
				"error", err.Error(),
				"stack", errs.ExtractStackLines(err, 8))
			item.DetectionDegraded = true
			continue
		}
		item.Flags = out.Flags
		item.Decision = out.Decision
		item.DetectionDegraded = out.Degraded
		// a record evaluated without every signal stays unsynced for a later run
		if !out.Degraded {
			synced = append(synced, r.ID())
		}
	}

	if len(synced) == 0 {
		return nil
	}
	if err := uc.uow.Redemptions().MarkSynced(ctx, synced, uc.clock.Now()); err != nil {
		uc.observer.RecordDetectionFailure(stageSync)
		return errs.Wrap(err, "failed to stamp reconciled redemptions")
	}
	for _, id := range synced {
		res.Items[pending[id]].Synced = true
	}
	return nil
}

// ReconcileAll reconciles independent customers in parallel with a bounded
// number of workers. A failing customer does not stop the others; their
// errors are joined.
func (uc *reconcileUseCaseImpl) ReconcileAll(ctx context.Context, batches map[uuid.UUID][]RecordRequest) (map[uuid.UUID]*ReconciliationResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[uuid.UUID]*ReconciliationResult, len(batches))
		failed  []error
	)

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for customerID, batch := range batches {
		g.Go(func() error {
			res, err := uc.Reconcile(ctx, customerID, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, errs.Wrapf(err, "customer %s", customerID))
				return nil
			}
			results[customerID] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errs.Join(failed...)
}
