package commands

import (
	"context"
	"log/slog"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/pkg/geo"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
)

// Detection failure stages reported to the observer.
const (
	stageLock           = "lock"
	stageHistory        = "history"
	stageProviderLookup = "provider_lookup"
	stageCase           = "case"
	stageSync           = "sync"
)

// DetectionOutcome is the result of running the detector over one redemption.
type DetectionOutcome struct {
	Flags    []fraud.Flag
	Decision *CaseDecision
	// Degraded is set when the provider lookup failed and DISTANT_LOCATION
	// could not be evaluated.
	Degraded bool
	// Reevaluated holds stored redemptions that follow this one and were
	// checked again because their predecessors changed.
	Reevaluated []Reevaluation
}

// Reevaluation is the result of re-running detection for a stored redemption
// after an earlier one arrived late.
type Reevaluation struct {
	Redemption *redemption.Redemption
	Flags      []fraud.Flag
	Decision   *CaseDecision
	Err        error
}

// DetectionPipeline loads evidence, evaluates the detector and hands flags to
// the case manager. Online recording and reconciliation share it so both
// paths decide identically.
type DetectionPipeline struct {
	uow       shared.UnitOfWork
	providers shared.ProviderLocationProvider
	locker    shared.PartitionLocker
	detector  *fraud.Detector
	cases     FraudCaseCommands
	observer  shared.Observer
	settings  Settings
	lookback  time.Duration
}

func NewDetectionPipeline(
	uow shared.UnitOfWork,
	providers shared.ProviderLocationProvider,
	locker shared.PartitionLocker,
	detector *fraud.Detector,
	cases FraudCaseCommands,
	observer shared.Observer,
	settings Settings,
) *DetectionPipeline {
	if observer == nil {
		observer = shared.NoopObserver{}
	}
	return &DetectionPipeline{
		uow:       uow,
		providers: providers,
		locker:    locker,
		detector:  detector,
		cases:     cases,
		observer:  observer,
		settings:  settings,
		lookback:  lookbackFor(settings, detector.Thresholds()),
	}
}

// Detect evaluates a single freshly recorded redemption under the customer's
// partition lock.
func (p *DetectionPipeline) Detect(ctx context.Context, r *redemption.Redemption) (*DetectionOutcome, error) {
	unlock, err := p.locker.Lock(ctx, r.CustomerID())
	if err != nil {
		p.observer.RecordDetectionFailure(stageLock)
		return nil, errs.Wrap(err, "failed to lock customer partition")
	}
	defer unlock()

	history, err := p.history(ctx, r.CustomerID(), r.RedeemedAt())
	if err != nil {
		return nil, err
	}
	locations := newProviderLocations(p)
	out, err := p.evaluate(ctx, r, history, locations)
	if err != nil {
		return nil, err
	}
	// a slow request can land before redemptions that were already evaluated
	for _, next := range p.successors([]*redemption.Redemption{r}, history) {
		out.Reevaluated = append(out.Reevaluated, p.reevaluate(ctx, next, history, locations))
	}
	return out, nil
}

// history loads the customer's authoritative history reaching back far
// enough for every time-based signal of a redemption at t.
func (p *DetectionPipeline) history(ctx context.Context, customerID uuid.UUID, t time.Time) ([]*redemption.Redemption, error) {
	h, err := p.uow.Redemptions().HistoryForCustomer(ctx, customerID, t.Add(-p.lookback))
	if err != nil {
		p.observer.RecordDetectionFailure(stageHistory)
		return nil, errs.Wrap(err, "failed to load customer history")
	}
	return h, nil
}

// evaluate runs the detector against preloaded history. The caller holds the
// customer's partition lock.
func (p *DetectionPipeline) evaluate(ctx context.Context, r *redemption.Redemption, history []*redemption.Redemption, locations *providerLocations) (*DetectionOutcome, error) {
	loc, degraded := locations.get(ctx, r.ProviderID())

	flags := p.detector.Evaluate(r, fraud.History{Customer: history, ProviderLocation: loc})
	p.observer.RecordFlags(flags)

	decision, err := p.cases.Attach(ctx, r.CustomerID(), r, flags)
	if err != nil {
		p.observer.RecordDetectionFailure(stageCase)
		return nil, errs.Wrap(err, "failed to feed flags into case manager")
	}

	if len(flags) > 0 {
		slog.Info("fraud flags raised",
			"customer_id", r.CustomerID().String(),
			"redemption_id", r.ID().String(),
			"flags", fraud.Types(flags),
			"decision", decision.Decision.String())
	}
	return &DetectionOutcome{Flags: flags, Decision: decision, Degraded: degraded}, nil
}

// successors returns the stored redemptions that causally follow one of the
// arrivals within the detection lookback, in causal order. Their time-based
// signals may change once the arrivals are part of the timeline.
func (p *DetectionPipeline) successors(arrivals, history []*redemption.Redemption) []*redemption.Redemption {
	arrived := make(map[uuid.UUID]struct{}, len(arrivals))
	for _, a := range arrivals {
		arrived[a.ID()] = struct{}{}
	}

	var out []*redemption.Redemption
	for _, h := range history {
		if _, ok := arrived[h.ID()]; ok {
			continue
		}
		for _, a := range arrivals {
			if a.Precedes(h) && h.RedeemedAt().Sub(a.RedeemedAt()) <= p.lookback {
				out = append(out, h)
				break
			}
		}
	}
	redemption.SortCausal(out)
	return out
}

// reevaluate runs detection again for a stored redemption. Flags it already
// carried are not attached twice.
func (p *DetectionPipeline) reevaluate(ctx context.Context, r *redemption.Redemption, history []*redemption.Redemption, locations *providerLocations) Reevaluation {
	res := Reevaluation{Redemption: r}
	out, err := p.evaluate(ctx, r, history, locations)
	if err != nil {
		slog.Warn("re-evaluation of later redemption failed",
			"customer_id", r.CustomerID().String(),
			"redemption_id", r.ID().String(),
			"error", err.Error())
		res.Err = err
		return res
	}
	res.Flags, res.Decision = out.Flags, out.Decision
	return res
}

// providerLocations memoizes lookups for the duration of one detection run.
type providerLocations struct {
	p    *DetectionPipeline
	seen map[uuid.UUID]providerLookup
}

type providerLookup struct {
	loc    *geo.Point
	failed bool
}

func newProviderLocations(p *DetectionPipeline) *providerLocations {
	return &providerLocations{p: p, seen: map[uuid.UUID]providerLookup{}}
}

// get returns the provider's registered location. A failed lookup yields no
// location and reports degraded; a provider without coordinates is not a
// failure.
func (l *providerLocations) get(ctx context.Context, providerID uuid.UUID) (*geo.Point, bool) {
	if res, ok := l.seen[providerID]; ok {
		return res.loc, res.failed
	}

	lctx, cancel := withTimeout(ctx, l.p.settings.LookupTimeout)
	defer cancel()

	var res providerLookup
	profile, err := l.p.providers.GetProvider(lctx, providerID)
	if err != nil {
		l.p.observer.RecordDetectionFailure(stageProviderLookup)
		slog.Warn("provider lookup failed, skipping distance check",
			"provider_id", providerID.String(),
			"error", err.Error())
		res.failed = true
	} else {
		res.loc = profile.Location
	}
	l.seen[providerID] = res
	return res.loc, res.failed
}
