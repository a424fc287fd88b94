//go:build unit

package commands_test

import (
	"testing"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra/lock"
	"redemption-guard/internal/infra/memstore"
	"redemption-guard/internal/pkg/clock"
	"redemption-guard/internal/pkg/geo"
	"redemption-guard/internal/usecase/commands"
	"redemption-guard/internal/usecase/shared"
	"redemption-guard/tests/common/builder"

	"github.com/google/uuid"
)

var (
	berlin = geo.Point{Lat: 52.52, Lng: 13.405}
	munich = geo.Point{Lat: 48.137, Lng: 11.575}
)

func testSettings() commands.Settings {
	return commands.Settings{
		HistoryLookback:  24 * time.Hour,
		LookupTimeout:    time.Second,
		DetectionTimeout: 2 * time.Second,
		MaxClockSkew:     5 * time.Minute,
		AttachMaxRetries: 3,
		ReconcileWorkers: 4,
	}
}

func testThresholds() fraud.Thresholds {
	return fraud.Thresholds{
		VelocityWindow:        time.Hour,
		VelocityLimit:         5,
		RapidInterval:         30 * time.Second,
		MaxSpeedKmh:           1000,
		MaxProviderDistanceKm: 50,
		LocationJitterKm:      1,
	}
}

// harness wires the command side over the in-memory store.
type harness struct {
	store      *memstore.Store
	uow        shared.UnitOfWork
	dir        *memstore.Directory
	clock      *clock.MockClock
	cases      commands.FraudCaseCommands
	detection  *commands.DetectionPipeline
	recorder   commands.RedemptionCommands
	reconciler commands.ReconcileCommands

	voucherID  uuid.UUID
	providerID uuid.UUID
}

type harnessOption func(*harnessDeps)

type harnessDeps struct {
	uow       shared.UnitOfWork
	limits    shared.VoucherLimitsProvider
	providers shared.ProviderLocationProvider
	observer  shared.Observer
	settings  commands.Settings
}

func withLimits(l shared.VoucherLimitsProvider) harnessOption {
	return func(d *harnessDeps) { d.limits = l }
}

func withProviders(p shared.ProviderLocationProvider) harnessOption {
	return func(d *harnessDeps) { d.providers = p }
}

func withObserver(o shared.Observer) harnessOption {
	return func(d *harnessDeps) { d.observer = o }
}

func withUoW(wrap func(shared.UnitOfWork) shared.UnitOfWork) harnessOption {
	return func(d *harnessDeps) { d.uow = wrap(d.uow) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	store := memstore.New()
	dir := memstore.NewDirectory()
	h := &harness{
		store:      store,
		dir:        dir,
		clock:      clock.NewMockClock(builder.BaseTime.Add(12 * time.Hour)),
		voucherID:  uuid.New(),
		providerID: uuid.New(),
	}
	dir.PutVoucher(h.voucherID, redemption.Limits{MaxRedemptions: 1000, MaxRedemptionsPerUser: 100})
	loc := berlin
	dir.PutProvider(shared.ProviderProfile{ID: h.providerID, Name: "Test Provider", Location: &loc})

	deps := &harnessDeps{
		uow:       memstore.NewUnitOfWork(store),
		limits:    dir,
		providers: dir,
		settings:  testSettings(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	h.uow = deps.uow
	h.cases = commands.NewFraudCaseUseCase(deps.uow, h.clock, deps.observer, deps.settings)
	h.detection = commands.NewDetectionPipeline(
		deps.uow, deps.providers, lock.NewKeyedMutex(),
		fraud.NewDetector(testThresholds()), h.cases, deps.observer, deps.settings,
	)
	h.recorder = commands.NewRedemptionUseCase(deps.uow, deps.limits, h.detection, h.clock, deps.observer, deps.settings)
	h.reconciler = commands.NewReconcileUseCase(deps.uow, deps.limits, h.detection, h.clock, deps.observer, deps.settings)
	return h
}

// request builds a redemption request against the harness voucher and provider.
func (h *harness) request(customerID uuid.UUID, offset time.Duration, loc *geo.Point) commands.RecordRequest {
	b := builder.NewRedemptionBuilder().
		ForCustomer(customerID).
		ForVoucher(h.voucherID).
		AtProvider(h.providerID).
		At(offset)
	if loc != nil {
		b.AtLocation(loc.Lat, loc.Lng)
	}
	return b.BuildRequest()
}
