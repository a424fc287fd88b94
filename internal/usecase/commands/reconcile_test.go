//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/usecase/commands"
	"redemption-guard/internal/usecase/shared"
	sharedmock "redemption-guard/tests/mock/shared"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReconcile(t *testing.T) {
	t.Run("offline order is corrected before detection", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		// online reference: B in Berlin, then A in Munich a minute later
		online := uuid.New()
		resB, err := h.recorder.Record(ctx, h.request(online, time.Hour, &berlin))
		require.NoError(t, err)
		resA, err := h.recorder.Record(ctx, h.request(online, time.Hour+time.Minute, &munich))
		require.NoError(t, err)

		// same events uploaded offline, out of order
		offline := uuid.New()
		a := h.request(offline, time.Hour+time.Minute, &munich)
		b := h.request(offline, time.Hour, &berlin)
		res, err := h.reconciler.Reconcile(ctx, offline, []commands.RecordRequest{a, b})
		require.NoError(t, err)

		require.Equal(t, 2, res.Count(commands.ItemRecorded))
		require.Len(t, res.Replayed, 2)
		assert.Equal(t, res.Items[1].Redemption.ID(), res.Replayed[0], "earlier redemption replays first")

		ignoreDetails := cmpopts.IgnoreFields(fraud.Flag{}, "Details", "Message")
		if diff := cmp.Diff(resA.Flags, res.Items[0].Flags, ignoreDetails); diff != "" {
			t.Errorf("flags for A differ from online order (-online +offline):\n%s", diff)
		}
		if diff := cmp.Diff(resB.Flags, res.Items[1].Flags, ignoreDetails, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("flags for B differ from online order (-online +offline):\n%s", diff)
		}
		assert.Contains(t, fraud.Types(res.Items[0].Flags), fraud.FlagLocationAnomaly)
		assert.Equal(t, resA.Decision.Decision, res.Items[0].Decision.Decision)

		for _, it := range res.Items {
			assert.True(t, it.Synced)
			require.NotNil(t, it.Redemption)
			assert.True(t, it.Redemption.IsOffline())
		}
	})

	t.Run("duplicates within the batch", func(t *testing.T) {
		h := newHarness(t)
		customer := uuid.New()
		req := h.request(customer, 0, nil)

		res, err := h.reconciler.Reconcile(context.Background(), customer, []commands.RecordRequest{req, req})
		require.NoError(t, err)

		assert.Equal(t, commands.ItemRecorded, res.Items[0].Status)
		assert.Equal(t, commands.ItemDuplicate, res.Items[1].Status)
		assert.Equal(t, res.Items[0].Redemption.ID(), res.Items[1].Redemption.ID())
		assert.Len(t, res.Replayed, 1)

		voucher, _ := h.store.Count(h.voucherID, customer)
		assert.Equal(t, 1, voucher)
	})

	t.Run("records of another customer are rejected", func(t *testing.T) {
		h := newHarness(t)
		customer := uuid.New()
		foreign := h.request(uuid.New(), 0, nil)
		own := h.request(customer, time.Minute, nil)

		res, err := h.reconciler.Reconcile(context.Background(), customer, []commands.RecordRequest{foreign, own})
		require.NoError(t, err)

		assert.Equal(t, commands.ItemRejected, res.Items[0].Status)
		assert.ErrorIs(t, res.Items[0].Err, commands.ErrForeignCustomer)
		assert.Equal(t, commands.ItemRecorded, res.Items[1].Status)
	})

	t.Run("invalid and over-limit items are rejected individually", func(t *testing.T) {
		h := newHarness(t)
		customer := uuid.New()
		h.dir.PutVoucher(h.voucherID, redemption.Limits{MaxRedemptions: 10, MaxRedemptionsPerUser: 1})

		bad := h.request(customer, 0, nil)
		bad.Code = ""
		first := h.request(customer, time.Minute, nil)
		second := h.request(customer, 2*time.Minute, nil)

		res, err := h.reconciler.Reconcile(context.Background(), customer, []commands.RecordRequest{bad, first, second})
		require.NoError(t, err)

		assert.Equal(t, commands.ItemRejected, res.Items[0].Status)
		assert.True(t, errs.Is(res.Items[0].Err, errs.ErrValidation))
		assert.Equal(t, commands.ItemRecorded, res.Items[1].Status)
		assert.Equal(t, commands.ItemRejected, res.Items[2].Status)
		assert.True(t, errs.Is(res.Items[2].Err, errs.ErrLimitExceeded))
	})

	t.Run("re-running a reconciled batch changes nothing", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		customer := uuid.New()
		batch := []commands.RecordRequest{
			h.request(customer, 0, &berlin),
			h.request(customer, time.Minute, &berlin),
		}

		first, err := h.reconciler.Reconcile(ctx, customer, batch)
		require.NoError(t, err)
		require.Equal(t, 2, first.Count(commands.ItemRecorded))
		recorded := first.Items[0].Redemption

		h.clock.Add(time.Hour)
		second, err := h.reconciler.Reconcile(ctx, customer, batch)
		require.NoError(t, err)

		assert.Equal(t, 2, second.Count(commands.ItemDuplicate))
		assert.Empty(t, second.Replayed)
		require.NotNil(t, second.Items[0].Redemption.SyncedAt())
		assert.True(t, second.Items[0].Redemption.SyncedAt().Before(h.clock.Now()))
		assert.Equal(t, recorded.ID(), second.Items[0].Redemption.ID())

		voucher, _ := h.store.Count(h.voucherID, customer)
		assert.Equal(t, 2, voucher)
	})

	t.Run("degraded items stay unsynced until a later run", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		providers := sharedmock.NewMockProviderLocationProvider(ctrl)
		loc := berlin
		gomock.InOrder(
			providers.EXPECT().GetProvider(gomock.Any(), gomock.Any()).
				Return(nil, infra.NewRepoErr(infra.KindRetryable, "registry timeout")).
				Times(1),
			providers.EXPECT().GetProvider(gomock.Any(), gomock.Any()).
				Return(&shared.ProviderProfile{Location: &loc}, nil).
				Times(1),
		)
		h := newHarness(t, withProviders(providers))
		ctx := context.Background()
		customer := uuid.New()
		batch := []commands.RecordRequest{
			h.request(customer, 0, &munich),
			h.request(customer, 5*time.Second, &munich),
		}

		first, err := h.reconciler.Reconcile(ctx, customer, batch)
		require.NoError(t, err)
		for _, it := range first.Items {
			assert.True(t, it.DetectionDegraded)
			assert.False(t, it.Synced)
		}
		require.Equal(t, commands.DecisionOpened, first.Items[1].Decision.Decision)
		caseID := first.Items[1].Decision.Case.ID()
		auditBefore := len(h.store.FlagAudit())

		second, err := h.reconciler.Reconcile(ctx, customer, batch)
		require.NoError(t, err)
		assert.Equal(t, 2, second.Count(commands.ItemDuplicate))
		assert.Equal(t, []uuid.UUID{first.Items[0].Redemption.ID(), first.Items[1].Redemption.ID()}, second.Replayed)
		for _, it := range second.Items {
			assert.False(t, it.DetectionDegraded)
			assert.True(t, it.Synced)
			assert.Contains(t, fraud.Types(it.Flags), fraud.FlagDistantLocation)
		}

		// the flag evaluated on retry reaches the case once
		require.Equal(t, commands.DecisionAttached, second.Items[1].Decision.Decision)
		c := second.Items[1].Decision.Case
		assert.Equal(t, caseID, c.ID())
		assert.ElementsMatch(t,
			[]fraud.FlagType{fraud.FlagRapidRedemption, fraud.FlagDistantLocation},
			fraud.Types(c.Flags()))
		assert.Len(t, c.Flags(), 2)
		assert.Len(t, h.store.FlagAudit(), auditBefore+2, "one entry per redemption for the new flag")

		again, err := h.cases.Attach(ctx, customer, second.Items[1].Redemption, second.Items[1].Flags)
		require.NoError(t, err)
		assert.Equal(t, c.Version(), again.Case.Version())
		assert.Len(t, h.store.FlagAudit(), auditBefore+2)
	})

	t.Run("late arrival re-checks the stored redemption after it", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		customer := uuid.New()

		later, err := h.recorder.Record(ctx, h.request(customer, time.Hour+10*time.Second, nil))
		require.NoError(t, err)
		require.Empty(t, later.Flags)

		batch := []commands.RecordRequest{h.request(customer, time.Hour, nil)}
		res, err := h.reconciler.Reconcile(ctx, customer, batch)
		require.NoError(t, err)
		require.Equal(t, commands.ItemRecorded, res.Items[0].Status)
		assert.Empty(t, res.Items[0].Flags)

		require.Len(t, res.Reevaluated, 1)
		re := res.Reevaluated[0]
		require.NoError(t, re.Err)
		assert.Equal(t, later.Redemption.ID(), re.Redemption.ID())
		assert.Equal(t, []fraud.FlagType{fraud.FlagRapidRedemption}, fraud.Types(re.Flags))
		require.Equal(t, commands.DecisionOpened, re.Decision.Decision)
		assert.Equal(t, []uuid.UUID{later.Redemption.ID()}, re.Decision.Case.RedemptionIDs())

		audit := h.store.FlagAudit()
		require.Len(t, audit, 1)
		assert.Equal(t, later.Redemption.ID(), audit[0].RedemptionID)

		// nothing pending on a re-run, so nothing is re-checked
		rerun, err := h.reconciler.Reconcile(ctx, customer, batch)
		require.NoError(t, err)
		assert.Empty(t, rerun.Replayed)
		assert.Empty(t, rerun.Reevaluated)
	})

	t.Run("nil customer", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.reconciler.Reconcile(context.Background(), uuid.Nil, nil)
		assert.True(t, errs.Is(err, errs.ErrValidation))
	})

	t.Run("cancelled context", func(t *testing.T) {
		h := newHarness(t)
		customer := uuid.New()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.reconciler.Reconcile(ctx, customer, []commands.RecordRequest{h.request(customer, 0, nil)})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReconcileAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	batches := map[uuid.UUID][]commands.RecordRequest{}
	for range 5 {
		customer := uuid.New()
		batches[customer] = []commands.RecordRequest{
			h.request(customer, time.Minute, &berlin),
			h.request(customer, 0, &berlin),
		}
	}
	batches[uuid.Nil] = []commands.RecordRequest{h.request(uuid.New(), 0, nil)}

	results, err := h.reconciler.ReconcileAll(ctx, batches)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrValidation))

	assert.Len(t, results, 5)
	for customer, res := range results {
		assert.Equal(t, customer, res.CustomerID)
		assert.Equal(t, 2, res.Count(commands.ItemRecorded))
	}
	assert.NotContains(t, results, uuid.Nil)
}
