//go:build unit

package redemption_test

import (
	"strings"
	"testing"
	"time"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	name   string
	mutate func(*builder.RedemptionBuilder)
	errIs  error
}

func TestRedemption(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		b := builder.NewRedemptionBuilder().AtLocation(52.52, 13.405)
		actual, err := b.BuildDomain()
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, actual.ID())
		assert.Equal(t, b.CustomerID, actual.CustomerID())
		assert.Equal(t, b.Code, actual.Code().String())
		assert.Equal(t, builder.BaseTime, actual.RedeemedAt())
		assert.Equal(t, builder.BaseTime, actual.RecordedAt())
		assert.True(t, actual.Location().IsSet())
		assert.False(t, actual.IsOffline())
		assert.Nil(t, actual.SyncedAt())
		assert.False(t, actual.NeedsSync())
	})

	t.Run("validation", func(t *testing.T) {
		runCases(t, []testCase{
			{
				name:   "missing customer",
				mutate: func(b *builder.RedemptionBuilder) { b.CustomerID = uuid.Nil },
				errIs:  redemption.ErrMissingIdentifier,
			},
			{
				name:   "blank code",
				mutate: func(b *builder.RedemptionBuilder) { b.Code = "   " },
				errIs:  redemption.ErrEmptyCode,
			},
			{
				name:   "code at maximum length",
				mutate: func(b *builder.RedemptionBuilder) { b.Code = strings.Repeat("x", redemption.MaxCodeLength) },
			},
			{
				name:   "code too long",
				mutate: func(b *builder.RedemptionBuilder) { b.Code = strings.Repeat("x", redemption.MaxCodeLength+1) },
				errIs:  redemption.ErrCodeTooLong,
			},
			{
				name:   "missing redeemed at",
				mutate: func(b *builder.RedemptionBuilder) { b.RedeemedAt = time.Time{} },
				errIs:  redemption.ErrMissingRedeemedAt,
			},
			{
				name:   "inside clock skew",
				mutate: func(b *builder.RedemptionBuilder) { b.RedeemedAt = b.Now.Add(30 * time.Second) },
			},
			{
				name:   "beyond clock skew",
				mutate: func(b *builder.RedemptionBuilder) { b.RedeemedAt = b.Now.Add(2 * time.Minute) },
				errIs:  redemption.ErrRedeemedInFuture,
			},
			{
				name:   "latitude out of range",
				mutate: func(b *builder.RedemptionBuilder) { b.AtLocation(91, 0) },
				errIs:  redemption.ErrInvalidLocation,
			},
		})
	})

	t.Run("validation errors are marked", func(t *testing.T) {
		_, err := builder.NewRedemptionBuilder().WithCode("").BuildDomain()
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrValidation))
	})

	t.Run("code is trimmed", func(t *testing.T) {
		r, err := builder.NewRedemptionBuilder().WithCode("  ABC-1  ").BuildDomain()
		require.NoError(t, err)
		assert.Equal(t, "ABC-1", r.Code().String())
	})
}

func TestMarkSynced(t *testing.T) {
	r, err := builder.NewRedemptionBuilder().Offline().BuildDomain()
	require.NoError(t, err)
	require.True(t, r.NeedsSync())

	synced, err := r.MarkSynced(builder.BaseTime.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, synced.SyncedAt())
	assert.False(t, synced.NeedsSync())
	assert.Nil(t, r.SyncedAt(), "original must stay untouched")

	_, err = synced.MarkSynced(builder.BaseTime.Add(2 * time.Hour))
	assert.ErrorIs(t, err, redemption.ErrAlreadySynced)
}

func TestSortCausal(t *testing.T) {
	customer := uuid.New()
	late, err := builder.NewRedemptionBuilder().ForCustomer(customer).At(2 * time.Minute).BuildDomain()
	require.NoError(t, err)
	early, err := builder.NewRedemptionBuilder().ForCustomer(customer).At(time.Minute).BuildDomain()
	require.NoError(t, err)
	tieA, err := builder.NewRedemptionBuilder().ForCustomer(customer).At(3 * time.Minute).BuildDomain()
	require.NoError(t, err)
	tieB, err := builder.NewRedemptionBuilder().ForCustomer(customer).At(3 * time.Minute).BuildDomain()
	require.NoError(t, err)

	rs := []*redemption.Redemption{tieB, late, tieA, early}
	redemption.SortCausal(rs)

	assert.Equal(t, early.ID(), rs[0].ID())
	assert.Equal(t, late.ID(), rs[1].ID())
	// equal timestamps fall back to id order
	assert.True(t, rs[2].ID().String() < rs[3].ID().String())
}

func TestLimits(t *testing.T) {
	from := builder.BaseTime
	to := builder.BaseTime.Add(24 * time.Hour)
	l := redemption.Limits{MaxRedemptions: 10, MaxRedemptionsPerUser: 1, ValidFrom: &from, ValidTo: &to}

	assert.True(t, l.IsValidAt(from))
	assert.True(t, l.IsValidAt(to))
	assert.False(t, l.IsValidAt(from.Add(-time.Second)))
	assert.False(t, l.IsValidAt(to.Add(time.Second)))
	assert.True(t, redemption.Limits{}.IsValidAt(time.Time{}))
}

func TestLimitExceededError(t *testing.T) {
	err := error(&redemption.LimitExceededError{Scope: redemption.ScopePerUser, VoucherID: uuid.New(), Limit: 1})
	assert.True(t, errs.Is(err, errs.ErrLimitExceeded))
	assert.Contains(t, err.Error(), "per_user")
}

func runCases(t *testing.T, cases []testCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := builder.NewRedemptionBuilder()
			if tc.mutate != nil {
				tc.mutate(b)
			}
			actual, err := b.BuildDomain()

			if tc.errIs != nil {
				assert.ErrorIs(t, err, tc.errIs)
				assert.Nil(t, actual)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, actual)
			}
		})
	}
}
