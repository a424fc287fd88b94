//go:build unit

package fraudcase_test

import (
	"testing"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	high   = builder.Flag(fraud.FlagRapidRedemption, fraud.SeverityHigh)
	medium = builder.Flag(fraud.FlagVelocity, fraud.SeverityMedium)
	low    = builder.Flag(fraud.FlagDistantLocation, fraud.SeverityLow)
)

func TestShouldOpen(t *testing.T) {
	tests := []struct {
		name  string
		flags []fraud.Flag
		want  bool
	}{
		{name: "no flags"},
		{name: "single low", flags: []fraud.Flag{low}},
		{name: "single medium", flags: []fraud.Flag{medium}},
		{name: "medium and low", flags: []fraud.Flag{medium, low}},
		{name: "two medium", flags: []fraud.Flag{medium, builder.Flag(fraud.FlagDistantLocation, fraud.SeverityMedium)}, want: true},
		{name: "single high", flags: []fraud.Flag{high}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fraudcase.ShouldOpen(tt.flags))
		})
	}
}

func TestOpen(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		b := builder.NewCaseBuilder()
		c, err := b.BuildDomain()
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, c.ID())
		assert.Equal(t, fraudcase.StatusOpen, c.Status())
		assert.Equal(t, []uuid.UUID{b.RedemptionID}, c.RedemptionIDs())
		assert.Equal(t, int64(1), c.Version())
		assert.Equal(t, fraud.SeverityHigh, c.HighestSeverity())
		assert.Nil(t, c.ReopenedFrom())
	})

	t.Run("below threshold", func(t *testing.T) {
		_, err := builder.NewCaseBuilder().WithFlags(low).BuildDomain()
		assert.ErrorIs(t, err, fraudcase.ErrBelowThreshold)
	})

	t.Run("no flags", func(t *testing.T) {
		_, err := builder.NewCaseBuilder().WithFlags().BuildDomain()
		assert.ErrorIs(t, err, fraudcase.ErrNoFlags)
	})
}

func TestAttach(t *testing.T) {
	c, err := builder.NewCaseBuilder().BuildDomain()
	require.NoError(t, err)
	second := uuid.New()

	require.NoError(t, c.Attach(second, []fraud.Flag{medium}))
	assert.Len(t, c.RedemptionIDs(), 2)
	assert.Len(t, c.Flags(), 2)
	assert.Equal(t, int64(2), c.Version())

	t.Run("redemption ids stay a set", func(t *testing.T) {
		require.NoError(t, c.Attach(second, []fraud.Flag{low}))
		assert.Len(t, c.RedemptionIDs(), 2)
		assert.Len(t, c.Flags(), 3)
	})

	t.Run("empty flags", func(t *testing.T) {
		assert.ErrorIs(t, c.Attach(uuid.New(), nil), fraudcase.ErrNoFlags)
	})

	t.Run("resolved case is immutable", func(t *testing.T) {
		resolved, err := builder.NewCaseBuilder().BuildResolved()
		require.NoError(t, err)
		err = resolved.Attach(uuid.New(), []fraud.Flag{high})
		assert.ErrorIs(t, err, fraudcase.ErrCaseResolved)
		assert.True(t, errs.Is(err, errs.ErrInvalidTransition))
	})

	t.Run("accessors return copies", func(t *testing.T) {
		ids := c.RedemptionIDs()
		ids[0] = uuid.Nil
		assert.NotEqual(t, uuid.Nil, c.RedemptionIDs()[0])
	})
}

func TestLifecycle(t *testing.T) {
	now := builder.BaseTime

	t.Run("open, review, resolve", func(t *testing.T) {
		c, err := builder.NewCaseBuilder().BuildDomain()
		require.NoError(t, err)

		require.NoError(t, c.StartReview("  alice ", now.Add(time.Minute)))
		assert.Equal(t, fraudcase.StatusInReview, c.Status())
		require.NotNil(t, c.ReviewedBy())
		assert.Equal(t, "alice", *c.ReviewedBy())
		assert.Equal(t, int64(2), c.Version())

		a, err := fraudcase.NewAction(fraudcase.ActionVoidRedemption, "alice", map[string]any{"reason": "duplicate device"}, now.Add(2*time.Minute))
		require.NoError(t, err)
		require.NoError(t, c.Resolve([]fraudcase.Action{a}, now.Add(2*time.Minute)))
		assert.Equal(t, fraudcase.StatusResolved, c.Status())
		assert.NotNil(t, c.ResolvedAt())
		assert.Len(t, c.Actions(), 1)
		assert.Equal(t, int64(3), c.Version())
	})

	t.Run("invalid transitions", func(t *testing.T) {
		open, err := builder.NewCaseBuilder().BuildDomain()
		require.NoError(t, err)
		a, err := fraudcase.NewAction(fraudcase.ActionBlockCustomer, "bob", nil, now)
		require.NoError(t, err)

		err = open.Resolve([]fraudcase.Action{a}, now)
		assert.ErrorIs(t, err, fraudcase.ErrNotInReview)
		assert.True(t, errs.Is(err, errs.ErrInvalidTransition))
		assert.Equal(t, int64(1), open.Version())

		require.NoError(t, open.StartReview("bob", now))
		assert.ErrorIs(t, open.StartReview("carol", now), fraudcase.ErrNotOpen)
		assert.ErrorIs(t, open.Resolve(nil, now), fraudcase.ErrNoActions)
	})

	t.Run("blank reviewer", func(t *testing.T) {
		c, err := builder.NewCaseBuilder().BuildDomain()
		require.NoError(t, err)
		assert.ErrorIs(t, c.StartReview("  ", now), fraudcase.ErrEmptyReviewer)
		assert.Equal(t, fraudcase.StatusOpen, c.Status())
	})

	t.Run("unknown action type", func(t *testing.T) {
		_, err := fraudcase.NewAction("ban_everyone", "bob", nil, now)
		assert.ErrorIs(t, err, fraudcase.ErrInvalidActionType)
	})
}

func TestCheckVersion(t *testing.T) {
	c, err := builder.NewCaseBuilder().BuildDomain()
	require.NoError(t, err)

	assert.NoError(t, c.CheckVersion(1))
	err = c.CheckVersion(2)
	assert.ErrorIs(t, err, fraudcase.ErrStaleVersion)
	assert.True(t, errs.Is(err, errs.ErrVersionConflict))
}

func TestReopen(t *testing.T) {
	resolved, err := builder.NewCaseBuilder().BuildResolved()
	require.NoError(t, err)

	reopened, err := fraudcase.Reopen(resolved, "alice", builder.BaseTime.Add(time.Hour))
	require.NoError(t, err)

	assert.NotEqual(t, resolved.ID(), reopened.ID())
	require.NotNil(t, reopened.ReopenedFrom())
	assert.Equal(t, resolved.ID(), *reopened.ReopenedFrom())
	assert.Equal(t, fraudcase.StatusOpen, reopened.Status())
	assert.Equal(t, resolved.RedemptionIDs(), reopened.RedemptionIDs())
	assert.Empty(t, reopened.Actions())
	assert.Equal(t, int64(1), reopened.Version())
	assert.Equal(t, fraudcase.StatusResolved, resolved.Status())

	open, err := builder.NewCaseBuilder().BuildDomain()
	require.NoError(t, err)
	_, err = fraudcase.Reopen(open, "alice", builder.BaseTime)
	assert.ErrorIs(t, err, fraudcase.ErrNotResolved)
}

func TestOverlaps(t *testing.T) {
	c, err := builder.NewCaseBuilder().BuildDomain()
	require.NoError(t, err)

	assert.True(t, c.Overlaps([]fraud.FlagType{fraud.FlagVelocity, fraud.FlagRapidRedemption}))
	assert.False(t, c.Overlaps([]fraud.FlagType{fraud.FlagDistantLocation}))
	assert.False(t, c.Overlaps(nil))
}
