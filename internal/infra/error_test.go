//go:build unit

package infra_test

import (
	"errors"
	"testing"

	"redemption-guard/internal/infra"
	"redemption-guard/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWrapRepoErr(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		kind     []infra.RepositoryErrorKind
		expected infra.RepositoryErrorKind
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, expected: infra.KindDuplicateKey},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, expected: infra.KindForeignKeyViolated},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, expected: infra.KindRetryable},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, expected: infra.KindRetryable},
		{name: "other postgres error", err: &pgconn.PgError{Code: "42P01"}, expected: infra.KindDBFailure},
		{name: "plain error", err: errors.New("connection reset"), expected: infra.KindDBFailure},
		{name: "wrapped postgres error", err: errs.Wrap(&pgconn.PgError{Code: "23505"}, "insert"), expected: infra.KindDuplicateKey},
		{
			name:     "explicit kind wins",
			err:      &pgconn.PgError{Code: "23505"},
			kind:     []infra.RepositoryErrorKind{infra.KindVersionConflict},
			expected: infra.KindVersionConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := infra.WrapRepoErr("operation failed", tc.err, tc.kind...)

			assert.True(t, infra.IsKind(err, tc.expected))
			assert.Contains(t, err.Error(), "operation failed")
			assert.ErrorIs(t, err, tc.err, "the low-level cause stays reachable")
		})
	}

	t.Run("kind survives wrapping", func(t *testing.T) {
		err := errs.Wrap(infra.NewRepoErr(infra.KindNotFound, "voucher not found"), "lookup")
		assert.True(t, infra.IsKind(err, infra.KindNotFound))
		assert.False(t, infra.IsKind(err, infra.KindDBFailure))
	})

	t.Run("foreign errors have no kind", func(t *testing.T) {
		assert.False(t, infra.IsKind(errors.New("boom"), infra.KindDBFailure))
		assert.False(t, infra.IsKind(nil, infra.KindNotFound))
	})
}
