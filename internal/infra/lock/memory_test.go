//go:build unit

package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"redemption-guard/internal/infra/lock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes callers on the same key", func(t *testing.T) {
		m := lock.NewKeyedMutex()
		key := uuid.New()

		var (
			wg      sync.WaitGroup
			inside  atomic.Int32
			maxSeen atomic.Int32
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := m.Lock(context.Background(), key)
				require.NoError(t, err)
				defer unlock()

				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxSeen.Load())
		assert.Zero(t, m.Len(), "entries are dropped once released")
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		m := lock.NewKeyedMutex()
		unlockA, err := m.Lock(context.Background(), uuid.New())
		require.NoError(t, err)
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlockB, err := m.Lock(ctx, uuid.New())
		require.NoError(t, err)
		unlockB()
		assert.Equal(t, 1, m.Len())
	})

	t.Run("waiting honours context cancellation", func(t *testing.T) {
		m := lock.NewKeyedMutex()
		key := uuid.New()
		unlock, err := m.Lock(context.Background(), key)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = m.Lock(ctx, key)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		unlock() // second call is a no-op
		assert.Zero(t, m.Len())
	})
}
