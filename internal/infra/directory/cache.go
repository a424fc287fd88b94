package directory

import (
	"context"
	"time"

	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// CachedProviders fronts a ProviderLocationProvider with a bounded,
// time-expiring LRU. Concurrent misses for the same provider share one lookup,
// which runs detached from any single caller and is bounded by loadTimeout.
// Failed lookups are not cached.
type CachedProviders struct {
	next        shared.ProviderLocationProvider
	cache       *expirable.LRU[uuid.UUID, shared.ProviderProfile]
	group       singleflight.Group
	loadTimeout time.Duration
}

func NewCachedProviders(next shared.ProviderLocationProvider, size int, ttl, loadTimeout time.Duration) *CachedProviders {
	if size <= 0 {
		size = 1
	}
	return &CachedProviders{
		next:        next,
		cache:       expirable.NewLRU[uuid.UUID, shared.ProviderProfile](size, nil, ttl),
		loadTimeout: loadTimeout,
	}
}

func (c *CachedProviders) GetProvider(ctx context.Context, providerID uuid.UUID) (*shared.ProviderProfile, error) {
	if p, ok := c.cache.Get(providerID); ok {
		return &p, nil
	}

	ch := c.group.DoChan(providerID.String(), func() (any, error) {
		lctx, cancel := c.loadContext(ctx)
		defer cancel()
		p, err := c.next.GetProvider(lctx, providerID)
		if err != nil {
			return nil, err
		}
		c.cache.Add(providerID, *p)
		return *p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p := res.Val.(shared.ProviderProfile)
		return &p, nil
	}
}

// loadContext keeps the caller's values but not its cancellation, so one
// caller giving up does not fail the others waiting on the same load.
func (c *CachedProviders) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.loadTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, c.loadTimeout)
}

// Invalidate drops a provider so the next lookup reloads it.
func (c *CachedProviders) Invalidate(providerID uuid.UUID) {
	c.cache.Remove(providerID)
}

func (c *CachedProviders) Len() int {
	return c.cache.Len()
}
