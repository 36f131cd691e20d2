package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"toaletna-api/internal/cache"
	"toaletna-api/internal/domain/geo"
	"toaletna-api/internal/domain/model"
	"toaletna-api/internal/domain/repository"
)

// CoordinatorConfig holds the fetch coordinator tunables.
type CoordinatorConfig struct {
	// MinFetchInterval is the per-region rate limit: a second store fetch
	// for the same key inside this interval fails fast with ErrRateLimited.
	MinFetchInterval time.Duration
	// DebounceDelay is the default wait applied by RequestRegion before a
	// viewport change is allowed to trigger a fetch.
	DebounceDelay time.Duration
}

// DefaultCoordinatorConfig returns the production tunables.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MinFetchInterval: 10 * time.Second,
		DebounceDelay:    300 * time.Millisecond,
	}
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	d := DefaultCoordinatorConfig()
	if c.MinFetchInterval <= 0 {
		c.MinFetchInterval = d.MinFetchInterval
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = d.DebounceDelay
	}
	return c
}

// inflightFetch is the shared pending result for one region key. Every
// concurrent caller of the same key waits on done and then reads the same
// settled outcome.
type inflightFetch struct {
	done    chan struct{}
	toilets []model.Toilet
	err     error
}

// Stats extends the cache snapshot with the in-flight request count and the
// number of region keys currently holding a rate-limit stamp.
type Stats struct {
	Cache    cache.Stats `json:"cache"`
	InFlight int         `json:"in_flight"`
	RateKeys int         `json:"rate_keys"`
}

// FetchCoordinator sits between the region cache and the point store. It
// guarantees at most one outbound fetch per region key, applies the per-key
// rate limit, and degrades to stale cache when the store fails or reports
// quota exhaustion.
type FetchCoordinator struct {
	store repository.ToiletsRepository
	cache *cache.RegionCache
	cfg   CoordinatorConfig
	now   func() time.Time

	mu          sync.Mutex
	inflight    map[string]*inflightFetch
	lastAttempt map[string]time.Time

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewFetchCoordinator wires the coordinator. A nil clock means time.Now.
func NewFetchCoordinator(store repository.ToiletsRepository, regionCache *cache.RegionCache, cfg CoordinatorConfig, clock func() time.Time) *FetchCoordinator {
	if clock == nil {
		clock = time.Now
	}
	return &FetchCoordinator{
		store:       store,
		cache:       regionCache,
		cfg:         cfg.withDefaults(),
		now:         clock,
		inflight:    make(map[string]*inflightFetch),
		lastAttempt: make(map[string]time.Time),
	}
}

// GetRegion returns the records for the viewport, served from cache when
// coverage is fresh, otherwise fetched through the single-flight path.
// The returned source tells the caller whether the data is fresh, cached,
// or a degraded stale serve.
func (c *FetchCoordinator) GetRegion(ctx context.Context, bounds model.BoundingBox) ([]model.Toilet, model.ResultSource, error) {
	if cached, ok := c.cache.Lookup(bounds); ok {
		return cached, model.SourceCache, nil
	}

	key := geo.RegionKey(bounds)
	snapped := geo.SnapBounds(bounds)

	c.mu.Lock()
	if f, ok := c.inflight[key]; ok {
		// Fan-in: attach to the fetch already under way for this key.
		c.mu.Unlock()
		return c.await(ctx, f, bounds)
	}

	if last, ok := c.lastAttempt[key]; ok && c.now().Sub(last) < c.cfg.MinFetchInterval {
		c.mu.Unlock()
		return nil, "", fmt.Errorf("region %s: %w", key, model.ErrRateLimited)
	}

	f := &inflightFetch{done: make(chan struct{})}
	c.inflight[key] = f
	c.lastAttempt[key] = c.now()
	c.mu.Unlock()

	toilets, err := c.store.FetchInBounds(ctx, snapped.West, snapped.South, snapped.East, snapped.North)
	if err == nil {
		toilets = dropMalformed(toilets)
		c.cache.Store(key, toilets, snapped)
	}

	f.toilets = toilets
	f.err = err
	c.mu.Lock()
	delete(c.inflight, key)
	c.pruneStampsLocked()
	c.mu.Unlock()
	close(f.done)

	if err != nil {
		return c.staleFallback(bounds, key, err)
	}
	return filterToBounds(toilets, bounds), model.SourceFresh, nil
}

// await blocks on an in-flight fetch and applies the same settlement rules
// as the issuing caller, so every waiter observes one source of truth.
func (c *FetchCoordinator) await(ctx context.Context, f *inflightFetch, bounds model.BoundingBox) ([]model.Toilet, model.ResultSource, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-f.done:
	}
	if f.err != nil {
		return c.staleFallback(bounds, geo.RegionKey(bounds), f.err)
	}
	return filterToBounds(f.toilets, bounds), model.SourceFresh, nil
}

// staleFallback serves expired-but-usable cache after a store failure.
// Quota exhaustion and plain I/O failures both land here; only a hard miss
// propagates a categorized error.
func (c *FetchCoordinator) staleFallback(bounds model.BoundingBox, key string, cause error) ([]model.Toilet, model.ResultSource, error) {
	if stale, ok := c.cache.StaleLookup(bounds); ok {
		log.Printf("region %s: store fetch failed, serving stale cache: %v", key, cause)
		return stale, model.SourceStale, nil
	}
	if errors.Is(cause, model.ErrQuotaExhausted) {
		return nil, "", fmt.Errorf("%w: %w", model.ErrUnavailable, cause)
	}
	return nil, "", fmt.Errorf("%w: region %s: %w", model.ErrUnavailable, key, cause)
}

// RequestRegion is the debounced caller-facing entry point. A later call
// within the delay window supersedes this one, matching a map pan gesture
// where only the final viewport matters. The result is delivered through fn
// on a timer goroutine; the returned handle cancels a not-yet-issued request.
// Once a fetch has started it is allowed to complete and populate the cache.
func (c *FetchCoordinator) RequestRegion(ctx context.Context, bounds model.BoundingBox, delay time.Duration, fn func([]model.Toilet, model.ResultSource, error)) (cancel func()) {
	if delay <= 0 {
		delay = c.cfg.DebounceDelay
	}

	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()

	if c.debounceTimer != nil {
		c.debounceTimer.Stop() // superseded request is simply never issued
	}
	timer := time.AfterFunc(delay, func() {
		toilets, source, err := c.GetRegion(ctx, bounds)
		fn(toilets, source, err)
	})
	c.debounceTimer = timer

	return func() { timer.Stop() }
}

// Invalidate drops every cache entry whose coverage contains the point.
func (c *FetchCoordinator) Invalidate(pos model.LatLng) {
	c.cache.Invalidate(pos)
}

// InvalidateAll clears the cache wholesale.
func (c *FetchCoordinator) InvalidateAll() {
	c.cache.InvalidateAll()
}

// pruneStampsLocked drops rate-limit stamps that no longer gate anything,
// so the map does not grow with every region key ever requested.
func (c *FetchCoordinator) pruneStampsLocked() {
	now := c.now()
	for k, t := range c.lastAttempt {
		if now.Sub(t) >= c.cfg.MinFetchInterval {
			delete(c.lastAttempt, k)
		}
	}
}

// Stats snapshots cache state plus the number of in-flight fetches.
func (c *FetchCoordinator) Stats() Stats {
	c.mu.Lock()
	inFlight := len(c.inflight)
	rateKeys := len(c.lastAttempt)
	c.mu.Unlock()
	return Stats{Cache: c.cache.Stats(), InFlight: inFlight, RateKeys: rateKeys}
}

// dropMalformed removes records without usable coordinates; a bad row never
// fails the whole region fetch.
func dropMalformed(toilets []model.Toilet) []model.Toilet {
	kept := make([]model.Toilet, 0, len(toilets))
	for _, t := range toilets {
		if t.HasValidLocation() && !t.Deleted {
			kept = append(kept, t)
		}
	}
	return kept
}

func filterToBounds(toilets []model.Toilet, bounds model.BoundingBox) []model.Toilet {
	filtered := make([]model.Toilet, 0, len(toilets))
	for _, t := range toilets {
		if bounds.Contains(t.ToLatLng()) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
