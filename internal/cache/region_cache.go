// Package cache implements the in-memory viewport region cache: it remembers
// which geographic coverage has already been fetched from the point store and
// answers whether a new viewport is already (fully or partially) covered.
package cache

import (
	"sort"
	"sync"
	"time"

	"toaletna-api/internal/domain/model"
)

// Config holds the cache tunables. Zero values are replaced by defaults.
type Config struct {
	// MaxEntries caps the entry count; oldest-fetch-first eviction beyond it.
	MaxEntries int
	// FreshWindow is the age within which entries are served routinely.
	FreshWindow time.Duration
	// HardCeiling is the age beyond which entries are never served, even in
	// degraded mode.
	HardCeiling time.Duration
	// CoveragePerEntry is the flat coverage score each overlapping entry
	// contributes during partial reassembly. Approximate, not geometric.
	CoveragePerEntry float64
	// CoverageThreshold is the minimum combined score for a reassembled hit.
	CoverageThreshold float64
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		MaxEntries:        64,
		FreshWindow:       30 * time.Minute,
		HardCeiling:       72 * time.Hour,
		CoveragePerEntry:  0.3,
		CoverageThreshold: 0.7,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxEntries <= 0 {
		c.MaxEntries = d.MaxEntries
	}
	if c.FreshWindow <= 0 {
		c.FreshWindow = d.FreshWindow
	}
	if c.HardCeiling <= 0 {
		c.HardCeiling = d.HardCeiling
	}
	if c.CoveragePerEntry <= 0 {
		c.CoveragePerEntry = d.CoveragePerEntry
	}
	if c.CoverageThreshold <= 0 {
		c.CoverageThreshold = d.CoverageThreshold
	}
	return c
}

// entry is one cached region fetch.
type entry struct {
	key       string
	toilets   []model.Toilet
	fetchedAt time.Time
	covered   model.BoundingBox
}

// EntryStats describes one cache entry for the debug endpoint.
type EntryStats struct {
	Key        string  `json:"key"`
	Records    int     `json:"records"`
	AgeSeconds float64 `json:"age_seconds"`
}

// Stats is the observability snapshot of the cache.
type Stats struct {
	Size    int          `json:"size"`
	Entries []EntryStats `json:"entries"`
}

// RegionCache is the process-local region cache. The clock is injected so
// freshness logic is deterministic under test.
type RegionCache struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs a RegionCache. A nil clock means time.Now.
func New(cfg Config, clock func() time.Time) *RegionCache {
	if clock == nil {
		clock = time.Now
	}
	return &RegionCache{
		cfg:     cfg.withDefaults(),
		now:     clock,
		entries: make(map[string]*entry),
	}
}

// Lookup returns the cached records for the requested bounds, filtered to
// those bounds, if coverage exists within the fresh window. The second
// return is false on a miss.
//
// A single entry whose covered box fully contains the request (edges
// included) is a hit. Failing that, overlapping fresh entries are stitched
// together: each contributes a flat coverage score and the de-duplicated
// union is served once the combined score clears the confidence threshold.
func (c *RegionCache) Lookup(bounds model.BoundingBox) ([]model.Toilet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(bounds, c.cfg.FreshWindow)
}

// StaleLookup ignores the fresh window but still enforces the hard staleness
// ceiling. Degraded-mode fallback only, never the routine read path.
func (c *RegionCache) StaleLookup(bounds model.BoundingBox) ([]model.Toilet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(bounds, c.cfg.HardCeiling)
}

func (c *RegionCache) lookupLocked(bounds model.BoundingBox, maxAge time.Duration) ([]model.Toilet, bool) {
	now := c.now()

	// Full-coverage path: prefer the newest containing entry.
	var best *entry
	for _, e := range c.entries {
		if now.Sub(e.fetchedAt) > maxAge {
			continue
		}
		if !e.covered.Covers(bounds) {
			continue
		}
		if best == nil || e.fetchedAt.After(best.fetchedAt) {
			best = e
		}
	}
	if best != nil {
		return filterToBounds(best.toilets, bounds), true
	}

	// Partial reassembly: a flat score per overlapping entry stands in for
	// real geometric coverage. Deliberately rough.
	score := 0.0
	var pieces []*entry
	for _, e := range c.entries {
		if now.Sub(e.fetchedAt) > maxAge {
			continue
		}
		if !e.covered.Intersects(bounds) {
			continue
		}
		score += c.cfg.CoveragePerEntry
		pieces = append(pieces, e)
	}
	if score < c.cfg.CoverageThreshold {
		return nil, false
	}

	seen := make(map[string]bool)
	var union []model.Toilet
	for _, e := range pieces {
		for _, t := range e.toilets {
			if seen[t.ID] {
				continue
			}
			if !bounds.Contains(t.ToLatLng()) {
				continue
			}
			seen[t.ID] = true
			union = append(union, t)
		}
	}
	return union, true
}

// Store inserts or replaces the entry for key with the current timestamp.
// The covered box may exceed the originally requested viewport when the
// fetch over-fetched for cache efficiency.
func (c *RegionCache) Store(key string, toilets []model.Toilet, covered model.BoundingBox) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		key:       key,
		toilets:   toilets,
		fetchedAt: c.now(),
		covered:   covered,
	}
	c.evictLocked()
}

// evictLocked drops oldest-fetched entries until the count fits MaxEntries.
func (c *RegionCache) evictLocked() {
	for len(c.entries) > c.cfg.MaxEntries {
		var oldest *entry
		for _, e := range c.entries {
			if oldest == nil || e.fetchedAt.Before(oldest.fetchedAt) {
				oldest = e
			}
		}
		delete(c.entries, oldest.key)
	}
}

// Invalidate removes every entry whose covered box contains the point.
// Called after insert/delete mutations at a known position.
func (c *RegionCache) Invalidate(pos model.LatLng) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.covered.Contains(pos) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// InvalidateAll clears the whole cache. Used when a mutation's affected
// region cannot be bounded.
func (c *RegionCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Stats snapshots entry count and per-entry age for diagnosis.
func (c *RegionCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{Size: len(c.entries)}
	for _, e := range c.entries {
		stats.Entries = append(stats.Entries, EntryStats{
			Key:        e.key,
			Records:    len(e.toilets),
			AgeSeconds: now.Sub(e.fetchedAt).Seconds(),
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool {
		return stats.Entries[i].Key < stats.Entries[j].Key
	})
	return stats
}

// filterToBounds narrows an over-fetched record list to the requested box.
func filterToBounds(toilets []model.Toilet, bounds model.BoundingBox) []model.Toilet {
	filtered := make([]model.Toilet, 0, len(toilets))
	for _, t := range toilets {
		if bounds.Contains(t.ToLatLng()) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
