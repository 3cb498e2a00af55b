// Package cache implements the client-side fetch/cache coordinator: it
// decides when to hit the network versus reuse stored data, persists results,
// and fans one fetched payload out to every caller.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"skycast.app/metrics"
	"skycast.app/store"
)

// DefaultTTL is the staleness threshold used when none is configured.
const DefaultTTL = 30 * time.Minute

// FetchFunc produces a fresh payload for a cache key. Supplied by the
// caller; the coordinator never knows what it is fetching.
type FetchFunc func(ctx context.Context) ([]byte, error)

// OnlineChecker reports whether the network is currently usable.
type OnlineChecker interface {
	IsOnline() bool
}

// Entry is one cached payload with the time it was fetched. The payload is
// nil only before the first successful fetch or load from the store.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Options configures a Coordinator.
type Options struct {
	Store     store.PersistentStore
	Online    OnlineChecker
	TTL       time.Duration
	KeyPrefix string
	Metrics   *metrics.CacheMetrics

	// Now overrides the clock; nil means time.Now. Tests use it to step
	// through the TTL window.
	Now func() time.Time
}

// Coordinator owns the cached payloads, their timestamps, and the policy for
// when to refetch versus serve cached data. One coordinator serves one data
// kind; keys distinguish locations within it.
type Coordinator struct {
	store   store.PersistentStore
	online  OnlineChecker
	ttl     time.Duration
	prefix  string
	metrics *metrics.CacheMetrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	loaded  map[string]bool
	group   singleflight.Group
}

func NewCoordinator(opts Options) *Coordinator {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Coordinator{
		store:   opts.Store,
		online:  opts.Online,
		ttl:     ttl,
		prefix:  opts.KeyPrefix,
		metrics: opts.Metrics,
		now:     now,
		entries: make(map[string]Entry),
		loaded:  make(map[string]bool),
	}
}

// GetData returns the payload for key, fetching only when the cached value
// is stale and the network is usable.
//
// Policy, in order:
//  1. Fresh payload in cache: return it, no fetch, no mutation.
//  2. Offline: return whatever is cached (possibly stale, possibly nil),
//     never touch the network.
//  3. Otherwise fetch. Success overwrites the entry and persists it;
//     failure leaves the entry untouched and returns the previous payload
//     together with the error so callers can surface the failure while
//     still showing last-known data.
//
// Concurrent calls for the same key share one in-flight fetch.
func (c *Coordinator) GetData(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if entry, fresh := c.lookup(ctx, key); fresh {
		if c.metrics != nil {
			c.metrics.RecordHit()
		}
		return entry.Payload, nil
	}

	if !c.online.IsOnline() {
		entry, _ := c.lookup(ctx, key)
		slog.Debug("offline, serving cached payload", "key", key, "has_payload", entry.Payload != nil)
		return entry.Payload, nil
	}

	return c.sharedFetch(ctx, key, fetch, false)
}

// ForceRefresh fetches regardless of how fresh the cached entry is. The
// entry is only replaced on success; a failed forced fetch leaves both the
// in-memory and persisted copy intact, exactly like a regular refetch, so a
// later offline read still has data to serve. Offline, no fetch happens and
// the cached payload is returned as-is.
func (c *Coordinator) ForceRefresh(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if !c.online.IsOnline() {
		entry, _ := c.lookup(ctx, key)
		slog.Debug("offline, skipping forced refresh", "key", key, "has_payload", entry.Payload != nil)
		return entry.Payload, nil
	}

	return c.sharedFetch(ctx, key, fetch, true)
}

func (c *Coordinator) sharedFetch(ctx context.Context, key string, fetch FetchFunc, force bool) ([]byte, error) {
	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have completed a fetch while this one waited
		// on the flight group.
		if !force {
			if entry, fresh := c.lookup(ctx, key); fresh {
				return []byte(entry.Payload), nil
			}
		}

		if c.metrics != nil {
			c.metrics.RecordMiss()
		}

		start := c.now()
		payload, fetchErr := fetch(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		if c.metrics != nil {
			c.metrics.RecordFetchDuration(c.now().Sub(start).Seconds())
		}

		c.update(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		// A failed refresh never destroys previously good data.
		entry, _ := c.lookup(ctx, key)
		return entry.Payload, err
	}

	return result.([]byte), nil
}

// Peek returns the cached entry for key without any fetch or staleness
// decision.
func (c *Coordinator) Peek(ctx context.Context, key string) (Entry, bool) {
	entry, _ := c.lookup(ctx, key)
	return entry, entry.Payload != nil
}

// Invalidate drops the in-memory and persisted entry for key, forcing the
// next GetData to fetch.
func (c *Coordinator) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.loaded[key] = true
	c.mu.Unlock()

	if err := c.store.Delete(ctx, c.storeKey(key)); err != nil {
		slog.Warn("failed to delete persisted cache entry", "error", err, "key", key)
	}
}

// Reset drops every in-memory entry. Persisted entries are the store
// owner's concern; the API clears the store alongside.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	c.loaded = make(map[string]bool)
}

// Stats reports hit/miss counters for this coordinator's cache kind.
func (c *Coordinator) Stats() metrics.Stats {
	if c.metrics == nil {
		return metrics.Stats{}
	}
	return c.metrics.GetStats()
}

// lookup returns the entry for key, lazily loading it from the persistent
// store on first access, and reports whether it is fresh.
func (c *Coordinator) lookup(ctx context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded[key] {
		c.loaded[key] = true
		if blob, found := c.store.Load(ctx, c.storeKey(key)); found {
			var entry Entry
			if err := json.Unmarshal(blob, &entry); err != nil {
				slog.Warn("discarding unreadable persisted cache entry", "error", err, "key", key)
			} else {
				c.entries[key] = entry
			}
		}
	}

	entry := c.entries[key]
	fresh := entry.Payload != nil && c.now().Sub(entry.FetchedAt) < c.ttl
	return entry, fresh
}

// update overwrites the entry for key and persists it best-effort.
func (c *Coordinator) update(ctx context.Context, key string, payload []byte) {
	entry := Entry{
		Payload:   payload,
		FetchedAt: c.now(),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.loaded[key] = true
	c.mu.Unlock()

	blob, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("failed to serialize cache entry", "error", err, "key", key)
		return
	}
	if err := c.store.Save(ctx, c.storeKey(key), blob); err != nil {
		slog.Warn("failed to persist cache entry", "error", err, "key", key)
	}
}

func (c *Coordinator) storeKey(key string) string {
	return c.prefix + key
}
