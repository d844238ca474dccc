package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Producer fetches the value behind a cache key. Producers are supplied per
// call; the cache imposes no schema on the produced value.
type Producer func(ctx context.Context) (any, error)

// Result is the synchronous outcome of Cache.Get.
type Result struct {
	// Value is the last known value for the key, valid only when Found
	Value any
	// Found reports whether the cache held a value to return immediately
	Found bool
	// Revalidating reports whether a producer call is outstanding
	Revalidating bool
}

// CacheSubscriber receives cache updates for a key: the current value (stale
// on failure) plus the producer error, nil on success.
type CacheSubscriber func(value any, err error)

type cacheEntry struct {
	value         any
	has           bool
	lastFetchedAt time.Time
	inflight      bool
}

// CacheOption customizes Cache construction.
type CacheOption func(*Cache)

// WithFreshFor sets the window during which a fetched value is served
// without a background refresh. Zero (the default) revalidates on every Get.
func WithFreshFor(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.freshFor = d
		}
	}
}

// WithCacheLogger overrides the logger.
func WithCacheLogger(logger Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheClock injects a custom clock (useful for tests).
func WithCacheClock(clock func() time.Time) CacheOption {
	return func(c *Cache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithCacheMetrics attaches hit/miss/revalidation counters.
func WithCacheMetrics(metrics *Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = metrics
	}
}

// Cache is a revalidating keyed fetch cache: Get returns the last known
// value immediately while refreshing it in the background, coalescing
// concurrent requests per key. Failed refreshes keep the stale value.
//
// The cache carries an epoch advanced by Purge (wired to Manager logout via
// Attach); producer completions from an older epoch never repopulate it.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	subs     map[string]map[int]CacheSubscriber
	nextSub  int
	epoch    uint64
	group    singleflight.Group
	freshFor time.Duration
	logger   Logger
	metrics  *Metrics
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: map[string]*cacheEntry{},
		subs:    map[string]map[int]CacheSubscriber{},
		logger:  defLogger{},
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Attach wires the cache to a manager: logout purges every entry and bumps
// the epoch so in-flight producers for the former user are discarded.
// Returns a detach function.
func (c *Cache) Attach(m *Manager) func() {
	return m.OnLogout(func() {
		c.Purge()
	})
}

// Get returns the cached value for key synchronously and, unless a producer
// call is already outstanding or the value is still fresh, starts a
// background refresh. Subscribers for the key are notified when the refresh
// settles.
func (c *Cache) Get(ctx context.Context, key string, producer Producer) Result {
	c.mu.Lock()

	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}

	result := Result{Value: e.value, Found: e.has}
	if c.metrics != nil {
		c.metrics.ObserveCacheLookup(e.has)
	}

	if e.inflight {
		// request coalescing: the outstanding call serves this caller too
		result.Revalidating = true
		if c.metrics != nil {
			c.metrics.ObserveCacheCoalesced()
		}
		c.mu.Unlock()
		return result
	}

	if e.has && c.freshFor > 0 && c.now().Sub(e.lastFetchedAt) < c.freshFor {
		c.mu.Unlock()
		return result
	}

	e.inflight = true
	result.Revalidating = true
	epoch := c.epoch
	if c.metrics != nil {
		c.metrics.ObserveCacheRevalidation()
	}
	c.wg.Add(1)
	c.mu.Unlock()

	// the refresh outlives the requesting caller: a view unmounting must not
	// abort a fill that the next consumer would use. Logout (epoch) and
	// invalidation are the only discard paths.
	go c.fetch(context.WithoutCancel(ctx), key, e, epoch, producer)

	return result
}

// Subscribe registers fn for updates to key and returns an unsubscribe
// function. Subscriptions survive invalidation; they are keyed interest, not
// cached data.
func (c *Cache) Subscribe(key string, fn CacheSubscriber) func() {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	if c.subs[key] == nil {
		c.subs[key] = map[int]CacheSubscriber{}
	}
	c.subs[key][id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if subs, ok := c.subs[key]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(c.subs, key)
			}
		}
		c.mu.Unlock()
	}
}

// Invalidate drops the entry for key; the next Get treats it as uncached.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.group.Forget(key)
	c.mu.Unlock()
}

// InvalidatePrefix drops every entry whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.InvalidateFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// InvalidateFunc drops every entry whose key matches the predicate.
func (c *Cache) InvalidateFunc(pred func(key string) bool) {
	if pred == nil {
		return
	}

	c.mu.Lock()
	for key := range c.entries {
		if pred(key) {
			delete(c.entries, key)
			c.group.Forget(key)
		}
	}
	c.mu.Unlock()
}

// Purge drops every entry and advances the epoch: results of producer calls
// already in flight are discarded instead of repopulating the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	for key := range c.entries {
		c.group.Forget(key)
	}
	c.entries = map[string]*cacheEntry{}
	c.epoch++
	c.mu.Unlock()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until all outstanding producer calls settle. Test helper.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) fetch(ctx context.Context, key string, e *cacheEntry, epoch uint64, producer Producer) {
	defer c.wg.Done()

	value, err, _ := c.group.Do(key, func() (any, error) {
		return producer(ctx)
	})

	c.mu.Lock()

	// the entry pointer pins the fill to the exact entry that requested it;
	// an invalidate-then-get recreates the entry and orphans this result
	if current, ok := c.entries[key]; !ok || current != e || c.epoch != epoch {
		// invalidated or purged while in flight: the result belongs to a
		// session that no longer exists
		c.mu.Unlock()
		c.logger.Debug("discarding stale cache fill", "key", key)
		return
	}

	e.inflight = false

	if err != nil {
		// keep stale-but-possibly-useful data, surface the failure
		err = wrapProducerFailure(key, err)
		value = e.value
		if c.metrics != nil {
			c.metrics.ObserveCacheFailure()
		}
	} else {
		e.value = value
		e.has = true
		e.lastFetchedAt = c.now()
	}

	subs := make([]CacheSubscriber, 0, len(c.subs[key]))
	for _, fn := range c.subs[key] {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(value, err)
	}
}
