package adapter

import (
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Cache names reported to Metrics.Invalidation.
const (
	cacheAdapters = "adapters"
	cacheServices = "services"
)

// instanceCache maps identifiers to constructed instances.
//
// mu guards bookkeeping only; construction runs outside the lock inside a
// per-key singleflight call. A stamp taken before construction lets an
// invalidation that happens mid-construction win: the finished instance is
// returned to the callers already waiting but never written to the map.
type instanceCache struct {
	mu       sync.RWMutex
	items    map[string]any
	epoch    uint64            // bumped by clear
	evicted  map[string]uint64 // bumped by remove while id is in flight
	inflight map[string]int    // keys with a running flight

	flights singleflight.Group

	// failures remembers recent construction failures. Nil when disabled.
	failures *expirable.LRU[string, error]
}

type cacheStamp struct {
	epoch     uint64
	evictions uint64
}

func newInstanceCache(failureTTL time.Duration, failureSize int) *instanceCache {
	c := &instanceCache{
		items:    make(map[string]any),
		evicted:  make(map[string]uint64),
		inflight: make(map[string]int),
	}
	if failureTTL > 0 {
		if failureSize <= 0 {
			failureSize = 256
		}
		c.failures = expirable.NewLRU[string, error](failureSize, nil, failureTTL)
	}
	return c
}

func (c *instanceCache) get(id string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	return v, ok
}

func (c *instanceCache) stamp(id string) cacheStamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cacheStamp{epoch: c.epoch, evictions: c.evicted[id]}
}

// storeIfCurrent writes v unless id was invalidated since st was taken.
func (c *instanceCache) storeIfCurrent(id string, v any, st cacheStamp) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != st.epoch || c.evicted[id] != st.evictions {
		return false
	}
	c.items[id] = v
	return true
}

// do runs fn at most once per id among concurrent callers.
func (c *instanceCache) do(id string, fn func() (any, error)) (any, error) {
	v, err, _ := c.flights.Do(id, func() (any, error) {
		c.mu.Lock()
		c.inflight[id]++
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			if c.inflight[id]--; c.inflight[id] <= 0 {
				delete(c.inflight, id)
				delete(c.evicted, id)
			}
			c.mu.Unlock()
		}()
		return fn()
	})
	return v, err
}

// remove drops id and reports whether it was cached.
// A flight for id that is still running will not be stored.
func (c *instanceCache) remove(id string) bool {
	c.mu.Lock()
	_, ok := c.items[id]
	delete(c.items, id)
	if c.inflight[id] > 0 {
		c.evicted[id]++
	} else {
		// Stamps are only taken inside a flight, so none is outstanding.
		delete(c.evicted, id)
	}
	c.mu.Unlock()

	c.flights.Forget(id)
	if c.failures != nil {
		c.failures.Remove(id)
	}
	return ok
}

// clear drops every entry and returns how many were cached.
func (c *instanceCache) clear() int {
	return len(c.drain())
}

// drain empties the cache and returns what was in it. Running flights are
// forgotten so the next caller starts a fresh construction.
func (c *instanceCache) drain() map[string]any {
	c.mu.Lock()
	items := c.items
	c.items = make(map[string]any)
	c.evicted = make(map[string]uint64)
	c.epoch++
	running := make([]string, 0, len(c.inflight))
	for id := range c.inflight {
		running = append(running, id)
	}
	c.mu.Unlock()

	for _, id := range running {
		c.flights.Forget(id)
	}
	if c.failures != nil {
		c.failures.Purge()
	}
	return items
}

func (c *instanceCache) ids() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// rememberFailure records err for id unless id was invalidated since st.
func (c *instanceCache) rememberFailure(id string, err error, st cacheStamp) {
	if c.failures == nil || c.stamp(id) != st {
		return
	}
	c.failures.Add(id, err)
}

// recentFailure returns a remembered failure for id, or nil.
func (c *instanceCache) recentFailure(id string) error {
	if c.failures == nil {
		return nil
	}
	err, _ := c.failures.Get(id)
	return err
}

func (c *instanceCache) failureCount() int {
	if c.failures == nil {
		return 0
	}
	return c.failures.Len()
}
