// Package cache provides a size-bounded cache whose entries expire after a
// fixed time-to-live.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Clock tells the cache what time it is. [time.Now] carries a monotonic
// reading, so ages measured with it are unaffected by wall clock jumps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real clock.
var SystemClock Clock = systemClock{}

type entry[V any] struct {
	value  V
	stored time.Time
}

// TTL is a cache keyed by string whose entries are treated as absent once
// they are older than the configured time-to-live.
//
// It is safe for concurrent use.
type TTL[V any] struct {
	mu    sync.Mutex
	inner *lru.Cache[string, entry[V]]
	ttl   time.Duration
	clock Clock
}

// New creates a cache holding at most size entries for ttl each.
func New[V any](size int, ttl time.Duration, clock Clock) (*TTL[V], error) {
	inner, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}

	return &TTL[V]{
		inner: inner,
		ttl:   ttl,
		clock: clock,
	}, nil
}

// Get returns the value for key if it was set less than the TTL ago.
// Expired entries are evicted on the way out.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.inner.Get(key)
	if !ok {
		return zero, false
	}
	if c.clock.Now().Sub(e.stored) >= c.ttl {
		c.inner.Remove(key)
		return zero, false
	}

	return e.value, true
}

// Set stores value under key, restarting its TTL.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inner.Add(key, entry[V]{value: value, stored: c.clock.Now()})
}

// Expire drops key regardless of its age.
func (c *TTL[V]) Expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inner.Remove(key)
}

// Purge drops every entry.
func (c *TTL[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inner.Purge()
}

// Len counts the stored entries, including ones that have expired but not
// yet been read.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.inner.Len()
}
