// Package cache memoizes computed relationships per unordered pair of people
// and graph version.
//
// The cache is an explicitly constructed object; create one per process and
// pass it to the services that use it.
//
// A cache with a positive TTL owns a background goroutine that removes
// expired entries. It runs for the life of the process and cannot be
// stopped, so build such caches once at startup. Caches with a negative TTL
// start no goroutine and are the ones tests should create freely.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/persistorai/kinship/internal/metrics"
	"github.com/persistorai/kinship/internal/models"
)

// Defaults applied to zero Options fields.
const (
	DefaultMaxSize = 10000
	DefaultTTL     = 10 * time.Minute
)

// Options are the recognized cache settings. A negative TTL disables expiry.
type Options struct {
	MaxSize    int
	TTL        time.Duration
	TrackStats bool
}

// DefaultOptions returns the default cache settings.
func DefaultOptions() Options {
	return Options{MaxSize: DefaultMaxSize, TTL: DefaultTTL, TrackStats: true}
}

// Key identifies a cached pair. Low and High are the two person ids in
// ascending order, so (a, b) and (b, a) share one key.
type Key struct {
	Version string
	Low     string
	High    string
}

// NewKey builds the key for a pair of people within a graph version.
func NewKey(version, a, b string) Key {
	if b < a {
		a, b = b, a
	}

	return Key{Version: version, Low: a, High: b}
}

func (k Key) String() string {
	return k.Version + "\x1f" + k.Low + "\x1f" + k.High
}

// Pair holds both directions of a relationship: Forward is what Low is to
// High, Reverse what High is to Low.
type Pair struct {
	Forward *models.ComputedRelationship
	Reverse *models.ComputedRelationship
}

// Oriented returns the direction describing from relative to the other person.
func (p Pair) Oriented(k Key, from string) *models.ComputedRelationship {
	if from == k.Low {
		return p.Forward
	}

	return p.Reverse
}

type entry struct {
	pair         Pair
	insertedAt   time.Time
	lastAccessed atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
}

// RelationshipCache is a bounded, TTL'd LRU of relationship pairs. Concurrent
// misses for the same key are coalesced so only one computation runs.
//
// Thread Safety: safe for concurrent use.
type RelationshipCache struct {
	lru    *expirable.LRU[Key, *entry]
	flight singleflight.Group
	opts   Options
	log    *logrus.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a RelationshipCache. A positive TTL starts the expiry goroutine
// described in the package documentation.
func New(opts Options, log *logrus.Logger) *RelationshipCache {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}

	ttl := opts.TTL
	switch {
	case ttl == 0:
		ttl = DefaultTTL
		opts.TTL = ttl
	case ttl < 0:
		// expirable treats a non-positive TTL as "never expire".
		ttl = 0
	}

	c := &RelationshipCache{opts: opts, log: log}
	c.lru = expirable.NewLRU[Key, *entry](opts.MaxSize, c.onEvict, ttl)

	return c
}

// onEvict runs under the LRU lock; it must not call back into the cache.
func (c *RelationshipCache) onEvict(_ Key, _ *entry) {
	if !c.opts.TrackStats {
		return
	}

	c.evictions.Add(1)
	metrics.CacheEvictions.Inc()
}

// Get returns the cached pair for key. Expired entries are misses. A hit
// refreshes the entry's LRU position.
func (c *RelationshipCache) Get(key Key) (Pair, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.recordMiss()
		return Pair{}, false
	}

	e.lastAccessed.Store(time.Now().UnixNano())
	c.recordHit()

	return e.pair, true
}

// Add stores pair under key, evicting the least recently used entry when full.
func (c *RelationshipCache) Add(key Key, pair Pair) {
	now := time.Now()
	e := &entry{pair: pair, insertedAt: now}
	e.lastAccessed.Store(now.UnixNano())

	c.lru.Add(key, e)
}

// GetOrCompute returns the cached pair for key or runs compute once for all
// concurrent callers of the same key and caches its result. Errors are not
// cached. If coalescing itself misbehaves the caller's compute runs uncached.
func (c *RelationshipCache) GetOrCompute(key Key, compute func() (Pair, error)) (Pair, error) {
	if p, ok := c.Get(key); ok {
		return p, nil
	}

	val, err, _ := c.flight.Do(key.String(), func() (any, error) {
		// Double-check after winning the singleflight race.
		if e, ok := c.lru.Peek(key); ok {
			return e.pair, nil
		}

		p, err := compute()
		if err != nil {
			return nil, err
		}

		c.Add(key, p)

		return p, nil
	})
	if err != nil {
		return Pair{}, err
	}

	p, ok := val.(Pair)
	if !ok {
		c.log.WithFields(logrus.Fields{
			"key":  key.String(),
			"type": fmt.Sprintf("%T", val),
		}).Warn("cache.coalesce_failed")
		metrics.ErrorsTotal.WithLabelValues("cache_coalesce").Inc()

		return compute()
	}

	return p, nil
}

// InsertedAt reports when key was stored, without refreshing it.
func (c *RelationshipCache) InsertedAt(key Key) (time.Time, bool) {
	e, ok := c.lru.Peek(key)
	if !ok {
		return time.Time{}, false
	}

	return e.insertedAt, true
}

// LastAccessed reports when key was last read or stored, without refreshing it.
func (c *RelationshipCache) LastAccessed(key Key) (time.Time, bool) {
	e, ok := c.lru.Peek(key)
	if !ok {
		return time.Time{}, false
	}

	return time.Unix(0, e.lastAccessed.Load()), true
}

// Contains reports whether key is cached, without refreshing it.
func (c *RelationshipCache) Contains(key Key) bool {
	return c.lru.Contains(key)
}

// Len returns the number of cached entries, including expired ones not yet swept.
func (c *RelationshipCache) Len() int { return c.lru.Len() }

// Purge drops every entry.
func (c *RelationshipCache) Purge() { c.lru.Purge() }

// Options returns the effective settings.
func (c *RelationshipCache) Options() Options { return c.opts }

// Stats returns the counters. They stay zero unless TrackStats is set.
func (c *RelationshipCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
	}
}

func (c *RelationshipCache) recordHit() {
	if !c.opts.TrackStats {
		return
	}

	c.hits.Add(1)
	metrics.CacheHits.Inc()
}

func (c *RelationshipCache) recordMiss() {
	if !c.opts.TrackStats {
		return
	}

	c.misses.Add(1)
	metrics.CacheMisses.Inc()
}
