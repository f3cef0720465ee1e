// Package query is the keyed, staleness-aware request cache that sits in
// front of the gateways.
//
// Each key moves through absent -> pending -> fresh -> stale -> pending ...,
// with pending -> error on failure. Concurrent readers of one key share a
// single in-flight fetch. Every entry carries a generation; Invalidate bumps
// it so that a slow response issued before the invalidation is dropped at
// commit time instead of overwriting newer data.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mmcdole/vidsync/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleWindow is how long a fetched value counts as fresh
const DefaultStaleWindow = 5 * time.Minute

// State is the lifecycle state of a cache entry
type State int

const (
	StateAbsent State = iota
	StatePending
	StateFresh
	StateStale
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateError:
		return "error"
	default:
		return "absent"
	}
}

// Query describes one cacheable request
type Query[T any] struct {
	Key Key
	// Fetch performs the network call. It runs detached from the caller's
	// cancellation so that an abandoned wait does not abort a shared flight.
	Fetch func(ctx context.Context) (T, error)
	// OnSuccess merges a committed result into shared state. It runs once per
	// fetch whose generation is still current, before waiting readers return.
	OnSuccess func(T)
}

type entry struct {
	key       Key
	state     State
	value     any
	hasValue  bool
	fetchedAt time.Time
	gen       uint64
	err       error
}

// Cache holds one entry per key
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64

	// commitMu orders commit+OnSuccess pairs so an older generation can never
	// apply its result after a newer one.
	commitMu sync.Mutex

	group       singleflight.Group
	background  sync.WaitGroup
	clock       domain.Clock
	staleWindow time.Duration
	logger      *slog.Logger
}

// New creates an empty cache. A nil clock uses the wall clock and a
// non-positive window uses DefaultStaleWindow.
func New(clock domain.Clock, staleWindow time.Duration, logger *slog.Logger) *Cache {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if staleWindow <= 0 {
		staleWindow = DefaultStaleWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:     make(map[string]*entry),
		clock:       clock,
		staleWindow: staleWindow,
		logger:      logger,
	}
}

// Get returns the value for q.Key.
//
//   - fresh: the cached value, no fetch
//   - stale, or failed with an earlier value: the cached value, and a
//     background refresh is started unless one is already running
//   - absent, or no value yet: blocks on a fetch shared with every other
//     reader of the same key and generation
//
// A reader whose ctx ends stops waiting; the fetch itself carries on.
func Get[T any](ctx context.Context, c *Cache, q Query[T]) (T, error) {
	var zero T
	ks := q.Key.String()

	c.mu.Lock()
	e := c.entryLocked(ks, q.Key)
	state := c.stateLocked(e)
	cached, ok := e.value.(T)
	hasValue := e.hasValue && ok

	switch {
	case state == StateFresh && hasValue:
		c.mu.Unlock()
		c.logger.Debug("cache hit", "key", ks)
		return cached, nil

	case hasValue && state == StatePending:
		// A refresh is already running for this value
		c.mu.Unlock()
		return cached, nil

	case hasValue:
		e.state = StatePending
		gen := e.gen
		c.mu.Unlock()
		c.logger.Debug("serving stale value, refreshing", "key", ks, "state", state.String())
		revalidate(ctx, c, q, gen)
		return cached, nil
	}

	e.state = StatePending
	gen := e.gen
	c.mu.Unlock()

	c.logger.Debug("cache miss", "key", ks, "generation", gen)
	select {
	case res := <-startFlight(ctx, c, q, gen):
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Peek returns the cached value for key without fetching or changing state
func Peek[T any](c *Cache, key Key) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasValue {
		return zero, false
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// State returns the current state of key
func (c *Cache) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return StateAbsent
	}
	return c.stateLocked(e)
}

// Err returns the failure recorded for key while it is in the error state
func (c *Cache) Err(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || e.state != StateError {
		return nil
	}
	return e.err
}

// Invalidate marks key stale and starts a new generation. Any fetch issued
// before this call is discarded when it completes.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		c.invalidateLocked(e)
	}
}

// InvalidatePrefix invalidates scope and every key nested under it
func (c *Cache) InvalidatePrefix(scope Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(scope) {
			c.invalidateLocked(e)
			n++
		}
	}
	c.logger.Debug("invalidated scope", "scope", scope.String(), "entries", n)
}

// Remove drops key entirely. An in-flight fetch for it is discarded.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.String())
}

// Wait blocks until every background refresh started so far has committed
func (c *Cache) Wait() {
	c.background.Wait()
}

func (c *Cache) entryLocked(ks string, key Key) *entry {
	e, ok := c.entries[ks]
	if !ok {
		c.nextGen++
		e = &entry{key: append(Key(nil), key...), state: StateAbsent, gen: c.nextGen}
		c.entries[ks] = e
	}
	return e
}

func (c *Cache) stateLocked(e *entry) State {
	if e.state == StateFresh && !c.clock.Now().Before(e.fetchedAt.Add(c.staleWindow)) {
		e.state = StateStale
	}
	return e.state
}

func (c *Cache) invalidateLocked(e *entry) {
	c.nextGen++
	e.gen = c.nextGen
	e.err = nil
	if e.hasValue {
		e.state = StateStale
	} else {
		e.state = StateAbsent
	}
	c.logger.Debug("invalidated", "key", e.key.String(), "generation", e.gen)
}

// commit stores a fetch result if gen is still the entry's generation
func (c *Cache) commit(ks string, gen uint64, value any, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[ks]
	if !ok || e.gen != gen {
		c.logger.Debug("discarding superseded result", "key", ks, "generation", gen)
		return false
	}
	if err != nil {
		e.state = StateError
		e.err = err
		return true
	}
	e.state = StateFresh
	e.value = value
	e.hasValue = true
	e.err = nil
	e.fetchedAt = c.clock.Now()
	return true
}

// committed returns the entry's value when generation gen already holds a fresh one
func (c *Cache) committed(ks string, gen uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ks]
	if !ok || e.gen != gen || !e.hasValue || c.stateLocked(e) != StateFresh {
		return nil, false
	}
	return e.value, true
}

func flightKey(ks string, gen uint64) string {
	return ks + "@" + strconv.FormatUint(gen, 10)
}

// startFlight joins or starts the fetch for (key, gen)
func startFlight[T any](ctx context.Context, c *Cache, q Query[T], gen uint64) <-chan singleflight.Result {
	ks := q.Key.String()
	fetchCtx := context.WithoutCancel(ctx)

	return c.group.DoChan(flightKey(ks, gen), func() (any, error) {
		// A reader that saw pending can arrive after the shared flight
		// committed and was forgotten; answer it from the entry.
		if v, ok := c.committed(ks, gen); ok {
			return v, nil
		}

		v, err := q.Fetch(fetchCtx)

		c.commitMu.Lock()
		defer c.commitMu.Unlock()

		if !c.commit(ks, gen, v, err) {
			return v, err
		}
		if err != nil {
			c.logger.Warn("query failed", "key", ks, "error", err)
			return v, err
		}
		if q.OnSuccess != nil {
			q.OnSuccess(v)
		}
		return v, nil
	})
}

// revalidate refreshes a stale entry without blocking the reader
func revalidate[T any](ctx context.Context, c *Cache, q Query[T], gen uint64) {
	c.background.Add(1)
	ch := startFlight(ctx, c, q, gen)
	go func() {
		defer c.background.Done()
		if res := <-ch; res.Err != nil {
			c.logger.Warn("background refresh failed", "key", q.Key.String(), "error", res.Err)
		}
	}()
}
