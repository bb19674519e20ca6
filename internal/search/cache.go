package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Cache coalesces requests by key. The zero value is not usable; create
// caches with New.
type Cache[T any] struct {
	fetcher Fetcher[T]
	opts    Options

	mu      sync.Mutex
	entries map[string]*Entry[T]
	closed  bool
	stats   Stats

	// root context for every fetch; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	fetchWg   sync.WaitGroup
	janitorWg sync.WaitGroup
}

// New creates a cache that resolves misses with fetcher.
func New[T any](fetcher Fetcher[T], opts Options) *Cache[T] {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache[T]{
		fetcher: fetcher,
		opts:    opts,
		entries: make(map[string]*Entry[T]),
		ctx:     ctx,
		cancel:  cancel,
	}

	if opts.SweepInterval > 0 {
		c.startJanitor(opts.SweepInterval)
	}

	return c
}

// Submit resolves key and arranges for onComplete to be called exactly once
// with the resulting entry.
//
// A settled entry still in the cache is replayed: onComplete runs before
// Submit returns. An entry still in flight is joined: onComplete runs when
// that fetch settles. Otherwise a new entry is created and fetched in the
// background. Submit never blocks on the network and never fails; errors
// are reported through the entry.
func (c *Cache[T]) Submit(key string, onComplete func(*Entry[T])) (*Entry[T], Origin) {
	if key == "" {
		return c.reject(key, ErrEmptyKey, onComplete), OriginRejected
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.reject(key, ErrClosed, onComplete), OriginRejected
	}

	now := c.opts.Now()
	c.stats.Submits++
	c.sweepLocked(now)

	if e, ok := c.entries[key]; ok {
		if e.join(onComplete) {
			c.stats.Joins++
			c.mu.Unlock()
			c.opts.Logger.Debug("search joined in-flight request", "key", key)
			return e, OriginJoined
		}

		c.stats.Replays++
		c.mu.Unlock()
		c.opts.Logger.Debug("search replayed from cache",
			"key", key,
			"state", e.State(),
			"expires_in", e.ExpiresAt().Sub(now))
		if onComplete != nil {
			onComplete(e)
		}
		return e, OriginReplayed
	}

	e := newEntry[T](key, now, c.opts.PendingTimeout)
	e.join(onComplete)
	c.entries[key] = e
	c.stats.Fetches++
	c.fetchWg.Add(1)
	c.mu.Unlock()

	c.opts.Logger.Debug("search fetching", "key", key, "timeout", c.opts.RequestTimeout)
	go c.fetch(e)

	return e, OriginFetched
}

// Lookup sweeps the cache and returns the live entry for key, if any. It
// never starts a fetch.
func (c *Cache[T]) Lookup(key string) (*Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(c.opts.Now())
	e, ok := c.entries[key]
	return e, ok
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sweepLocked(c.opts.Now())
}

// Len returns the number of live entries without sweeping.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = len(c.entries)
	return stats
}

// Close cancels in-flight fetches, stops the janitor and waits for both.
// Pending entries settle as failed. Close is safe to call more than once.
func (c *Cache[T]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.fetchWg.Wait()
	c.janitorWg.Wait()

	c.mu.Lock()
	c.entries = make(map[string]*Entry[T])
	c.mu.Unlock()

	return nil
}

// fetch runs the round trip for e and settles it.
func (c *Cache[T]) fetch(e *Entry[T]) {
	defer c.fetchWg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
	defer cancel()

	type result struct {
		payload T
		err     error
	}

	// Buffered so the fetcher goroutine can always exit, even when the
	// deadline wins the race below.
	resCh := make(chan result, 1)
	go func() {
		payload, err := c.fetcher.Fetch(ctx, e.key)
		resCh <- result{payload, err}
	}()

	var (
		payload  T
		err      error
		timedOut bool
	)
	select {
	case res := <-resCh:
		payload, err = res.payload, res.err
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			timedOut = true
		}
	case <-ctx.Done():
		err = ctx.Err()
		timedOut = errors.Is(err, context.DeadlineExceeded)
	}

	if timedOut {
		err = fmt.Errorf("%w after %s: %w", ErrRequestTimeout, c.opts.RequestTimeout, err)
	}

	c.settle(e, payload, err, timedOut)
}

// settle records the fetch outcome and notifies every waiter.
func (c *Cache[T]) settle(e *Entry[T], payload T, err error, timedOut bool) {
	now := c.opts.Now()
	ttl := c.opts.Freshness
	if err != nil {
		var zero T
		payload = zero
		ttl = c.opts.FailureTTL
	}

	waiters, ok := e.settle(now, payload, err, ttl)
	if !ok {
		return
	}

	c.mu.Lock()
	if err != nil {
		c.stats.Failures++
		if timedOut {
			c.stats.Timeouts++
		}
	} else {
		c.stats.Successes++
	}
	c.mu.Unlock()

	if err != nil {
		c.opts.Logger.Warn("search failed",
			"key", e.key,
			"duration", now.Sub(e.createdAt),
			"error", err)
	} else {
		c.opts.Logger.Debug("search settled",
			"key", e.key,
			"duration", now.Sub(e.createdAt),
			"fresh_for", ttl)
	}

	for _, cb := range waiters {
		cb(e)
	}
}

// reject settles a standalone, uncached entry as failed and reports it.
func (c *Cache[T]) reject(key string, err error, onComplete func(*Entry[T])) *Entry[T] {
	now := c.opts.Now()
	e := newEntry[T](key, now, 0)
	var zero T
	e.settle(now, zero, err, 0)

	c.opts.Logger.Debug("search rejected", "key", key, "error", err)
	if onComplete != nil {
		onComplete(e)
	}
	return e
}

// sweepLocked drops expired entries (must be called with lock held).
func (c *Cache[T]) sweepLocked(now time.Time) int {
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Evictions += int64(removed)
	return removed
}

// startJanitor sweeps on an interval until Close.
func (c *Cache[T]) startJanitor(interval time.Duration) {
	c.janitorWg.Add(1)

	go func() {
		defer c.janitorWg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := c.Sweep(); removed > 0 {
					c.opts.Logger.Debug("search janitor removed expired entries", "count", removed)
				}
			case <-c.ctx.Done():
				return
			}
		}
	}()
}
