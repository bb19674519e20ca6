package search

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle state of an entry.
type State int32

const (
	StatePending State = iota
	StateSucceeded
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one cached request. It is created pending and settles exactly
// once, after which it never changes.
type Entry[T any] struct {
	key       string
	createdAt time.Time

	mu        sync.RWMutex
	state     State
	payload   T
	err       error
	expiresAt time.Time
	settledAt time.Time

	// callbacks registered while pending; fired once at settlement
	waiters []func(*Entry[T])
	done    chan struct{}
}

func newEntry[T any](key string, now time.Time, pendingTimeout time.Duration) *Entry[T] {
	return &Entry[T]{
		key:       key,
		createdAt: now,
		state:     StatePending,
		expiresAt: now.Add(pendingTimeout),
		done:      make(chan struct{}),
	}
}

// Key returns the request key.
func (e *Entry[T]) Key() string { return e.key }

// CreatedAt returns when the entry was created.
func (e *Entry[T]) CreatedAt() time.Time { return e.createdAt }

// State returns the current state.
func (e *Entry[T]) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Settled reports whether the round trip has completed.
func (e *Entry[T]) Settled() bool {
	return e.State() != StatePending
}

// Succeeded reports whether the entry settled successfully.
func (e *Entry[T]) Succeeded() bool {
	return e.State() == StateSucceeded
}

// Payload returns the decoded response. ok is false unless the entry
// succeeded.
func (e *Entry[T]) Payload() (payload T, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateSucceeded {
		return payload, false
	}
	return e.payload, true
}

// Err returns the failure cause, or nil unless the entry failed.
func (e *Entry[T]) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Result returns the payload and error together.
func (e *Entry[T]) Result() (T, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.payload, e.err
}

// ExpiresAt returns the instant after which sweeps evict the entry.
func (e *Entry[T]) ExpiresAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expiresAt
}

// SettledAt returns when the entry settled, or the zero time.
func (e *Entry[T]) SettledAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settledAt
}

// Done is closed when the entry settles.
func (e *Entry[T]) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the entry settles or ctx is done.
func (e *Entry[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-e.done:
		return e.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// expired reports whether the entry should be swept at now.
func (e *Entry[T]) expired(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.expiresAt.After(now)
}

// join registers cb for settlement. It returns false when the entry has
// already settled, in which case the caller must invoke cb itself.
func (e *Entry[T]) join(cb func(*Entry[T])) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePending {
		return false
	}
	if cb != nil {
		e.waiters = append(e.waiters, cb)
	}
	return true
}

// settle records the outcome and returns the callbacks to notify. It
// returns nil, false if the entry had already settled.
func (e *Entry[T]) settle(now time.Time, payload T, err error, ttl time.Duration) ([]func(*Entry[T]), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePending {
		return nil, false
	}

	if err != nil {
		e.state = StateFailed
		e.err = err
	} else {
		e.state = StateSucceeded
		e.payload = payload
	}
	e.settledAt = now
	e.expiresAt = now.Add(ttl)

	waiters := e.waiters
	e.waiters = nil
	close(e.done)

	return waiters, true
}
