package search

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Common errors delivered through failed entries.
var (
	// ErrEmptyKey is reported when Submit is called without a key.
	ErrEmptyKey = errors.New("empty cache key")

	// ErrClosed is reported for submits made after Close.
	ErrClosed = errors.New("search cache closed")

	// ErrRequestTimeout is reported when a fetch exceeds the request timeout.
	ErrRequestTimeout = errors.New("request timed out")
)

// Fetcher performs the network round trip for a key.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, key string) (T, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Fetch calls f(ctx, key).
func (f FetchFunc[T]) Fetch(ctx context.Context, key string) (T, error) {
	return f(ctx, key)
}

// Origin tells how Submit resolved a key.
type Origin int

const (
	// OriginFetched means a new entry was created and a fetch started.
	OriginFetched Origin = iota

	// OriginJoined means the key was already in flight; the callback waits
	// for that fetch.
	OriginJoined

	// OriginReplayed means a settled entry was served from the cache.
	OriginReplayed

	// OriginRejected means the submit never reached the cache (empty key or
	// closed cache).
	OriginRejected
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginFetched:
		return "fetched"
	case OriginJoined:
		return "joined"
	case OriginReplayed:
		return "replayed"
	case OriginRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Options configures a Cache.
type Options struct {
	// RequestTimeout bounds a single fetch. The fetch context is cancelled
	// when it elapses and the entry settles as failed.
	RequestTimeout time.Duration

	// PendingTimeout is how long an unsettled entry may sit in the cache
	// before the next sweep treats it as abandoned.
	PendingTimeout time.Duration

	// Freshness is how long a successful entry is replayed.
	Freshness time.Duration

	// FailureTTL is how long a failed entry stays replayable. Zero means
	// failures are expired as soon as they settle.
	FailureTTL time.Duration

	// SweepInterval enables a background janitor when positive.
	SweepInterval time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives cache events. Defaults to log.Default().
	Logger *log.Logger
}

// DefaultOptions returns the default timeouts: 5s per request, 30s for an
// unanswered entry and 15m of freshness.
func DefaultOptions() Options {
	return Options{
		RequestTimeout: 5 * time.Second,
		PendingTimeout: 30 * time.Second,
		Freshness:      15 * time.Minute,
		FailureTTL:     0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	if o.PendingTimeout <= 0 {
		o.PendingTimeout = d.PendingTimeout
	}
	if o.Freshness <= 0 {
		o.Freshness = d.Freshness
	}
	if o.FailureTTL < 0 {
		o.FailureTTL = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Stats holds cache counters.
type Stats struct {
	Submits   int64 // Calls to Submit
	Fetches   int64 // Fetches started
	Joins     int64 // Submits that attached to an in-flight entry
	Replays   int64 // Submits served from a settled entry
	Successes int64 // Fetches that settled successfully
	Failures  int64 // Fetches that settled as failed
	Timeouts  int64 // Failures caused by the request timeout
	Evictions int64 // Entries dropped by a sweep
	Entries   int   // Live entries at the time of the call
}

// HitRate returns the share of submits that did not start a fetch.
func (s Stats) HitRate() float64 {
	if s.Submits == 0 {
		return 0
	}
	return float64(s.Joins+s.Replays) / float64(s.Submits)
}
