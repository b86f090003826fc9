package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store counts hits per key inside a fixed window. The window starts on the
// first hit for a key and every later hit in the window shares its expiry.
type Store interface {
	// Hit increments the counter for key and returns the new count and the
	// time left until the counter resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Result describes the limiter state for a key after a consume call.
type Result struct {
	Consumed   int
	Remaining  int
	RetryAfter time.Duration
}

// RejectedError is returned by Consume when the key has no points left.
type RejectedError struct {
	Result
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// IsRejected reports whether err is a limiter rejection.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// Limiter allows Points hits per Window for each key, namespaced by Prefix.
// Several limiters may share one Store as long as their prefixes differ.
type Limiter struct {
	store  Store
	prefix string
	points int
	window time.Duration
}

// New builds a limiter over the given store.
func New(store Store, prefix string, points int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		prefix: prefix,
		points: points,
		window: window,
	}
}

// Consume spends one point for key. A nil error means the action is allowed.
// A *RejectedError means the budget for the current window is spent; any other
// error comes from the store.
func (l *Limiter) Consume(ctx context.Context, key string) (Result, error) {
	if l == nil || l.points <= 0 {
		return Result{}, nil
	}

	count, ttl, err := l.store.Hit(ctx, l.prefix+":"+key, l.window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store: %w", err)
	}

	res := Result{
		Consumed:   int(count),
		Remaining:  max(l.points-int(count), 0),
		RetryAfter: ttl,
	}
	if int(count) > l.points {
		return res, &RejectedError{Result: res}
	}
	return res, nil
}

// Points returns the budget per window.
func (l *Limiter) Points() int {
	return l.points
}

// Window returns the window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
