package auth

import (
	"context"
	"time"

	"github.com/Yoronex/gewisweb/internal/ids"
)

const (
	// DefaultLoginAttemptLimit failed attempts within the window fail
	// further attempts early, before the password backend is consulted.
	DefaultLoginAttemptLimit  = 5
	DefaultLoginAttemptWindow = 10 * time.Minute
)

// LoginThrottle gates password authentication per remote address using a
// persisted failed-attempt counter.
type LoginThrottle struct {
	attempts LoginAttemptStore
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewLoginThrottle constructs a throttle. Non-positive limit or window
// select the defaults.
func NewLoginThrottle(attempts LoginAttemptStore, limit int, window time.Duration) *LoginThrottle {
	if limit <= 0 {
		limit = DefaultLoginAttemptLimit
	}
	if window <= 0 {
		window = DefaultLoginAttemptWindow
	}
	return &LoginThrottle{attempts: attempts, limit: limit, window: window, now: time.Now}
}

// Allow reports whether the address may attempt another login.
func (t *LoginThrottle) Allow(ctx context.Context, address string) (bool, error) {
	count, err := t.attempts.CountSince(ctx, address, t.now().Add(-t.window))
	if err != nil {
		return false, err
	}
	return count < t.limit, nil
}

// Failure records a failed attempt for the address.
func (t *LoginThrottle) Failure(ctx context.Context, address string) error {
	return t.attempts.Record(ctx, &LoginAttempt{
		ID:          ids.New(),
		Address:     address,
		AttemptedAt: t.now().UTC(),
	})
}

// Reset clears the counter after a successful authentication.
func (t *LoginThrottle) Reset(ctx context.Context, address string) error {
	return t.attempts.Clear(ctx, address)
}
