package bus

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	odoo "github.com/odoojs/odoo.go"
	"github.com/odoojs/odoo.go/pkg/constants"
)

// Backoff decides how long Follow waits before reconnecting.
type Backoff interface {
	// Delay returns the wait before reconnect attempt n, counted from 0
	// since the last successful connection, or false to give up.
	Delay(attempt int) (time.Duration, bool)
}

// ExponentialBackoff doubles (by Factor) the wait after every failed
// attempt, up to Max, and spreads it by ±Jitter of its value.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	// Jitter is a fraction in [0, 1].
	Jitter float64
	// MaxAttempts 0 retries forever.
	MaxAttempts int
}

func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Initial: time.Second,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.3,
	}
}

func (b *ExponentialBackoff) Delay(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
		return 0, false
	}

	d := math.Min(float64(b.Initial)*math.Pow(b.Factor, float64(attempt)), float64(b.Max))
	if b.Jitter > 0 {
		//nolint:gosec // jitter is not security sensitive
		d += d * b.Jitter * (2*rand.Float64() - 1)
	}
	if d < float64(b.Initial) {
		d = float64(b.Initial)
	}
	return time.Duration(d), true
}

// ConstantBackoff waits Interval between attempts.
type ConstantBackoff struct {
	Interval time.Duration
	// MaxAttempts 0 retries forever.
	MaxAttempts int
}

func (b ConstantBackoff) Delay(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
		return 0, false
	}
	return b.Interval, true
}

// Follow listens to channels and calls handle for every notification until
// ctx is done, which makes it return nil. When the connection drops it waits
// per backoff and listens again from the last notification seen, so nothing
// is delivered twice or skipped. A nil backoff never reconnects.
//
// An error returned by handle stops Follow and is returned as is.
func Follow(ctx context.Context, c *odoo.Client, channels []string, backoff Backoff, handle func(Notification) error, opts ...Option) error {
	var resume []Option
	attempt := 0
	for {
		l, err := Listen(ctx, c, channels, slices.Concat(opts, resume)...)
		if err == nil {
			attempt = 0
			var handled bool
			handled, err = drain(ctx, l, handle)
			resume = []Option{WithLast(l.Last())}
			if handled {
				return err
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		if backoff == nil || errors.Is(err, constants.ErrNotAuthenticated) {
			return err
		}
		delay, ok := backoff.Delay(attempt)
		if !ok {
			return err
		}
		attempt++

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// drain feeds l to handle until the connection ends. handled reports that
// Follow must stop: ctx is done or handle failed.
func drain(ctx context.Context, l *Listener, handle func(Notification) error) (handled bool, err error) {
	defer l.Close()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case n, ok := <-l.Notifications():
			if !ok {
				err := l.Err()
				if err == nil {
					err = constants.ErrBusClosed
				}
				return false, err
			}
			if err := handle(n); err != nil {
				return true, err
			}
		}
	}
}
