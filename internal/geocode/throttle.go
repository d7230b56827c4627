package geocode

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// throttle spaces external calls at least interval apart. Reservations are
// made against the injected clock so tests can drive it with a fake one.
type throttle struct {
	clock   clockwork.Clock
	limiter *rate.Limiter
}

func newThrottle(interval time.Duration, clock clockwork.Clock) *throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &throttle{clock: clock, limiter: rate.NewLimiter(limit, 1)}
}

// wait blocks until the next call may be issued. The slot is released again
// if ctx ends first.
func (t *throttle) wait(ctx context.Context) error {
	now := t.clock.Now()
	r := t.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("throttle: reservation exceeds burst")
	}
	d := r.DelayFrom(now)
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		r.CancelAt(t.clock.Now())
		return ctx.Err()
	case <-t.clock.After(d):
		return nil
	}
}
