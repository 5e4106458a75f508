package reconnect

import (
	"math/rand"
	"time"
)

// backoff is an exponential backoff tracker, grounded in paypal-junodb's
// pkg/logging/cal/net/io.Backoff (BackOff/Reset/currentDelay growth
// pattern), extended with the jitter formula spec.md §4.6 specifies
// (delay + uniform_random(0, delay/2)) to avoid a thundering herd of
// peers retrying in lockstep.
type backoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64

	currentDelay time.Duration
	primed       bool
}

func newBackoff(initialDelay, maxDelay time.Duration, multiplier float64) *backoff {
	if multiplier <= 1.0 {
		multiplier = 2.0
	}
	return &backoff{initialDelay: initialDelay, maxDelay: maxDelay, multiplier: multiplier}
}

// next advances the backoff and returns the delay to sleep before the next
// attempt: spec.md §4.6's delay + uniform_random(0, delay/2), i.e. a
// result in [currentDelay, 1.5*currentDelay].
func (b *backoff) next() time.Duration {
	if !b.primed {
		b.currentDelay = b.initialDelay
		b.primed = true
	} else {
		b.currentDelay = time.Duration(b.multiplier * float64(b.currentDelay))
	}
	if b.maxDelay > 0 && b.currentDelay > b.maxDelay {
		b.currentDelay = b.maxDelay
	}
	if b.currentDelay <= 0 {
		return 0
	}
	return b.currentDelay + time.Duration(rand.Int63n(int64(b.currentDelay)/2+1))
}

func (b *backoff) reset() {
	b.primed = false
	b.currentDelay = 0
}
