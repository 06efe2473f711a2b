package game

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RoundClock is a one-shot expiry timer for a single round. Each Start arms a
// new generation; a callback from an older generation, or one arriving after
// Cancel, is dropped, so onExpire runs at most once per Start.
type RoundClock struct {
	clk clock.Clock

	mu     sync.Mutex
	timer  *clock.Timer
	endsAt time.Time
	armed  bool
	gen    uint64
}

func NewRoundClock(clk clock.Clock) *RoundClock {
	return &RoundClock{clk: clk}
}

// Start arms the timer for d and returns the expiry instant. Negative
// durations clamp to zero and expire immediately. A timer still pending from
// an earlier Start is disarmed.
func (c *RoundClock) Start(d time.Duration, onExpire func()) time.Time {
	if d < 0 {
		d = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	gen := c.gen
	c.endsAt = c.clk.Now().Add(d)
	c.armed = true

	fire := func() { c.fire(gen, onExpire) }
	if d == 0 {
		go fire()
	} else {
		c.timer = c.clk.AfterFunc(d, fire)
	}
	return c.endsAt
}

func (c *RoundClock) fire(gen uint64, onExpire func()) {
	c.mu.Lock()
	if gen != c.gen || !c.armed {
		c.mu.Unlock()
		return
	}
	c.armed = false
	c.timer = nil
	c.mu.Unlock()

	onExpire()
}

// Cancel disarms a pending timer. It reports whether one was pending.
func (c *RoundClock) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return false
	}
	c.stopLocked()
	c.armed = false
	c.gen++
	return true
}

func (c *RoundClock) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Pending reports whether the timer is armed and has not fired.
func (c *RoundClock) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// TimeRemaining returns whole seconds until expiry, or 0 when the clock was
// never started, has fired, or was cancelled.
func (c *RoundClock) TimeRemaining(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return 0
	}
	left := c.endsAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}
