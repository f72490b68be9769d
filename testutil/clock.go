package testutil

import (
	"sync"
	"time"
)

var (
	defaultStartTime = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
)

// Clock implements clock.Clock, but each call to Now() advances the time by
// the configured unit, starting at Start.
type Clock struct {
	Start time.Time

	mu   sync.Mutex
	unit time.Duration
	last time.Time
}

// Now implements clock.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		c.last = c.Start
	} else {
		c.last = c.last.Add(c.unit)
	}
	return c.last
}

// Add moves the clock forward by d without counting as a call to Now.
func (c *Clock) Add(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		c.last = c.Start
	}
	c.last = c.last.Add(d)
	return c.last
}

// Last returns the last time that was used.
func (c *Clock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		c.last = c.Start
	}
	return c.last
}

func NewClock(unit time.Duration) *Clock {
	return &Clock{
		Start: defaultStartTime,
		unit:  unit,
	}
}
