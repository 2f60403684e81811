package framework

import (
	"sync"
	"time"
)

type systemClock struct{}

func (systemClock) Time() time.Time                        { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the Clock backed by the wall clock.
var SystemClock Clock = systemClock{}

// ManualClock is a Clock which only moves when Advance is called.
type ManualClock struct {
	lock    sync.Mutex
	now     time.Time
	waiters []*clockWaiter
	changed chan struct{}
}

type clockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewManualClock creates a ManualClock starting at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now, changed: make(chan struct{})}
}

// Time implements TimeSource.
func (c *ManualClock) Time() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// After implements Clock. Non-positive durations fire immediately.
func (c *ManualClock) After(d time.Duration) <-chan time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, &clockWaiter{deadline: c.now.Add(d), ch: ch})
	c.notifyLocked()
	return ch
}

// Advance moves the clock forward and fires the due waiters.
func (c *ManualClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if w.deadline.After(c.now) {
			pending = append(pending, w)
			continue
		}
		w.ch <- c.now
	}
	c.waiters = pending
	c.notifyLocked()
}

// Waiters returns the number of pending After calls.
func (c *ManualClock) Waiters() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.waiters)
}

// BlockUntil blocks until at least n After calls are pending.
func (c *ManualClock) BlockUntil(n int) {
	for {
		c.lock.Lock()
		if len(c.waiters) >= n {
			c.lock.Unlock()
			return
		}
		ch := c.changed
		c.lock.Unlock()
		<-ch
	}
}

func (c *ManualClock) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
