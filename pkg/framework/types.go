package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// TimeSource provides the current time.
type TimeSource interface {
	Time() time.Time
}

// Clock is a TimeSource which is also able to schedule wake-ups.
// Protocol timing goes through a Clock so tests can drive it.
type Clock interface {
	TimeSource
	// After returns a channel receiving the time once d elapsed.
	After(d time.Duration) <-chan time.Time
}
