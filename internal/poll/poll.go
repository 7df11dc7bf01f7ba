// Package poll runs a tick function repeatedly at a fixed cadence. A tick always
// finishes before the next one is scheduled, so ticks never overlap.
package poll

import (
	"context"
	"time"
)

// Reason tells why a loop ended.
type Reason int

const (
	// ReasonDone means the tick function asked to stop.
	ReasonDone Reason = iota
	// ReasonStopped means the context ended.
	ReasonStopped
	// ReasonExhausted means the tick budget ran out.
	ReasonExhausted
)

func (r Reason) String() string {
	switch r {
	case ReasonDone:
		return "done"
	case ReasonStopped:
		return "stopped"
	case ReasonExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Options configure a loop.
type Options struct {
	// Interval is the wait between the end of one tick and the start of the next.
	Interval time.Duration
	// Immediate fires the first tick without waiting one interval.
	Immediate bool
	// MaxTicks caps the number of ticks. Zero means unlimited.
	MaxTicks int
}

// TickFunc performs one tick. n counts from 1. Returning true ends the loop.
type TickFunc func(ctx context.Context, n int) (done bool)

// Run blocks until the tick function returns true, ctx ends or the tick budget runs out.
func Run(ctx context.Context, opts Options, tick TickFunc) Reason {
	if !opts.Immediate {
		if !wait(ctx, opts.Interval) {
			return ReasonStopped
		}
	}

	for n := 1; ; n++ {
		if ctx.Err() != nil {
			return ReasonStopped
		}
		if tick(ctx, n) {
			return ReasonDone
		}
		if opts.MaxTicks > 0 && n >= opts.MaxTicks {
			return ReasonExhausted
		}
		if !wait(ctx, opts.Interval) {
			return ReasonStopped
		}
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
