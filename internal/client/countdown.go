package client

import (
	"context"
	"fmt"
	"time"
)

// urgencyWindow is the remaining time below which a deadline is presented
// as urgent.
const urgencyWindow = 24 * time.Hour

// Countdown is the presentation view of time remaining until a deadline.
// It exists for display only: auction closure is always decided server-side
// against the server clock, never by a client timer.
type Countdown struct {
	Days    int
	Hours   int
	Minutes int
	Expired bool
	Urgent  bool
}

// CountdownUntil computes the remaining time from now to deadline
func CountdownUntil(deadline, now time.Time) Countdown {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return Countdown{Expired: true, Urgent: true}
	}
	return Countdown{
		Days:    int(remaining / (24 * time.Hour)),
		Hours:   int(remaining % (24 * time.Hour) / time.Hour),
		Minutes: int(remaining % time.Hour / time.Minute),
		Urgent:  remaining < urgencyWindow,
	}
}

func (c Countdown) String() string {
	if c.Expired {
		return "expired"
	}
	if c.Days > 0 {
		return fmt.Sprintf("%dd %dh %dm", c.Days, c.Hours, c.Minutes)
	}
	return fmt.Sprintf("%dh %dm", c.Hours, c.Minutes)
}

// Watch recomputes the countdown once per interval and invokes fn with each
// value, stopping after the deadline expires or ctx is cancelled. Minute
// granularity is enough for display.
func Watch(ctx context.Context, deadline time.Time, interval time.Duration, fn func(Countdown)) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(CountdownUntil(deadline, time.Now()))
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c := CountdownUntil(deadline, now)
			fn(c)
			if c.Expired {
				return
			}
		}
	}
}
