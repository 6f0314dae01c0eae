// Package countdown implements the exam timer. The remaining time is
// always derived from the wall clock (start + duration - now), so a
// paused process or a missed tick can never grant extra time.
package countdown

import (
	"time"
)

// Alert identifies a low-time warning. Each alert fires at most once
// per attempt.
type Alert string

const (
	AlertHalf        Alert = "half"
	AlertFifth       Alert = "fifth"
	AlertTenth       Alert = "tenth"
	AlertFinalMinute Alert = "final_minute"
)

// Event is the result of one clock tick.
type Event struct {
	Remaining int     `json:"remaining"`
	Alerts    []Alert `json:"alerts,omitempty"`
	Expired   bool    `json:"expired,omitempty"`
}

// Clock is the pure timer core. It is not safe for concurrent use; the
// Engine serializes access to it.
type Clock struct {
	start    time.Time
	duration time.Duration
	fired    map[Alert]bool
	expired  bool
}

func NewClock(start time.Time, durationSeconds int) *Clock {
	return &Clock{
		start:    start,
		duration: time.Duration(durationSeconds) * time.Second,
		fired:    make(map[Alert]bool),
	}
}

// Restore rebuilds a clock for a resumed attempt. Alerts whose
// thresholds have already passed are pre-latched so a resume does not
// replay old warnings.
func Restore(start time.Time, durationSeconds int, now time.Time) *Clock {
	c := NewClock(start, durationSeconds)
	remaining := c.Remaining(now)
	for alert, threshold := range c.thresholds() {
		if remaining <= threshold {
			c.fired[alert] = true
		}
	}
	return c
}

// Remaining returns the whole seconds left, never negative.
func (c *Clock) Remaining(now time.Time) int {
	left := c.start.Add(c.duration).Sub(now)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

// Tick advances the clock to now. Newly crossed alert thresholds are
// reported exactly once, and Expired is set on the single tick that
// first observes zero remaining. Ticks after expiry return a zero
// event.
func (c *Clock) Tick(now time.Time) Event {
	if c.expired {
		return Event{}
	}
	remaining := c.Remaining(now)
	ev := Event{Remaining: remaining}
	for _, alert := range alertOrder {
		if c.fired[alert] || remaining > c.thresholds()[alert] {
			continue
		}
		c.fired[alert] = true
		ev.Alerts = append(ev.Alerts, alert)
	}
	if remaining == 0 {
		c.expired = true
		ev.Expired = true
	}
	return ev
}

// Expired reports whether the clock has already run out.
func (c *Clock) Expired() bool {
	return c.expired
}

var alertOrder = []Alert{AlertHalf, AlertFifth, AlertTenth, AlertFinalMinute}

func (c *Clock) thresholds() map[Alert]int {
	total := int(c.duration / time.Second)
	return map[Alert]int{
		AlertHalf:        total / 2,
		AlertFifth:       total / 5,
		AlertTenth:       total / 10,
		AlertFinalMinute: 60,
	}
}
