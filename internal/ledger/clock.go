package ledger

import "time"

type Clock interface {
	Now() time.Time
}

// ManualClock only moves when told to. The sequencer sets it to the block
// time of every transaction; tests drive it directly.
type ManualClock struct {
	now time.Time
}

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.now = now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
