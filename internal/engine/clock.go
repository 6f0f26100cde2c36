package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the session's monotonic logical clock. Every event is stamped
// with a strictly increasing seq from it, so ordering never depends on the
// wall clock and a replay reproduces it exactly.
//
// Clock is safe for concurrent use, but only the Machine's Run loop calls
// Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimestampLayout is the event timestamp format: RFC 3339, UTC, fixed
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// LogicalTime derives event timestamps from seq: start plus one millisecond
// per tick. Timestamps are readable but carry no wall-clock information.
type LogicalTime struct {
	Start time.Time
}

// Stamp formats the timestamp for seq.
func (t LogicalTime) Stamp(seq int64) string {
	return t.Start.UTC().Add(time.Duration(seq) * time.Millisecond).Format(TimestampLayout)
}
