package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies the host time in Unix seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current Unix time.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// MonotonicClock wraps a clock so readings never go backwards.
//
// Thread-safety: MonotonicClock is safe for concurrent use (atomic
// operations).
type MonotonicClock struct {
	src  Clock
	last atomic.Int64
}

// NewMonotonicClock wraps src.
func NewMonotonicClock(src Clock) *MonotonicClock {
	return &MonotonicClock{src: src}
}

// Now returns max(previous reading, src.Now()).
func (c *MonotonicClock) Now() int64 {
	for {
		prev := c.last.Load()
		now := c.src.Now()
		if now <= prev {
			return prev
		}
		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}
