package engine

import (
	"sync"
	"time"
)

// Clock is the single monotonic time source of a game, in milliseconds since
// its epoch
type Clock interface {
	Now() int64
}

type monotonicClock struct {
	epoch time.Time
}

// NewClock starts a clock at zero
func NewClock() Clock {
	return monotonicClock{epoch: time.Now()}
}

func (c monotonicClock) Now() int64 {
	return time.Since(c.epoch).Milliseconds()
}

// ManualClock is advanced explicitly; used for deterministic ticking
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// Now returns the current manual time
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by ms and returns the new time
func (c *ManualClock) Advance(ms int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
	return c.now
}
