package clock

import (
	"sync"
	"time"
)

// Mock is a settable Clock for tests
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// Ensure Mock implements Clock
var _ Clock = (*Mock)(nil)

// NewMock creates a Mock set to the given time
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

// Now returns the mocked current time
func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by the given duration
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set sets the clock to the given time
func (c *Mock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
