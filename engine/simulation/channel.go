package simulation

import "sync"

// TimingsChannel carries completed timing aggregates from background readback
// tasks back to the frame loop. Producers are the detached readback tasks (at
// most one in flight per profiled frame); the sole consumer is the stepper,
// which drains everything pending at the start of an invocation and keeps the
// most recent aggregate. The queue is unbounded so a producer never blocks a
// frame, no matter how late a readback resolves.
type TimingsChannel struct {
	mu      sync.Mutex
	pending []Timings
}

// NewTimingsChannel creates an empty timings channel.
//
// Returns:
//   - *TimingsChannel: the newly created channel
func NewTimingsChannel() *TimingsChannel {
	return &TimingsChannel{}
}

// Send enqueues a completed aggregate. Never blocks.
//
// Parameters:
//   - t: the aggregate to enqueue
func (c *TimingsChannel) Send(t Timings) {
	c.mu.Lock()
	c.pending = append(c.pending, t)
	c.mu.Unlock()
}

// TryRecv pops the oldest pending aggregate without blocking.
//
// Returns:
//   - Timings: the popped aggregate, zero if none
//   - bool: false if the channel was empty
func (c *TimingsChannel) TryRecv() (Timings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return Timings{}, false
	}
	t := c.pending[0]
	c.pending = c.pending[1:]
	return t, true
}

// Len returns the number of pending aggregates.
//
// Returns:
//   - int: the current queue length
func (c *TimingsChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
