package simulation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimingsChannel_FIFO(t *testing.T) {
	c := NewTimingsChannel()
	c.Send(Timings{P2G: 1})
	c.Send(Timings{P2G: 2})
	c.Send(Timings{P2G: 3})
	require.Equal(t, 3, c.Len())

	for i := 1; i <= 3; i++ {
		got, ok := c.TryRecv()
		require.True(t, ok)
		assert.Equal(t, float64(i), got.P2G)
	}

	_, ok := c.TryRecv()
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestTimingsChannel_DrainKeepsLast(t *testing.T) {
	c := NewTimingsChannel()
	c.Send(Timings{GridSort: 1})
	c.Send(Timings{GridSort: 2})

	var last Timings
	for {
		got, ok := c.TryRecv()
		if !ok {
			break
		}
		last = got
	}
	assert.Equal(t, 2.0, last.GridSort)
}

func TestTimingsChannel_ConcurrentSend(t *testing.T) {
	c := NewTimingsChannel()
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Send(Timings{G2P: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, n, c.Len(), "sends never block or drop")
}
