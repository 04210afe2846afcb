package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainConn(c *Conn) [][]byte {
	var out [][]byte
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, frame)
		default:
			return out
		}
	}
}

func TestConnSendBuffersFramesUntilDrained(t *testing.T) {
	c := NewConn(1, nil, "127.0.0.1", nil, nil)
	c.Send([]byte("one"))
	c.Send([]byte("two"))

	frames := drainConn(c)
	require.Len(t, frames, 2)
	assert.Equal(t, "one", string(frames[0]))
	assert.Equal(t, "two", string(frames[1]))
}

func TestConnSendIsNoopAfterClose(t *testing.T) {
	c := NewConn(1, nil, "127.0.0.1", nil, nil)
	c.Close()

	assert.NotPanics(t, func() {
		c.Send([]byte("late"))
	})
	assert.True(t, c.isClosed())
}

func TestConnCloseIsIdempotent(t *testing.T) {
	c := NewConn(1, nil, "127.0.0.1", nil, nil)
	c.Close()
	assert.NotPanics(t, func() {
		c.Close()
	})
}

func TestConnAllowRateLimitsBurst(t *testing.T) {
	c := NewConn(1, nil, "127.0.0.1", nil, nil)
	allowed := 0
	for i := 0; i < 50; i++ {
		if c.Allow(1000) {
			allowed++
		}
	}
	assert.Less(t, allowed, 50, "an unbounded burst at one instant must eventually be throttled")
}

func TestConnIDAndRemoteHost(t *testing.T) {
	c := NewConn(42, nil, "10.0.0.1", nil, nil)
	assert.Equal(t, int64(42), c.ID())
	assert.Equal(t, "10.0.0.1", c.RemoteHost())
}
