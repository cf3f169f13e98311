package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcanvas/canvas"
)

// newIdleConn builds a Conn with no socket behind it, enough to drive the
// latency bookkeeping directly.
func newIdleConn(h Handler, timeout time.Duration) *Conn {
	return &Conn{
		h:            h,
		pingInterval: 5 * time.Millisecond,
		pingTimeout:  timeout,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		pending:      make(map[uint64]time.Time),
	}
}

func pongEnvelope(t *testing.T, seq uint64) canvas.Envelope {
	t.Helper()
	msg, err := canvas.Encode(canvas.KindPong, canvas.Pong{Seq: seq})
	require.NoError(t, err)
	env, err := canvas.Decode(msg)
	require.NoError(t, err)
	return env
}

func TestLatePongIsNotReported(t *testing.T) {
	b := NewBoard()
	c := newIdleConn(b, 10*time.Millisecond)
	c.pending[7] = time.Now().Add(-time.Second)

	c.handlePong(pongEnvelope(t, 7))
	assert.Zero(t, b.Latency())
	assert.Empty(t, c.pending)
}

func TestPongWithUnknownSeqIsIgnored(t *testing.T) {
	b := NewBoard()
	c := newIdleConn(b, time.Second)
	c.pending[1] = time.Now()

	c.handlePong(pongEnvelope(t, 99))
	assert.Zero(t, b.Latency())
	assert.Contains(t, c.pending, uint64(1))

	c.handlePong(pongEnvelope(t, 1))
	assert.Positive(t, b.Latency())
}

func TestExpiredPingsArePruned(t *testing.T) {
	c := newIdleConn(NewBoard(), 10*time.Millisecond)
	c.pending[7] = time.Now().Add(-time.Second)

	go c.probeLatency()
	defer close(c.done)

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, stale := c.pending[7]
		return !stale && len(c.pending) > 0
	}, time.Second, 5*time.Millisecond)

	var ping canvas.PingRequest
	env, err := canvas.Decode(<-c.send)
	require.NoError(t, err)
	assert.Equal(t, canvas.KindPing, env.Type)
	require.NoError(t, json.Unmarshal(env.Data, &ping))
	assert.Positive(t, ping.Seq)
}
