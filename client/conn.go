// Package client speaks the canvas protocol from the other end of the
// websocket: it sends stroke, cursor and history intents and reports what
// the server confirms to a Handler.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"collabcanvas/canvas"
)

const (
	DefaultPingInterval = 2 * time.Second
	DefaultPingTimeout  = 3 * time.Second
	writeWait           = 10 * time.Second
	sendBuffer          = 256
)

var ErrClosed = errors.New("client: connection closed")

type Option func(*Conn)

// WithPingInterval sets how often the latency probe runs. Zero disables it.
func WithPingInterval(d time.Duration) Option {
	return func(c *Conn) { c.pingInterval = d }
}

// WithPingTimeout sets how long a probe may take before its sample is dropped.
func WithPingTimeout(d time.Duration) Option {
	return func(c *Conn) { c.pingTimeout = d }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Conn) { c.dialer = d }
}

// Conn is a live connection to a canvas server.
type Conn struct {
	ws           *websocket.Conn
	h            Handler
	dialer       *websocket.Dialer
	pingInterval time.Duration
	pingTimeout  time.Duration

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	err       error

	mu      sync.Mutex
	pending map[uint64]time.Time
	pingSeq atomic.Uint64
	tempSeq atomic.Uint64
}

// Dial connects to the websocket endpoint at url and starts delivering
// server messages to h.
func Dial(ctx context.Context, url string, h Handler, opts ...Option) (*Conn, error) {
	c := &Conn{
		h:            h,
		dialer:       websocket.DefaultDialer,
		pingInterval: DefaultPingInterval,
		pingTimeout:  DefaultPingTimeout,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		pending:      make(map[uint64]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	ws, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c.ws = ws

	go c.readPump()
	go c.writePump()
	if c.pingInterval > 0 {
		go c.probeLatency()
	}
	return c, nil
}

func (c *Conn) readPump() {
	defer c.shutdown(nil)
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.shutdown(err)
			}
			return
		}
		env, err := canvas.Decode(msg)
		if err != nil {
			log.Printf("Error decoding server message: %v", err)
			continue
		}
		if env.Type == canvas.KindPong {
			c.handlePong(env)
			continue
		}
		r, ok := routes[env.Type]
		if !ok {
			continue
		}
		if err := r(c.h, env.Data); err != nil {
			log.Printf("Error decoding %s: %v", env.Type, err)
		}
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown(err)
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.ws.Close()
			return
		}
	}
}

// probeLatency sends a ping every interval. Replies slower than the timeout
// are never reported.
func (c *Conn) probeLatency() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			seq := c.pingSeq.Add(1)
			c.mu.Lock()
			for s, sent := range c.pending {
				if now.Sub(sent) > c.pingTimeout {
					delete(c.pending, s)
				}
			}
			c.pending[seq] = now
			c.mu.Unlock()
			if err := c.emit(canvas.KindPing, canvas.PingRequest{Seq: seq}); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) handlePong(env canvas.Envelope) {
	var pong canvas.Pong
	if err := json.Unmarshal(env.Data, &pong); err != nil {
		return
	}
	c.mu.Lock()
	sent, ok := c.pending[pong.Seq]
	delete(c.pending, pong.Seq)
	c.mu.Unlock()
	if !ok {
		return
	}
	if rtt := time.Since(sent); rtt <= c.pingTimeout {
		c.h.OnLatency(rtt)
	}
}

func (c *Conn) emit(kind canvas.Kind, payload any) error {
	msg, err := canvas.Encode(kind, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// NewTempID returns a stroke token unique to this connection.
func (c *Conn) NewTempID() canvas.TempID {
	return canvas.NewTempID("s", c.tempSeq.Add(1))
}

func (c *Conn) SendCursor(x, y float64, tool canvas.Tool, color string) error {
	return c.emit(canvas.KindCursor, canvas.CursorRequest{X: &x, Y: &y, Tool: string(tool), Color: color})
}

// BeginStroke opens a stroke under tempID. The server does not echo it back
// to this connection.
func (c *Conn) BeginStroke(tempID canvas.TempID, tool canvas.Tool, color string, size int, start canvas.Point) error {
	s := float64(size)
	return c.emit(canvas.KindStrokeBegin, canvas.BeginRequest{
		TempID: tempID,
		Tool:   string(tool),
		Color:  color,
		Size:   &s,
		Start:  &start,
	})
}

func (c *Conn) AddPoint(tempID canvas.TempID, p canvas.Point) error {
	return c.emit(canvas.KindStrokePoint, canvas.PointRequest{TempID: tempID, P: &p})
}

// EndStroke finishes the stroke; the server answers every client, this one
// included, with stroke:commit.
func (c *Conn) EndStroke(tempID canvas.TempID, tool canvas.Tool, color string, size int, points []canvas.Point) error {
	s := float64(size)
	if points == nil {
		points = []canvas.Point{}
	}
	return c.emit(canvas.KindStrokeEnd, canvas.EndRequest{
		TempID: tempID,
		Tool:   string(tool),
		Color:  color,
		Size:   &s,
		Points: &points,
	})
}

func (c *Conn) Undo() error { return c.emit(canvas.KindUndo, struct{}{}) }
func (c *Conn) Redo() error { return c.emit(canvas.KindRedo, struct{}{}) }

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the connection. It is nil while the
// connection is open and after a clean close.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close abandons any stroke in progress and closes the connection.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
	})
}
