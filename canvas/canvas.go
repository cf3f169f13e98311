// Package canvas is the authoritative state of a shared drawing surface and
// the protocol that keeps clients in step with it.
//
// A Canvas owns the connection registry, the operation log, the open stroke
// sessions and the cursor table. Every inbound message is applied under one
// mutex and its notifications are queued to the recipients before the mutex
// is released, so all clients see changes in the order they were applied.
package canvas

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Peer is one connection as seen by the canvas. Send must not block: it is
// called with the canvas lock held.
type Peer interface {
	ID() string
	Send(msg []byte)
}

// Audience selects the recipients of a notification.
type Audience uint8

const (
	AudienceAll Audience = iota
	AudienceOthers
	AudienceSender
)

// ConnState is the lifecycle of a connection: Connecting, Active, Closed.
type ConnState uint8

const (
	StateConnecting ConnState = iota
	StateActive
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	default:
		return "closed"
	}
}

// Event is a durable state change, reported to the Journal.
type Event struct {
	Kind   Kind
	UserID string
	User   *User
	Op     *Operation
	OpID   string
	At     time.Time
}

// Journal receives events as they happen. Record is called with the canvas
// lock held and must not block.
type Journal interface {
	Record(Event)
}

type Option func(*Canvas)

// WithClearRedoOnCommit makes every commit drop the undone stack.
func WithClearRedoOnCommit(clear bool) Option {
	return func(c *Canvas) { c.log = NewOpLog(clear) }
}

func WithJournal(j Journal) Option {
	return func(c *Canvas) { c.journal = j }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Canvas) { c.now = now }
}

type conn struct {
	peer  Peer
	user  User
	state ConnState
}

type Canvas struct {
	mu       sync.Mutex
	registry *Registry
	log      *OpLog
	relay    *Relay
	cursors  *Cursors
	conns    map[string]*conn
	journal  Journal
	now      func() time.Time
}

func New(opts ...Option) *Canvas {
	c := &Canvas{
		registry: NewRegistry(),
		log:      NewOpLog(false),
		relay:    NewRelay(),
		cursors:  NewCursors(),
		conns:    make(map[string]*conn),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Join registers p, sends it the init snapshot and announces it to everyone
// else. Joining twice with the same id returns the existing user.
func (c *Canvas) Join(p Peer) User {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cn, ok := c.conns[p.ID()]; ok {
		return cn.user
	}
	cn := &conn{peer: p, state: StateConnecting}
	cn.user = c.registry.Connect(p.ID())
	c.conns[p.ID()] = cn

	c.emit(cn, AudienceSender, KindInit, Init{
		Self:  cn.user,
		Users: c.registry.Users(),
		Ops:   c.log.Snapshot(),
	})
	c.emit(cn, AudienceOthers, KindUserJoin, UserJoin{User: cn.user})
	cn.state = StateActive

	u := cn.user
	c.record(Event{Kind: KindUserJoin, UserID: u.ID, User: &u})
	log.Printf("%s (%s) joined, %d connected", u.Name, u.ID, c.registry.Len())
	return cn.user
}

// Leave closes connID: open strokes are discarded, the cursor is forgotten
// and the remaining users are told. Leaving twice is a no-op.
func (c *Canvas) Leave(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cn, ok := c.conns[connID]
	if !ok {
		return
	}
	cn.state = StateClosed
	delete(c.conns, connID)

	if n := c.relay.Discard(connID); n > 0 {
		log.Printf("%s left with %d open stroke(s), discarded", cn.user.Name, n)
	}
	c.cursors.Remove(cn.user.ID)
	if _, ok := c.registry.Disconnect(connID); !ok {
		return
	}
	c.emit(cn, AudienceAll, KindUserLeave, UserLeave{UserID: cn.user.ID})
	c.record(Event{Kind: KindUserLeave, UserID: cn.user.ID})
	log.Printf("%s (%s) left, %d connected", cn.user.Name, cn.user.ID, c.registry.Len())
}

type handler func(c *Canvas, cn *conn, data json.RawMessage)

// dispatchTable routes every client kind. Server-only kinds have no entry.
var dispatchTable = [kindCount]handler{
	KindCursor:      (*Canvas).handleCursor,
	KindStrokeBegin: (*Canvas).handleStrokeBegin,
	KindStrokePoint: (*Canvas).handleStrokePoint,
	KindStrokeEnd:   (*Canvas).handleStrokeEnd,
	KindUndo:        (*Canvas).handleUndo,
	KindRedo:        (*Canvas).handleRedo,
	KindPing:        (*Canvas).handlePing,
}

// Dispatch applies one raw message from connID. Malformed frames, unknown
// or server-only kinds, and messages from connections that are not active
// are dropped without a reply.
func (c *Canvas) Dispatch(connID string, raw []byte) {
	env, err := Decode(raw)
	if err != nil || !env.Type.Inbound() {
		return
	}
	h := dispatchTable[env.Type]
	if h == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cn, ok := c.conns[connID]
	if !ok || cn.state != StateActive {
		return
	}
	h(c, cn, env.Data)
}

func (c *Canvas) handleCursor(cn *conn, data json.RawMessage) {
	var req CursorRequest
	if json.Unmarshal(data, &req) != nil || req.X == nil || req.Y == nil {
		return
	}
	if !c.cursors.Update(cn.user.ID, *req.X, *req.Y, req.Tool, req.Color) {
		return
	}
	c.emit(cn, AudienceOthers, KindCursor, Cursor{
		UserID: cn.user.ID,
		X:      *req.X,
		Y:      *req.Y,
		Tool:   req.Tool,
		Color:  req.Color,
	})
}

func (c *Canvas) handleStrokeBegin(cn *conn, data json.RawMessage) {
	var req BeginRequest
	if json.Unmarshal(data, &req) != nil {
		return
	}
	s := c.relay.Begin(cn.peer.ID(), cn.user, req)
	c.emit(cn, AudienceOthers, KindStrokeBegin, StrokeBegin{
		UserID: cn.user.ID,
		TempID: s.TempID,
		Meta: StrokeMeta{
			Tool:  s.Tool,
			Color: s.Color,
			Size:  s.Size,
			Start: s.Start,
			T:     c.now().UnixMilli(),
		},
	})
}

func (c *Canvas) handleStrokePoint(cn *conn, data json.RawMessage) {
	var req PointRequest
	if json.Unmarshal(data, &req) != nil || req.P == nil || !req.P.Finite() {
		return
	}
	if !c.relay.Point(cn.peer.ID(), req.TempID, *req.P) {
		return
	}
	c.emit(cn, AudienceOthers, KindStrokePoint, StrokePoint{
		UserID: cn.user.ID,
		TempID: req.TempID,
		P:      *req.P,
		T:      c.now().UnixMilli(),
	})
}

func (c *Canvas) handleStrokeEnd(cn *conn, data json.RawMessage) {
	var req EndRequest
	if json.Unmarshal(data, &req) != nil {
		return
	}
	if req.Points != nil {
		for _, p := range *req.Points {
			if !p.Finite() {
				return
			}
		}
	}
	op := c.relay.End(cn.peer.ID(), cn.user, req)
	at := c.now()
	op.ID = c.log.NewID(at)
	op.CommittedAt = at.UnixMilli()
	c.log.Commit(op)

	c.emit(cn, AudienceAll, KindStrokeCommit, StrokeCommit{
		UserID: cn.user.ID,
		ID:     op.ID,
		TempID: req.TempID,
		Op:     op,
	})
	c.record(Event{Kind: KindStrokeCommit, UserID: cn.user.ID, Op: &op, OpID: op.ID})
}

func (c *Canvas) handleUndo(cn *conn, _ json.RawMessage) {
	op, ok := c.log.Undo()
	if !ok {
		return
	}
	c.emit(cn, AudienceAll, KindRevoke, Revoke{ID: op.ID})
	c.record(Event{Kind: KindRevoke, UserID: cn.user.ID, OpID: op.ID})
}

func (c *Canvas) handleRedo(cn *conn, _ json.RawMessage) {
	op, ok := c.log.Redo()
	if !ok {
		return
	}
	c.emit(cn, AudienceAll, KindReapply, Reapply{Op: op})
	c.record(Event{Kind: KindReapply, UserID: cn.user.ID, Op: &op, OpID: op.ID})
}

func (c *Canvas) handlePing(cn *conn, data json.RawMessage) {
	var req PingRequest
	if len(data) > 0 {
		// A ping without a usable seq is still answered.
		_ = json.Unmarshal(data, &req)
	}
	c.emit(cn, AudienceSender, KindPong, Pong{Seq: req.Seq})
}

// emit encodes payload once and queues it to the audience. Only active
// connections receive broadcasts.
func (c *Canvas) emit(from *conn, aud Audience, kind Kind, payload any) {
	msg, err := Encode(kind, payload)
	if err != nil {
		log.Printf("Error encoding %s: %v", kind, err)
		return
	}
	if aud == AudienceSender {
		from.peer.Send(msg)
		return
	}
	for _, cn := range c.conns {
		if cn.state != StateActive || (aud == AudienceOthers && cn == from) {
			continue
		}
		cn.peer.Send(msg)
	}
}

func (c *Canvas) record(ev Event) {
	if c.journal == nil {
		return
	}
	ev.At = c.now()
	c.journal.Record(ev)
}

// Snapshot returns the committed operations in render order.
func (c *Canvas) Snapshot() []Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Snapshot()
}

// Users returns the connected users in join order.
func (c *Canvas) Users() []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Users()
}

// History returns the lengths of the ops and undone stacks.
func (c *Canvas) History() (ops, undone int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Len(), c.log.UndoneLen()
}

// State reports the lifecycle state of connID. Unknown ids are closed.
func (c *Canvas) State(connID string) ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cn, ok := c.conns[connID]; ok {
		return cn.state
	}
	return StateClosed
}

// Cursor returns the last cursor reported by userID.
func (c *Canvas) Cursor(userID string) (CursorState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors.Get(userID)
}

// OpenStrokes returns the number of stroke sessions connID has open.
func (c *Canvas) OpenStrokes(connID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relay.Open(connID)
}
