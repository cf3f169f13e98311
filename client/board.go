package client

import (
	"sync"
	"time"

	"collabcanvas/canvas"
)

type strokeKey struct {
	userID string
	tempID canvas.TempID
}

// Board is a Handler that mirrors the server's view: the committed
// operations in render order, the connected users, their cursors and the
// strokes other users are still drawing. It is safe for concurrent use.
type Board struct {
	mu       sync.Mutex
	self     canvas.User
	users    []canvas.User
	ops      []canvas.Operation
	live     map[strokeKey]*canvas.StrokeSession
	cursors  map[string]canvas.CursorState
	latency  time.Duration
	ready    chan struct{}
	initOnce sync.Once
}

func NewBoard() *Board {
	return &Board{
		live:    make(map[strokeKey]*canvas.StrokeSession),
		cursors: make(map[string]canvas.CursorState),
		ready:   make(chan struct{}),
	}
}

var _ Handler = (*Board)(nil)

func (b *Board) OnInit(msg canvas.Init) {
	b.mu.Lock()
	b.self = msg.Self
	b.users = append([]canvas.User(nil), msg.Users...)
	b.ops = append([]canvas.Operation(nil), msg.Ops...)
	b.live = make(map[strokeKey]*canvas.StrokeSession)
	b.cursors = make(map[string]canvas.CursorState)
	b.mu.Unlock()
	b.initOnce.Do(func() { close(b.ready) })
}

func (b *Board) OnUserJoin(msg canvas.UserJoin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == msg.User.ID {
			return
		}
	}
	b.users = append(b.users, msg.User)
}

func (b *Board) OnUserLeave(msg canvas.UserLeave) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, u := range b.users {
		if u.ID == msg.UserID {
			b.users = append(b.users[:i], b.users[i+1:]...)
			break
		}
	}
	delete(b.cursors, msg.UserID)
	for k := range b.live {
		if k.userID == msg.UserID {
			delete(b.live, k)
		}
	}
}

func (b *Board) OnCursor(msg canvas.Cursor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursors[msg.UserID] = canvas.CursorState{X: msg.X, Y: msg.Y, Tool: msg.Tool, Color: msg.Color}
}

func (b *Board) OnStrokeBegin(msg canvas.StrokeBegin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[strokeKey{msg.UserID, msg.TempID}] = &canvas.StrokeSession{
		UserID: msg.UserID,
		TempID: msg.TempID,
		Tool:   msg.Meta.Tool,
		Color:  msg.Meta.Color,
		Size:   msg.Meta.Size,
		Start:  msg.Meta.Start,
		Points: []canvas.Point{msg.Meta.Start},
	}
}

func (b *Board) OnStrokePoint(msg canvas.StrokePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.live[strokeKey{msg.UserID, msg.TempID}]; ok {
		s.Points = append(s.Points, msg.P)
	}
}

// OnStrokeCommit replaces the live stroke with the committed operation.
func (b *Board) OnStrokeCommit(msg canvas.StrokeCommit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, strokeKey{msg.UserID, msg.TempID})
	if b.indexOf(msg.Op.ID) < 0 {
		b.ops = append(b.ops, msg.Op)
	}
}

func (b *Board) OnRevoke(msg canvas.Revoke) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(msg.ID); i >= 0 {
		b.ops = append(b.ops[:i], b.ops[i+1:]...)
	}
}

func (b *Board) OnReapply(msg canvas.Reapply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.indexOf(msg.Op.ID) < 0 {
		b.ops = append(b.ops, msg.Op)
	}
}

func (b *Board) OnLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

func (b *Board) indexOf(id string) int {
	for i, op := range b.ops {
		if op.ID == id {
			return i
		}
	}
	return -1
}

// Ready is closed after the first init message.
func (b *Board) Ready() <-chan struct{} { return b.ready }

func (b *Board) Self() canvas.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self
}

func (b *Board) Users() []canvas.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]canvas.User(nil), b.users...)
}

// Ops returns the committed operations in render order.
func (b *Board) Ops() []canvas.Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]canvas.Operation(nil), b.ops...)
}

// Live returns the strokes other users have begun but not yet committed.
func (b *Board) Live() []canvas.StrokeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]canvas.StrokeSession, 0, len(b.live))
	for _, s := range b.live {
		cp := *s
		cp.Points = append([]canvas.Point(nil), s.Points...)
		out = append(out, cp)
	}
	return out
}

func (b *Board) Cursor(userID string) (canvas.CursorState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.cursors[userID]
	return s, ok
}

// Latency returns the last measured round trip, zero before the first probe.
func (b *Board) Latency() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latency
}
