package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies a message on the wire. The set is closed: anything the
// decoder does not recognise becomes KindUnknown and is dropped.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInit
	KindUserJoin
	KindUserLeave
	KindCursor
	KindStrokeBegin
	KindStrokePoint
	KindStrokeEnd
	KindStrokeCommit
	KindUndo
	KindRedo
	KindRevoke
	KindReapply
	KindPing
	KindPong
	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:      "unknown",
	KindInit:         "init",
	KindUserJoin:     "user:join",
	KindUserLeave:    "user:leave",
	KindCursor:       "cursor",
	KindStrokeBegin:  "stroke:begin",
	KindStrokePoint:  "stroke:point",
	KindStrokeEnd:    "stroke:end",
	KindStrokeCommit: "stroke:commit",
	KindUndo:         "undo",
	KindRedo:         "redo",
	KindRevoke:       "revoke",
	KindReapply:      "reapply",
	KindPing:         "ping",
	KindPong:         "pong",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := KindInit; k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= kindCount {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// ParseKind maps a wire name to its Kind.
func ParseKind(name string) Kind {
	return kindsByName[name]
}

// Inbound reports whether clients are allowed to send k.
func (k Kind) Inbound() bool {
	switch k {
	case KindCursor, KindStrokeBegin, KindStrokePoint, KindStrokeEnd, KindUndo, KindRedo, KindPing:
		return true
	}
	return false
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*k = ParseKind(name)
	return nil
}

// Envelope is the frame every message travels in.
type Envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode wraps payload in an Envelope of the given kind.
func Encode(kind Kind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Data: data})
}

// Decode parses a frame. The payload is left raw for the handler of its kind.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Point is an (x, y) pair, encoded as a two element array. Extra elements
// on the wire are discarded.
type Point [2]float64

func (p Point) Finite() bool {
	return isFinite(p[0]) && isFinite(p[1])
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// TempID is the client-chosen token correlating the messages of one stroke.
// Clients may send it as a string or a number.
type TempID string

func (t *TempID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TempID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("tempId: %w", err)
	}
	*t = TempID(n.String())
	return nil
}

// Tool is the drawing tool of a stroke.
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// ParseTool returns the tool named s, defaulting to ToolBrush.
func ParseTool(s string) Tool {
	if Tool(s) == ToolEraser {
		return ToolEraser
	}
	return ToolBrush
}

const (
	MinSize     = 1
	MaxSize     = 100
	DefaultSize = 4
)

// ClampSize normalises a requested stroke size. Missing or zero sizes get
// DefaultSize; everything else is clamped into [MinSize, MaxSize].
func ClampSize(v *float64) int {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return DefaultSize
	}
	s := math.Round(*v)
	if s < MinSize {
		return MinSize
	}
	if s > MaxSize {
		return MaxSize
	}
	return int(s)
}

// Client to server payloads. Optional fields are pointers so that a missing
// value can be told apart from a zero one.

type CursorRequest struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Tool  string   `json:"tool,omitempty"`
	Color string   `json:"color,omitempty"`
}

// BeginRequest opens a live stroke. A size that is present but not a number
// fails to decode and the whole message is dropped like any other malformed
// payload; numeric sizes are clamped, never rejected.
type BeginRequest struct {
	TempID TempID   `json:"tempId"`
	Tool   string   `json:"tool,omitempty"`
	Color  string   `json:"color,omitempty"`
	Size   *float64 `json:"size,omitempty"`
	Start  *Point   `json:"start,omitempty"`
}

type PointRequest struct {
	TempID TempID `json:"tempId"`
	P      *Point `json:"p"`
}

type EndRequest struct {
	TempID TempID   `json:"tempId"`
	Tool   string   `json:"tool,omitempty"`
	Color  string   `json:"color,omitempty"`
	Size   *float64 `json:"size,omitempty"`
	Points *[]Point `json:"points,omitempty"`
}

type PingRequest struct {
	Seq uint64 `json:"seq"`
}

// Server to client payloads.

type Init struct {
	Self  User        `json:"self"`
	Users []User      `json:"users"`
	Ops   []Operation `json:"ops"`
}

type UserJoin struct {
	User User `json:"user"`
}

type UserLeave struct {
	UserID string `json:"userId"`
}

type Cursor struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Tool   string  `json:"tool,omitempty"`
	Color  string  `json:"color,omitempty"`
}

type StrokeMeta struct {
	Tool  Tool   `json:"tool"`
	Color string `json:"color"`
	Size  int    `json:"size"`
	Start Point  `json:"start"`
	T     int64  `json:"t"`
}

type StrokeBegin struct {
	UserID string     `json:"userId"`
	TempID TempID     `json:"tempId"`
	Meta   StrokeMeta `json:"meta"`
}

type StrokePoint struct {
	UserID string `json:"userId"`
	TempID TempID `json:"tempId"`
	P      Point  `json:"p"`
	T      int64  `json:"t"`
}

type StrokeCommit struct {
	UserID string    `json:"userId"`
	ID     string    `json:"id"`
	TempID TempID    `json:"tempId"`
	Op     Operation `json:"op"`
}

type Revoke struct {
	ID string `json:"id"`
}

type Reapply struct {
	Op Operation `json:"op"`
}

type Pong struct {
	Seq uint64 `json:"seq"`
}

// Float is a convenience for filling optional numeric request fields.
func Float(v float64) *float64 { return &v }

func (t TempID) String() string { return string(t) }

// NewTempID formats a counter as a TempID.
func NewTempID(prefix string, n uint64) TempID {
	return TempID(prefix + strconv.FormatUint(n, 10))
}
