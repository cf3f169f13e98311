package canvas

import (
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
)

// Operation is a committed stroke. It is immutable once committed.
type Operation struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Tool        Tool    `json:"tool"`
	Color       string  `json:"color"`
	Size        int     `json:"size"`
	Points      []Point `json:"points"`
	CommittedAt int64   `json:"committedAt"`
}

// OpLog is the authoritative history: ops in commit order, which is also
// render order, and undone as a stack with the most recent undo last.
//
// Commit leaves undone alone unless clearRedoOnCommit is set, so a redo
// after a fresh commit can bring back an operation that predates it.
type OpLog struct {
	ops               []Operation
	undone            []Operation
	seq               uint64
	clearRedoOnCommit bool
}

func NewOpLog(clearRedoOnCommit bool) *OpLog {
	return &OpLog{clearRedoOnCommit: clearRedoOnCommit}
}

// NewID returns an operation id that has never been handed out before.
func (l *OpLog) NewID(at time.Time) string {
	id := fmt.Sprintf("%d-%d-%s", at.UnixMilli(), l.seq, ksuid.New().String())
	l.seq++
	return id
}

func (l *OpLog) Commit(op Operation) {
	l.ops = append(l.ops, op)
	if l.clearRedoOnCommit {
		l.undone = l.undone[:0]
	}
}

// Undo moves the newest operation onto the undone stack. It reports false,
// and changes nothing, when there is nothing to undo.
func (l *OpLog) Undo() (Operation, bool) {
	if len(l.ops) == 0 {
		return Operation{}, false
	}
	op := l.ops[len(l.ops)-1]
	l.ops = l.ops[:len(l.ops)-1]
	l.undone = append(l.undone, op)
	return op, true
}

// Redo puts the most recently undone operation back at the end of ops.
func (l *OpLog) Redo() (Operation, bool) {
	if len(l.undone) == 0 {
		return Operation{}, false
	}
	op := l.undone[len(l.undone)-1]
	l.undone = l.undone[:len(l.undone)-1]
	l.ops = append(l.ops, op)
	return op, true
}

// Snapshot returns a copy of ops.
func (l *OpLog) Snapshot() []Operation {
	ops := make([]Operation, len(l.ops))
	copy(ops, l.ops)
	return ops
}

func (l *OpLog) Len() int       { return len(l.ops) }
func (l *OpLog) UndoneLen() int { return len(l.undone) }
