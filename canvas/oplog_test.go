package canvas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitN(l *OpLog, n int) []Operation {
	var ops []Operation
	for i := 0; i < n; i++ {
		op := Operation{ID: l.NewID(time.Now()), Tool: ToolBrush, Size: DefaultSize, Points: []Point{}}
		l.Commit(op)
		ops = append(ops, op)
	}
	return ops
}

func ids(ops []Operation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}

func TestOpLogUndoRedoRestoresOrder(t *testing.T) {
	l := NewOpLog(false)
	commitN(l, 3)
	before := ids(l.Snapshot())

	op, ok := l.Undo()
	require.True(t, ok)
	assert.Equal(t, before[2], op.ID)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, l.UndoneLen())

	op, ok = l.Redo()
	require.True(t, ok)
	assert.Equal(t, before[2], op.ID)
	assert.Equal(t, before, ids(l.Snapshot()))
	assert.Zero(t, l.UndoneLen())
}

func TestOpLogUndoRedoStackOrder(t *testing.T) {
	l := NewOpLog(false)
	commitN(l, 3)
	before := ids(l.Snapshot())

	for i := 0; i < 3; i++ {
		_, ok := l.Undo()
		require.True(t, ok)
	}
	assert.Zero(t, l.Len())
	for i := 0; i < 3; i++ {
		_, ok := l.Redo()
		require.True(t, ok)
	}
	assert.Equal(t, before, ids(l.Snapshot()))
}

func TestOpLogEmptyStacksAreNoOps(t *testing.T) {
	l := NewOpLog(false)
	_, ok := l.Undo()
	assert.False(t, ok)
	_, ok = l.Redo()
	assert.False(t, ok)

	commitN(l, 1)
	_, ok = l.Redo()
	assert.False(t, ok)
	assert.Equal(t, 1, l.Len())
}

func TestOpLogCommitKeepsUndone(t *testing.T) {
	l := NewOpLog(false)
	first := commitN(l, 1)[0]
	_, _ = l.Undo()
	second := commitN(l, 1)[0]

	assert.Equal(t, 1, l.UndoneLen())
	op, ok := l.Redo()
	require.True(t, ok)
	assert.Equal(t, first.ID, op.ID)
	assert.Equal(t, []string{second.ID, first.ID}, ids(l.Snapshot()))
}

func TestOpLogClearRedoOnCommit(t *testing.T) {
	l := NewOpLog(true)
	commitN(l, 1)
	_, _ = l.Undo()
	commitN(l, 1)

	assert.Zero(t, l.UndoneLen())
	_, ok := l.Redo()
	assert.False(t, ok)
	assert.Equal(t, 1, l.Len())
}

func TestOpLogSnapshotIsACopy(t *testing.T) {
	l := NewOpLog(false)
	commitN(l, 2)
	snap := l.Snapshot()
	snap[0].ID = "changed"
	assert.NotEqual(t, "changed", l.Snapshot()[0].ID)
}

func TestOpLogIDsAreUnique(t *testing.T) {
	l := NewOpLog(false)
	at := time.UnixMilli(42)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := l.NewID(at)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
