package canvas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindNames(t *testing.T) {
	for k := KindInit; k < kindCount; k++ {
		assert.Equal(t, k, ParseKind(k.String()), "kind %d", k)
	}
	assert.Equal(t, KindUnknown, ParseKind("stroke:erase"))
	assert.Equal(t, KindUnknown, ParseKind("unknown"))
	assert.Equal(t, "unknown", Kind(200).String())
}

func TestInboundKinds(t *testing.T) {
	inbound := []Kind{KindCursor, KindStrokeBegin, KindStrokePoint, KindStrokeEnd, KindUndo, KindRedo, KindPing}
	for _, k := range inbound {
		assert.True(t, k.Inbound(), k.String())
	}
	for _, k := range []Kind{KindInit, KindUserJoin, KindUserLeave, KindStrokeCommit, KindRevoke, KindReapply, KindPong, KindUnknown} {
		assert.False(t, k.Inbound(), k.String())
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	msg, err := Encode(KindRevoke, Revoke{ID: "op-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"revoke","data":{"id":"op-1"}}`, string(msg))

	env, err := Decode([]byte(`{"type":"stroke:erase","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, env.Type)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestPointDiscardsExtraElements(t *testing.T) {
	var p Point
	require.NoError(t, json.Unmarshal([]byte(`[1.5, 2, 99]`), &p))
	assert.Equal(t, Point{1.5, 2}, p)

	out, err := json.Marshal(Point{3, 4})
	require.NoError(t, err)
	assert.Equal(t, `[3,4]`, string(out))
}

func TestTempIDAcceptsNumbers(t *testing.T) {
	var req PointRequest
	require.NoError(t, json.Unmarshal([]byte(`{"tempId": 17, "p": [1, 2]}`), &req))
	assert.Equal(t, TempID("17"), req.TempID)

	require.NoError(t, json.Unmarshal([]byte(`{"tempId": "t1"}`), &req))
	assert.Equal(t, TempID("t1"), req.TempID)

	assert.Error(t, json.Unmarshal([]byte(`{"tempId": {"a": 1}}`), &req))
}

func TestClampSize(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want int
	}{
		{"missing", nil, DefaultSize},
		{"zero", Float(0), DefaultSize},
		{"negative", Float(-5), MinSize},
		{"in range", Float(6), 6},
		{"fraction", Float(6.6), 7},
		{"too large", Float(1000), MaxSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampSize(tt.in))
		})
	}
}

func TestParseTool(t *testing.T) {
	assert.Equal(t, ToolEraser, ParseTool("eraser"))
	assert.Equal(t, ToolBrush, ParseTool("brush"))
	assert.Equal(t, ToolBrush, ParseTool("spraycan"))
	assert.Equal(t, ToolBrush, ParseTool(""))
}
