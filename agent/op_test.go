package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"collabcanvas/canvas"
)

func TestPlannerStaysOnSurface(t *testing.T) {
	p := newPlanner(1, 300, 200, 50, 3)
	for i := 1; i <= 30; i++ {
		plan := p.next()
		assert.Len(t, plan.Points, 50)
		assert.GreaterOrEqual(t, plan.Size, canvas.MinSize)
		assert.LessOrEqual(t, plan.Size, canvas.MaxSize)
		for _, pt := range plan.Points {
			assert.True(t, pt[0] >= 0 && pt[0] <= 300 && pt[1] >= 0 && pt[1] <= 200, "point %v off surface", pt)
		}
		if i%3 == 0 {
			assert.Equal(t, canvas.ToolEraser, plan.Tool)
		} else {
			assert.Equal(t, canvas.ToolBrush, plan.Tool)
		}
	}
}

func TestPlannerIsDeterministic(t *testing.T) {
	a := newPlanner(42, 100, 100, 10, 0)
	b := newPlanner(42, 100, 100, 10, 0)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.next(), b.next())
	}
}

func TestPlannerAlwaysHasAStartPoint(t *testing.T) {
	p := newPlanner(1, 100, 100, 0, 0)
	assert.Len(t, p.next().Points, 1)
}

func TestWsURL(t *testing.T) {
	assert.Equal(t, "ws://10.0.0.5:8081/ws", wsURL("10.0.0.5", 8081))
}
