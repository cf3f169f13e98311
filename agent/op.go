package main

import (
	"math"
	"math/rand"

	"collabcanvas/canvas"
)

// strokePlan is one stroke the agent will draw: a random walk that stays
// inside the surface.
type strokePlan struct {
	Tool   canvas.Tool
	Color  string
	Size   int
	Points []canvas.Point
}

type planner struct {
	rng           *rand.Rand
	width, height float64
	points        int
	eraserEvery   int
	drawn         int
}

func newPlanner(seed int64, width, height float64, points, eraserEvery int) *planner {
	if points < 1 {
		points = 1
	}
	return &planner{
		rng:         rand.New(rand.NewSource(seed)),
		width:       width,
		height:      height,
		points:      points,
		eraserEvery: eraserEvery,
	}
}

// next plans a stroke. Every eraserEvery-th stroke is an eraser pass; an
// empty color lets the server use the agent's palette color.
func (p *planner) next() strokePlan {
	p.drawn++
	plan := strokePlan{
		Tool: canvas.ToolBrush,
		Size: 2 + p.rng.Intn(14),
	}
	if p.eraserEvery > 0 && p.drawn%p.eraserEvery == 0 {
		plan.Tool = canvas.ToolEraser
		plan.Size *= 3
	}

	x, y := p.rng.Float64()*p.width, p.rng.Float64()*p.height
	heading := p.rng.Float64() * 2 * math.Pi
	plan.Points = make([]canvas.Point, 0, p.points)
	for i := 0; i < p.points; i++ {
		plan.Points = append(plan.Points, canvas.Point{x, y})
		heading += (p.rng.Float64() - 0.5) * 0.8
		step := 4 + p.rng.Float64()*8
		x = clamp(x+math.Cos(heading)*step, 0, p.width)
		y = clamp(y+math.Sin(heading)*step, 0, p.height)
	}
	return plan
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
