package canvas

// CursorState is the last reported pointer of a user.
type CursorState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Tool  string  `json:"tool,omitempty"`
	Color string  `json:"color,omitempty"`
}

// Cursors holds the latest cursor per user id. No history is kept.
type Cursors struct {
	states map[string]CursorState
}

func NewCursors() *Cursors {
	return &Cursors{states: make(map[string]CursorState)}
}

// Update stores a cursor position. Non-finite coordinates are rejected and
// leave the stored state untouched.
func (c *Cursors) Update(userID string, x, y float64, tool, color string) bool {
	if !isFinite(x) || !isFinite(y) {
		return false
	}
	c.states[userID] = CursorState{X: x, Y: y, Tool: tool, Color: color}
	return true
}

func (c *Cursors) Get(userID string) (CursorState, bool) {
	s, ok := c.states[userID]
	return s, ok
}

func (c *Cursors) Remove(userID string) {
	delete(c.states, userID)
}
