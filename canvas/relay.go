package canvas

// StrokeSession is a stroke that is still being drawn. It never reaches the
// operation log unless it is ended.
type StrokeSession struct {
	UserID string
	TempID TempID
	Tool   Tool
	Color  string
	Size   int
	Start  Point
	Points []Point
}

// Relay holds the open stroke sessions of every connection. Sessions of
// different connections are independent. Not safe for concurrent use.
type Relay struct {
	sessions map[string]map[TempID]*StrokeSession
}

func NewRelay() *Relay {
	return &Relay{sessions: make(map[string]map[TempID]*StrokeSession)}
}

// Begin opens a session for (connID, req.TempID), replacing any session
// already open under the same token. Size is clamped, an unknown tool
// becomes a brush and a missing color falls back to the owner's color.
func (r *Relay) Begin(connID string, owner User, req BeginRequest) StrokeSession {
	s := &StrokeSession{
		UserID: owner.ID,
		TempID: req.TempID,
		Tool:   ParseTool(req.Tool),
		Color:  req.Color,
		Size:   ClampSize(req.Size),
	}
	if s.Color == "" {
		s.Color = owner.Color
	}
	if req.Start != nil && req.Start.Finite() {
		s.Start = *req.Start
	}
	s.Points = []Point{s.Start}

	open, ok := r.sessions[connID]
	if !ok {
		open = make(map[TempID]*StrokeSession)
		r.sessions[connID] = open
	}
	open[req.TempID] = s
	return *s
}

// Point appends p to the matching session. It reports false for a stale
// token, in which case nothing changes.
func (r *Relay) Point(connID string, tempID TempID, p Point) bool {
	s, ok := r.sessions[connID][tempID]
	if !ok {
		return false
	}
	s.Points = append(s.Points, p)
	return true
}

// End closes the session named by req and turns it into an operation
// without an id. Fields the end message carries win over the session's;
// omitted ones fall back to the session and then to defaults. An explicit
// empty point list yields an operation with no points.
func (r *Relay) End(connID string, owner User, req EndRequest) Operation {
	s, open := r.take(connID, req.TempID)

	op := Operation{UserID: owner.ID, Color: req.Color}
	switch {
	case req.Tool != "":
		op.Tool = ParseTool(req.Tool)
	case open:
		op.Tool = s.Tool
	default:
		op.Tool = ToolBrush
	}
	if op.Color == "" {
		op.Color = owner.Color
		if open {
			op.Color = s.Color
		}
	}
	switch {
	case req.Size != nil:
		op.Size = ClampSize(req.Size)
	case open:
		op.Size = s.Size
	default:
		op.Size = DefaultSize
	}
	switch {
	case req.Points != nil:
		op.Points = append([]Point{}, (*req.Points)...)
	case open:
		op.Points = s.Points
	default:
		op.Points = []Point{}
	}
	return op
}

func (r *Relay) take(connID string, tempID TempID) (*StrokeSession, bool) {
	open := r.sessions[connID]
	s, ok := open[tempID]
	if !ok {
		return nil, false
	}
	delete(open, tempID)
	if len(open) == 0 {
		delete(r.sessions, connID)
	}
	return s, true
}

// Lookup returns a copy of an open session.
func (r *Relay) Lookup(connID string, tempID TempID) (StrokeSession, bool) {
	s, ok := r.sessions[connID][tempID]
	if !ok {
		return StrokeSession{}, false
	}
	cp := *s
	cp.Points = append([]Point(nil), s.Points...)
	return cp, true
}

// Discard drops every open session of connID and returns how many there were.
func (r *Relay) Discard(connID string) int {
	n := len(r.sessions[connID])
	delete(r.sessions, connID)
	return n
}

// Open returns the number of sessions connID has open.
func (r *Relay) Open(connID string) int {
	return len(r.sessions[connID])
}
