package client

import (
	"encoding/json"
	"time"

	"collabcanvas/canvas"
)

// Handler observes everything the server sends. Every method is required;
// embed a *Board to pick up a working replica and override what you need.
// Methods are called one at a time from the connection's read goroutine.
type Handler interface {
	OnInit(canvas.Init)
	OnUserJoin(canvas.UserJoin)
	OnUserLeave(canvas.UserLeave)
	OnCursor(canvas.Cursor)
	OnStrokeBegin(canvas.StrokeBegin)
	OnStrokePoint(canvas.StrokePoint)
	OnStrokeCommit(canvas.StrokeCommit)
	OnRevoke(canvas.Revoke)
	OnReapply(canvas.Reapply)
	OnLatency(time.Duration)
}

type route func(h Handler, data json.RawMessage) error

func decodeTo[T any](call func(Handler, T)) route {
	return func(h Handler, data json.RawMessage) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		call(h, v)
		return nil
	}
}

// routes maps each server kind to its Handler method. Pong is handled by the
// connection itself.
var routes = map[canvas.Kind]route{
	canvas.KindInit:         decodeTo(Handler.OnInit),
	canvas.KindUserJoin:     decodeTo(Handler.OnUserJoin),
	canvas.KindUserLeave:    decodeTo(Handler.OnUserLeave),
	canvas.KindCursor:       decodeTo(Handler.OnCursor),
	canvas.KindStrokeBegin:  decodeTo(Handler.OnStrokeBegin),
	canvas.KindStrokePoint:  decodeTo(Handler.OnStrokePoint),
	canvas.KindStrokeCommit: decodeTo(Handler.OnStrokeCommit),
	canvas.KindRevoke:       decodeTo(Handler.OnRevoke),
	canvas.KindReapply:      decodeTo(Handler.OnReapply),
}
