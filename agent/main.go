package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"

	"collabcanvas/canvas"
	"collabcanvas/client"
)

type options struct {
	url           string
	discoverFor   time.Duration
	strokes       int
	points        int
	interval      time.Duration
	undoEvery     int
	eraserEvery   int
	width, height float64
	seed          int64
}

func main() {
	var o options
	flag.StringVar(&o.url, "url", "", "Websocket URL of the server; discovered over mDNS when empty")
	flag.DurationVar(&o.discoverFor, "discover", 15*time.Second, "How long to browse for a server")
	flag.IntVar(&o.strokes, "strokes", 20, "Number of strokes to draw (0 draws until interrupted)")
	flag.IntVar(&o.points, "points", 24, "Points per stroke")
	flag.DurationVar(&o.interval, "interval", 30*time.Millisecond, "Delay between points")
	flag.IntVar(&o.undoEvery, "undo-every", 5, "Undo every n-th stroke (0 never)")
	flag.IntVar(&o.eraserEvery, "eraser-every", 7, "Use the eraser for every n-th stroke (0 never)")
	flag.Float64Var(&o.width, "width", 1200, "Surface width")
	flag.Float64Var(&o.height, "height", 800, "Surface height")
	flag.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.url == "" {
		dctx, cancel := context.WithTimeout(ctx, o.discoverFor)
		url, err := discover(dctx)
		cancel()
		if err != nil {
			log.Fatalf("Could not find a server: %v", err)
		}
		o.url = url
	}

	board := &agentBoard{Board: client.NewBoard()}
	conn, err := dialWithRetry(ctx, o.url, board)
	if err != nil {
		log.Fatalf("Could not connect to %s: %v", o.url, err)
	}
	defer conn.Close()

	select {
	case <-board.Ready():
	case <-conn.Done():
		log.Fatalf("Connection closed before init: %v", conn.Err())
	case <-ctx.Done():
		return
	}
	self := board.Self()
	log.Printf("Joined as %s (%s), %d op(s) on the canvas", self.Name, self.Color, len(board.Ops()))

	if err := draw(ctx, conn, o); err != nil && ctx.Err() == nil {
		log.Printf("Stopped drawing: %v", err)
	}
	log.Printf("Done: %d op(s) on the canvas, %d user(s) connected, last latency %v",
		len(board.Ops()), len(board.Users()), board.Latency())
}

// agentBoard logs peers coming and going on top of the replica.
type agentBoard struct {
	*client.Board
}

func (b *agentBoard) OnUserJoin(msg canvas.UserJoin) {
	b.Board.OnUserJoin(msg)
	log.Printf("%s joined", msg.User.Name)
}

func (b *agentBoard) OnUserLeave(msg canvas.UserLeave) {
	b.Board.OnUserLeave(msg)
	log.Printf("User %s left", msg.UserID)
}

func dialWithRetry(ctx context.Context, url string, h client.Handler) (*client.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	var conn *client.Conn
	err := backoff.Retry(func() error {
		c, err := client.Dial(ctx, url, h)
		if err != nil {
			log.Printf("Dial failed, retrying: %v", err)
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(b, ctx))
	return conn, err
}

// draw streams strokes point by point the way a pointer would, moving the
// cursor along, and undoes every undoEvery-th stroke.
func draw(ctx context.Context, conn *client.Conn, o options) error {
	plans := newPlanner(o.seed, o.width, o.height, o.points, o.eraserEvery)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for n := 1; o.strokes == 0 || n <= o.strokes; n++ {
		plan := plans.next()
		tmp := conn.NewTempID()
		if err := conn.BeginStroke(tmp, plan.Tool, plan.Color, plan.Size, plan.Points[0]); err != nil {
			return err
		}
		for _, p := range plan.Points[1:] {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-conn.Done():
				return client.ErrClosed
			case <-ticker.C:
			}
			if err := conn.SendCursor(p[0], p[1], plan.Tool, plan.Color); err != nil {
				return err
			}
			if err := conn.AddPoint(tmp, p); err != nil {
				return err
			}
		}
		if err := conn.EndStroke(tmp, plan.Tool, plan.Color, plan.Size, plan.Points); err != nil {
			return err
		}
		if o.undoEvery > 0 && n%o.undoEvery == 0 {
			if err := conn.Undo(); err != nil {
				return err
			}
		}
	}
	return nil
}
