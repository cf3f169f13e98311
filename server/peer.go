package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"collabcanvas/canvas"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// peer is one websocket connection. The canvas queues to send; writePump
// drains it. A peer whose queue is full is dropped rather than waited on.
type peer struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	once      sync.Once
	closeCode int
}

func newPeer(conn *websocket.Conn, buffer int) *peer {
	return &peer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (p *peer) ID() string { return p.id }

func (p *peer) Send(msg []byte) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.send <- msg:
	default:
		log.Printf("Peer %s is not keeping up, dropping it", p.id)
		p.shutdown(websocket.ClosePolicyViolation)
	}
}

func (p *peer) shutdown(code int) {
	p.once.Do(func() {
		p.closeCode = code
		close(p.done)
	})
}

func (p *peer) readPump(hub *Hub, cv *canvas.Canvas) {
	defer func() {
		cv.Leave(p.id)
		hub.remove(p)
		p.shutdown(websocket.CloseNormalClosure)
	}()
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Peer %s disconnected: %v", p.id, err)
			}
			return
		}
		cv.Dispatch(p.id, msg)
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case msg := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				p.shutdown(websocket.CloseAbnormalClosure)
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.shutdown(websocket.CloseAbnormalClosure)
				return
			}
		case <-p.done:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(p.closeCode, ""))
			return
		}
	}
}

func serveWs(hub *Hub, cv *canvas.Canvas, buffer int, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	p := newPeer(conn, buffer)
	if !hub.add(p) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	cv.Join(p)
	go p.writePump()
	go p.readPump(hub, cv)
}
