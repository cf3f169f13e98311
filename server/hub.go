package main

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub keeps the set of open peers so they can be closed on shutdown. Fan-out
// itself belongs to the canvas.
type Hub struct {
	peers      map[*peer]bool
	register   chan *peer
	unregister chan *peer
	done       chan struct{}
	// counts peers whose readPump has not finished
	active sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		peers:      make(map[*peer]bool),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		done:       make(chan struct{}),
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case p := <-h.register:
			h.peers[p] = true
			h.active.Add(1)
			log.Printf("Peer registered. Total peers: %d", len(h.peers))
		case p := <-h.unregister:
			if _, ok := h.peers[p]; ok {
				delete(h.peers, p)
				log.Printf("Peer unregistered. Total peers: %d", len(h.peers))
			}
		case <-ctx.Done():
			for p := range h.peers {
				p.shutdown(websocket.CloseGoingAway)
			}
			log.Printf("Hub stopped, closed %d peer(s)", len(h.peers))
			return
		}
	}
}

// add reports false once the hub has stopped.
func (h *Hub) add(p *peer) bool {
	select {
	case h.register <- p:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters p once its connection has left the canvas.
func (h *Hub) remove(p *peer) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
	h.active.Done()
}

// wait returns after the hub has stopped and every peer it accepted has
// left the canvas.
func (h *Hub) wait() {
	<-h.done
	h.active.Wait()
}
