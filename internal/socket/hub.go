/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package socket is the WebSocket side of the game: it turns frames into
// coordinator calls and coordinator events into frames.
package socket

import (
	"encoding/json"
	"sync"

	"github.com/Seednode/sketchbox/internal/game"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const sendBuffer = 64

type client struct {
	id      string
	addr    string
	conn    *websocket.Conn
	send    chan []byte
	rooms   map[string]struct{}
	limiter *rate.Limiter
}

// Hub tracks live connections and which rooms they listen to. It implements
// game.Publisher; none of its methods block.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	rooms   map[string]map[string]*client
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
		log:     log,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
}

// unregister forgets c, closing its send channel if the hub had not already
// dropped it.
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *client) {
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = nil

	delete(h.clients, c.id)
	close(c.send)
}

// enqueueLocked hands data to c's writer, dropping c if it cannot keep up.
func (h *Hub) enqueueLocked(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.log.WithField("conn", c.id).Warn("SERVE: Dropping slow connection")
		h.dropLocked(c)
	}
}

func (h *Hub) Subscribe(conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[conn]
	if !ok {
		return
	}

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*client)
	}
	h.rooms[room][conn] = c

	if c.rooms == nil {
		c.rooms = make(map[string]struct{})
	}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Unsubscribe(conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}

	if c, ok := h.clients[conn]; ok {
		delete(c.rooms, room)
	}
}

func (h *Hub) Broadcast(room string, ev game.Event) {
	data, err := json.Marshal(frame{Event: ev.Name, Data: ev.Data})
	if err != nil {
		h.log.WithError(err).WithField("event", ev.Name).Error("SERVE: Unable to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.rooms[room] {
		h.enqueueLocked(c, data)
	}
}

func (h *Hub) Send(conn string, ev game.Event) {
	h.sendFrame(conn, frame{Event: ev.Name, Data: ev.Data})
}

func (h *Hub) sendFrame(conn string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("SERVE: Unable to encode frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[conn]; ok {
		h.enqueueLocked(c, data)
	}
}

// Disconnect closes conn. Its writer flushes what is queued, then sends a
// close frame.
func (h *Hub) Disconnect(conn string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[conn]; ok {
		h.dropLocked(c)
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}
