package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// Hub keeps the websocket connections of open map pages and broadcasts
// bar events to all of them.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan BarEvent
	done      chan struct{}
	stopOnce  sync.Once
	mu        sync.Mutex
	wg        sync.WaitGroup
}

// NewHub creates a Hub and starts its broadcast goroutine.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan BarEvent, 100),
		done:      make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.broadcast:
			h.send(ev)
		}
	}
}

// send writes ev to every viewer. Writes happen outside the lock so a slow
// viewer does not block Register or Unregister.
func (h *Hub) send(ev BarEvent) {
	for _, conn := range h.snapshot() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			logrus.WithError(err).WithField("conn_ptr", fmt.Sprintf("%p", conn)).
				Info("Dropping map viewer after failed write")
			h.Unregister(conn)
			conn.Close()
		}
	}
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	return conns
}

// Register adds a viewer connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", conn)).Debug("Map viewer registered")
}

// Unregister removes a viewer connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", conn)).Debug("Map viewer unregistered")
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues ev for broadcast. It never blocks; a full queue drops the event.
func (h *Hub) Publish(_ context.Context, ev BarEvent) error {
	select {
	case h.broadcast <- ev:
	default:
		logrus.WithField("type", ev.Type).Warn("Bar broadcast channel full, dropping event")
	}
	return nil
}

// Stop ends the broadcast loop and closes all viewer connections. It is
// safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(h.stop)
}

func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}
