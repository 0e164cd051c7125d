package relay

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/washdeck/backend/internal/dataset"
	"github.com/washdeck/backend/internal/feed"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Hub fans snapshots, forwarded feed messages, and feed status changes
// out to connected dashboard clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	agg  *dataset.Aggregator
	bus  *feed.Bus
	mode string

	snapshotTicker *time.Ticker
	done           chan struct{}
	unsubs         []func()
}

// NewHub wires the hub to the aggregator and feed bus. live says
// whether a connection manager is running; it only affects the mode
// reported to clients. Call Close exactly once when done.
func NewHub(agg *dataset.Aggregator, bus *feed.Bus, live bool, snapshotInterval time.Duration) *Hub {
	h := &Hub{
		clients: make(map[*client]bool),
		agg:     agg,
		bus:     bus,
		mode:    "polling",
	}
	if live {
		h.mode = "live"
	}

	h.unsubs = append(h.unsubs,
		bus.SubscribeMessages(h.forwardFeed),
		bus.SubscribeStatus(h.forwardStatus),
	)

	h.done = make(chan struct{})
	h.snapshotTicker = time.NewTicker(snapshotInterval)
	go h.snapshotLoop()

	return h
}

// Mode reports "live" or "polling".
func (h *Hub) Mode() string {
	return h.mode
}

// AddClient registers a websocket connection and immediately queues
// the current snapshot and feed status, so a fresh client renders
// without waiting for the next push. The hello frames are queued
// before the client is visible to broadcast or Close.
func (h *Hub) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	if snap := h.agg.Snapshot(); snap != nil {
		if data, err := json.Marshal(WSMessage{Type: MsgSnapshot, Payload: snap}); err == nil {
			c.enqueue(data)
		}
	}
	status := WSMessage{
		Type:    MsgFeedStatus,
		Payload: FeedStatusPayload{Mode: h.mode, State: h.bus.State()},
	}
	if data, err := json.Marshal(status); err == nil {
		c.enqueue(data)
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	return c
}

func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		// Client too slow, drop the message
	}
}

func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PushSnapshot broadcasts the current snapshot to every client. Called
// after a reload so clients don't wait for the periodic push.
func (h *Hub) PushSnapshot() {
	if snap := h.agg.Snapshot(); snap != nil {
		h.broadcast(WSMessage{Type: MsgSnapshot, Payload: snap})
	}
}

func (h *Hub) forwardFeed(msg feed.Message) {
	// Forward the upstream envelope untouched; clients understand the
	// feed's own message types.
	h.broadcast(msg)
}

func (h *Hub) forwardStatus(state feed.State) {
	h.broadcast(WSMessage{
		Type:    MsgFeedStatus,
		Payload: FeedStatusPayload{Mode: h.mode, State: state},
	})
}

func (h *Hub) snapshotLoop() {
	for {
		select {
		case <-h.done:
			return
		case <-h.snapshotTicker.C:
			h.PushSnapshot()
		}
	}
}

func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[relay] broadcast marshal error: %v", err)
		return
	}

	// Sends happen under the read lock and close under the write lock,
	// so a send can never race a close. Slow clients are collected and
	// dropped after the lock is released.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("[relay] client can't keep up, disconnecting")
		h.RemoveClient(c)
	}
}

// Close stops the periodic push, detaches from the bus, and closes
// every client connection.
func (h *Hub) Close() {
	close(h.done)
	h.snapshotTicker.Stop()
	for _, unsub := range h.unsubs {
		unsub()
	}

	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}
