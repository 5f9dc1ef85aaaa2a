package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Zelana-Labs/zksvm-v2/pkg/logging"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventType names a kind of event broadcast over the tip feed.
type EventType string

// EventBatchSealed is emitted once per sealed batch.
const EventBatchSealed EventType = "batch_sealed"

// WSEvent is a WebSocket event envelope.
type WSEvent struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// BatchSealedData is the payload of an EventBatchSealed event.
type BatchSealedData struct {
	BatchID uint64 `json:"batch_id"`
	NewRoot string `json:"new_root"`
	TxCount uint32 `json:"tx_count"`
}

// wsClient is a single connected WebSocket reader of the tip feed.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *wsHub
}

// wsHub fans batch-sealed events out to every connected client. There is
// exactly one hub per Server; the sequencer's OnSeal hook feeds it.
type wsHub struct {
	clients    map[*wsClient]bool
	broadcast  chan *WSEvent
	register   chan *wsClient
	unregister chan *wsClient
	log        *logging.Logger
	mu         sync.RWMutex
}

func newWSHub() *wsHub {
	return &wsHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan *WSEvent, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		log:        logging.GetDefault().Component("api.ws"),
	}
}

// run is the hub's event loop. It must be started exactly once, before
// any client connects.
func (h *wsHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("failed to marshal event", "error", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					h.log.Warn("client send buffer full, dropping event for client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// broadcastBatchSealed publishes a batch_sealed event. Safe to call from
// the sequencer's single-writer goroutine; the hub owns its own
// synchronization.
func (h *wsHub) broadcastBatchSealed(data BatchSealedData) {
	select {
	case h.broadcast <- &WSEvent{Type: EventBatchSealed, Data: data}:
	default:
		h.log.Warn("broadcast channel full, dropping batch_sealed event", "batch_id", data.BatchID)
	}
}

func (h *wsHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 16), hub: s.wsHub}
	s.wsHub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
