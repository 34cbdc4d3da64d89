package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/sink"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingEvery   = (pongWait * 9) / 10
	clientQueue = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the globe page may be served from a dev server
	},
}

// EventsHandler streams interaction events to websocket clients.
//
// Each connection gets its own bus subscription, so a slow client only
// loses its own events. JSON text frames are sent by default; clients
// asking for ?format=cbor get CBOR binary frames. On connect, and on a
// {"type":"snapshot_request"} message, the client receives the current
// scene snapshot.
type EventsHandler struct {
	bus   *sink.Bus
	scene SceneSource
	log   *zap.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*wsClient
}

type wsClient struct {
	id      uuid.UUID
	conn    *websocket.Conn
	format  sink.Format
	sub     *sink.Subscription
	writeMu sync.Mutex
}

// NewEventsHandler creates a handler fed by bus. scene may be nil.
func NewEventsHandler(bus *sink.Bus, scene SceneSource, log *zap.Logger) *EventsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventsHandler{
		bus:     bus,
		scene:   scene,
		log:     log,
		clients: make(map[uuid.UUID]*wsClient),
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format, err := sink.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{
		id:     uuid.New(),
		conn:   conn,
		format: format,
		sub:    h.bus.Subscribe(clientQueue),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	log := h.log.With(zap.String("client", c.id.String()), zap.String("format", string(format)))
	log.Info("events client connected")

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.sendSnapshot(c)

	done := make(chan struct{})
	go h.writeLoop(c, done)

	h.readLoop(c)

	close(done)
	h.remove(c)
	log.Info("events client disconnected")
}

func (h *EventsHandler) readLoop(c *wsClient) {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var request struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &request); err != nil {
			continue
		}
		if request.Type == "snapshot_request" {
			h.sendSnapshot(c)
		}
	}
}

func (h *EventsHandler) writeLoop(c *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-c.sub.C():
			if !ok {
				return
			}
			if err := h.send(c, sink.EventMessage(e)); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (h *EventsHandler) sendSnapshot(c *wsClient) {
	if h.scene == nil {
		return
	}
	_ = h.send(c, sink.SceneMessage(h.scene.Snapshot()))
}

func (h *EventsHandler) send(c *wsClient, m sink.Message) error {
	payload, err := sink.Encode(c.format, m)
	if err != nil {
		h.log.Error("encode message", zap.Error(err))
		return nil
	}
	messageType := websocket.TextMessage
	if c.format == sink.FormatCBOR {
		messageType = websocket.BinaryMessage
	}
	return c.write(messageType, payload)
}

func (c *wsClient) write(messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}

func (h *EventsHandler) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.sub.Close()
	_ = c.conn.Close()
}
