package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

// hubClient is one connected websocket relay client.
type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans live-preview events out to in-process subscribers and websocket
// clients. It is itself a Bridge.
type Hub struct {
	mu            sync.RWMutex
	subscriptions []subscription
	clients       map[*hubClient]struct{}
	upgrader      websocket.Upgrader
	logger        *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// On implements Bridge for in-process subscribers.
func (h *Hub) On(events []string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscriptions = append(h.subscriptions, subscription{events: append([]string(nil), events...), handler: handler})
}

// Loader returns a Loader that resolves to the hub without suspending.
func (h *Hub) Loader() Loader {
	return hubLoader{hub: h}
}

type hubLoader struct{ hub *Hub }

func (l hubLoader) Load(context.Context) *Pending {
	p := NewPending()
	p.Resolve(l.hub, nil)
	return p
}

// Publish delivers ev to matching subscribers, in registration order, and
// queues it for every websocket client. Slow clients drop events.
func (h *Hub) Publish(ev Event) {
	metrics.BridgeEventsTotal.WithLabelValues(ev.Action).Inc()

	h.mu.RLock()
	subs := append([]subscription(nil), h.subscriptions...)
	h.mu.RUnlock()

	for _, sub := range subs {
		if sub.matches(ev.Action) {
			sub.handler(ev)
		}
	}

	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode bridge event", slog.String("error", err.Error()))
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel mid-send.
	h.mu.RLock()
	clientCount := len(h.clients)
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			h.logger.Warn("Dropping bridge event for slow client", slog.String("action", ev.Action))
		}
	}
	h.mu.RUnlock()

	h.logger.Debug("Bridge event published",
		slog.String("action", ev.Action),
		slog.Int64("storyId", ev.StoryID),
		slog.Int("clientCount", clientCount),
	)
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and relays events until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &hubClient{conn: conn, send: make(chan []byte, clientSendSize)}
	h.register(client)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(client)
	}()

	h.readPump(client)
	h.unregister(client)
	<-writerDone
	return nil
}

// Close disconnects every websocket client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.BridgeClients.Inc()
	h.logger.Debug("Bridge client registered")
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	_ = c.conn.Close()
	metrics.BridgeClients.Dec()
	h.logger.Debug("Bridge client unregistered")
}

// readPump discards inbound messages and returns when the connection closes.
func (h *Hub) readPump(c *hubClient) {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
