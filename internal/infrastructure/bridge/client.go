package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// WSBridge is a Bridge backed by a websocket connection to a Hub.
type WSBridge struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu            sync.RWMutex
	subscriptions []subscription

	done chan struct{}
}

// Dial connects to a hub relay endpoint and starts dispatching its events.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*WSBridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	b := &WSBridge{conn: conn, logger: logger, done: make(chan struct{})}
	go b.readLoop()
	return b, nil
}

// WSLoader returns a Loader that dials url.
func WSLoader(url string, logger *slog.Logger) Loader {
	return LoaderFunc(func(ctx context.Context) (Bridge, error) {
		b, err := Dial(ctx, url, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

// On implements Bridge.
func (b *WSBridge) On(events []string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = append(b.subscriptions, subscription{events: append([]string(nil), events...), handler: handler})
}

// Done is closed once the connection is gone.
func (b *WSBridge) Done() <-chan struct{} {
	return b.done
}

// Close closes the connection and waits for the read loop to exit.
func (b *WSBridge) Close() error {
	err := b.conn.Close()
	<-b.done
	return err
}

func (b *WSBridge) readLoop() {
	defer close(b.done)
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Warn("Ignoring malformed bridge event", slog.String("error", err.Error()))
			continue
		}

		b.mu.RLock()
		subs := append([]subscription(nil), b.subscriptions...)
		b.mu.RUnlock()
		for _, sub := range subs {
			if sub.matches(ev.Action) {
				sub.handler(ev)
			}
		}
	}
}
