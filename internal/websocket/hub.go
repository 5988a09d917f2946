package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type tokenParser interface {
	ParseToken(tokenStr string) (string, error)
}

type documentFeed interface {
	Key(userID, date string) models.DocKey
	Subscribe(ctx context.Context, key models.DocKey) (<-chan *models.DailyRecord, func(), error)
}

// Hub serves live daily log subscriptions. Each connection watches one
// document and receives a snapshot message for the current state and for
// every later change.
type Hub struct {
	mu          sync.Mutex
	connections map[string][]*websocket.Conn
	auth        tokenParser
	feed        documentFeed
	now         func() time.Time
	pongWait    time.Duration
	pingPeriod  time.Duration
}

func NewHub(auth tokenParser, feed documentFeed) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		auth:        auth,
		feed:        feed,
		now:         time.Now,
		pongWait:    pongWait,
		pingPeriod:  pingPeriod,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.auth.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	date, err := models.ParseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	key := h.feed.Key(userID, date)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	updates, unsubscribe, err := h.feed.Subscribe(ctx, key)
	if err != nil {
		logger.L.Errorw("subscription failed", "path", key.Path(), "error", err)
		conn.WriteJSON(models.WSMessage{
			Type:    models.WSTypeError,
			Payload: models.ErrorEvent{ErrorCode: "SUBSCRIBE_FAILED", ErrorMessage: "Live updates are unavailable"},
		})
		conn.Close()
		cancel()
		return
	}

	h.registerConnection(key.Path(), conn)

	// Reader detects disconnect. A peer that stops answering pings is dropped
	// once the read deadline passes.
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(h.pingPeriod)
		defer ticker.Stop()
		defer h.unregisterConnection(key.Path(), conn)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			case rec, ok := <-updates:
				if !ok {
					return
				}
				msg := models.WSMessage{
					Type:    models.WSTypeSnapshot,
					Payload: models.SnapshotEvent{Path: key.Path(), Exists: rec != nil, Record: rec},
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()
}

func (h *Hub) registerConnection(path string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[path] = append(h.connections[path], conn)
	logger.L.Infow("WebSocket connected", "path", path, "total", len(h.connections[path]))
}

func (h *Hub) unregisterConnection(path string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[path]
	for i, c := range conns {
		if c == conn {
			h.connections[path] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[path]) == 0 {
		delete(h.connections, path)
	}

	logger.L.Infow("WebSocket disconnected", "path", path)
}

// Close drops every open connection. Their subscriptions end as the readers fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
		}
	}
}
