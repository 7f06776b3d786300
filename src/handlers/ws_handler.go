package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/security/validation"
	"github.com/username/priceboard/backend/src/services"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketHandler runs one Session per connection. Notifications reach every
// connection through the hub.
type WebSocketHandler struct {
	board    *services.BoardService
	hub      *services.NotificationHub
	debounce time.Duration
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(board *services.BoardService, hub *services.NotificationHub, debounce time.Duration, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		board:    board,
		hub:      hub,
		debounce: debounce,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(allowedOrigins, origin)
			},
		},
	}
}

// wsClient serializes writes; the session, its debouncer and the hub all
// write to the same connection.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(msg services.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(msg)
}

func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Warn("WebSocket upgrade error", "error", err, "remoteAddr", r.RemoteAddr)
		return
	}
	defer conn.Close()

	client := &wsClient{conn: conn}
	session := services.NewSession(h.board, client, h.debounce)
	defer session.Close()

	h.hub.Subscribe(client)
	defer h.hub.Unsubscribe(client)

	logger.L.Info("WebSocket client connected", "remoteAddr", r.RemoteAddr)
	if err := session.PushView(); err != nil {
		logger.L.Warn("Initial view push failed", "error", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.L.Warn("WebSocket read error", "error", err)
			}
			break
		}

		var ev services.InputEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			if sendErr := client.Send(services.Message{Type: services.MessageError, Error: "malformed event"}); sendErr != nil {
				break
			}
			continue
		}
		ev.Value = validation.CleanInput(ev.Value)
		if err := session.Handle(r.Context(), ev); err != nil {
			logger.L.Warn("WebSocket write error, closing", "error", err)
			break
		}
	}
	logger.L.Info("WebSocket client disconnected", "remoteAddr", r.RemoteAddr)
}
