// -----------------------------------------------------------------------
// WebSocket Handler - Live job updates over a persistent connection
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 25 * time.Second
)

// wsMessage is the envelope pushed to WebSocket clients
type wsMessage struct {
	Type      string                 `json:"type"`
	Update    *models.JobUpdateEvent `json:"update,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type WebSocketHandler struct {
	bus              interfaces.JobEventBus
	logger           arbor.ILogger
	mu               sync.Mutex
	clients          map[*websocket.Conn]func() // conn -> unsubscribe
	serverInstanceID string                     // Clients use this to detect server restarts
}

func NewWebSocketHandler(bus interfaces.JobEventBus, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		bus:              bus,
		logger:           logger,
		clients:          make(map[*websocket.Conn]func()),
		serverInstanceID: uuid.New().String(),
	}
}

// HandleWebSocket handles GET /ws?user={email}. The connection receives the
// same per-user job updates as the SSE stream.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	updates := make(chan models.JobUpdateEvent, 64)
	channel := models.JobUpdateChannel(user)
	unsubscribe := h.bus.Subscribe(channel, func(event models.JobUpdateEvent) {
		select {
		case updates <- event:
		default:
			// Buffer full, drop the update
		}
	})

	h.mu.Lock()
	h.clients[conn] = unsubscribe
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().
		Str("channel", channel).
		Str("remote", r.RemoteAddr).
		Int("clients", count).
		Msg("WebSocket client connected")

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(wsMessage{Type: "connected", Timestamp: time.Now()}); err != nil {
		h.drop(conn)
		return
	}

	// Reader goroutine: client messages are ignored, but reading drives
	// close detection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()
	defer h.drop(conn)

	for {
		select {
		case <-done:
			return

		case event := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(wsMessage{Type: "job_update", Update: &event, Timestamp: time.Now()}); err != nil {
				h.logger.Debug().Err(err).Str("channel", channel).Msg("WebSocket write failed")
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServerInstanceID returns the id generated at startup
func (h *WebSocketHandler) ServerInstanceID() string {
	return h.serverInstanceID
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *WebSocketHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	unsubscribe, ok := h.clients[conn]
	delete(h.clients, conn)
	remaining := len(h.clients)
	h.mu.Unlock()

	if ok {
		unsubscribe()
		conn.Close()
		h.logger.Info().Int("clients", remaining).Msg("WebSocket client disconnected")
	}
}
