// -----------------------------------------------------------------------
// Stream Handler - Server-Sent Events for per-user live job updates
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	streamPingInterval = 25 * time.Second
	streamBufferSize   = 64
)

type StreamHandler struct {
	bus    interfaces.JobEventBus
	logger arbor.ILogger
}

func NewStreamHandler(bus interfaces.JobEventBus, logger arbor.ILogger) *StreamHandler {
	return &StreamHandler{
		bus:    bus,
		logger: logger,
	}
}

// StreamJobUpdates handles GET /api/jobs/stream?user={email}. Each client
// subscribes to its own user channel; updates for other users never reach
// this connection.
func (h *StreamHandler) StreamJobUpdates(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	user := r.URL.Query().Get("user")
	if user == "" {
		WriteError(w, http.StatusBadRequest, "user is required")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Buffered channel decouples the bus from the client connection; the
	// bus emits synchronously and must never block on a slow reader.
	updates := make(chan models.JobUpdateEvent, streamBufferSize)
	channel := models.JobUpdateChannel(user)
	unsubscribe := h.bus.Subscribe(channel, func(event models.JobUpdateEvent) {
		select {
		case updates <- event:
		default:
			// Buffer full, drop the update
		}
	})
	defer unsubscribe()

	h.logger.Debug().
		Str("channel", channel).
		Str("remote", r.RemoteAddr).
		Msg("Job update stream connected")

	h.sendEvent(w, flusher, "connected", map[string]interface{}{
		"ok": true,
		"ts": time.Now(),
	})

	pingTicker := time.NewTicker(streamPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Str("channel", channel).Msg("Job update stream disconnected")
			return

		case event := <-updates:
			h.sendEvent(w, flusher, "job_update", event)

		case <-pingTicker.C:
			h.sendEvent(w, flusher, "ping", map[string]interface{}{
				"timestamp": time.Now(),
			})
		}
	}
}

func (h *StreamHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
