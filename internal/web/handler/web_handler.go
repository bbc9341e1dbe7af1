package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rizkirmdhn/vidsweep/internal/web/websocket"
	"github.com/rizkirmdhn/vidsweep/pkg/models"
	"github.com/sirupsen/logrus"
)

// Handler serves the status panel. It is also a messaging.Client, so the
// run's publisher can feed it events directly.
type Handler struct {
	log   *logrus.Logger
	wsHub *websocket.Hub

	mu       sync.RWMutex
	last     *models.Event
	progress models.DownloadProgressState
	runID    string
}

// NewHandler creates a Handler broadcasting through hub. The caller runs
// the hub.
func NewHandler(log *logrus.Logger, hub *websocket.Hub) *Handler {
	return &Handler{
		log:   log,
		wsHub: hub,
	}
}

// RegisterRoutes registers all the routes for the status panel
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.HealthHandler())
	r.GET("/ws", websocket.Handler(h.wsHub, h.log))

	api := r.Group("/api")
	{
		api.GET("/progress", h.ProgressHandler())
	}
}

// HealthHandler always reports ok while the process is serving
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ProgressHandler returns the latest download progress and event
func (h *Handler) ProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		c.JSON(http.StatusOK, gin.H{
			"run_id":   h.runID,
			"progress": h.progress,
			"percent":  h.progress.PercentComplete(),
			"last":     h.last,
			"clients":  h.wsHub.ClientCount(),
		})
	}
}

// PublishJSON records ev and broadcasts it to panel viewers. Only
// models.Event payloads are accepted.
func (h *Handler) PublishJSON(exchange, routingKey string, data interface{}) error {
	ev, ok := data.(models.Event)
	if !ok {
		return fmt.Errorf("unsupported event payload %T", data)
	}

	h.mu.Lock()
	h.last = &ev
	h.runID = ev.RunID
	if ev.Progress != nil {
		h.progress = *ev.Progress
	}
	h.mu.Unlock()

	message, err := json.Marshal(map[string]any{
		"routing_key": routingKey,
		"event":       ev,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal WebSocket message: %w", err)
	}

	h.wsHub.Broadcast(message)
	return nil
}

// Close is a no-op; the hub stops with its context
func (h *Handler) Close() error {
	return nil
}
