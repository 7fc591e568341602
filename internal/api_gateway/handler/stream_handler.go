package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tabsplit/internal/notification"
)

const defaultKeepAlive = 15 * time.Second

// RoomSubscriber opens live feeds on notification rooms
type RoomSubscriber interface {
	Subscribe(room string) (*notification.Subscription, error)
	Subscribers(room string) int
}

// StreamHandler relays room notifications as server-sent events
type StreamHandler struct {
	hub       RoomSubscriber
	keepAlive time.Duration
	logger    *slog.Logger
}

// NewStreamHandler creates a stream handler. keepAlive <= 0 uses the default interval.
func NewStreamHandler(logger *slog.Logger, hub RoomSubscriber, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &StreamHandler{
		hub:       hub,
		keepAlive: keepAlive,
		logger:    logger,
	}
}

// Events streams the room until the client disconnects or the hub shuts down
func (h *StreamHandler) Events(c *gin.Context) {
	room := c.Param("room")
	if room == "" {
		RespondBadRequest(c, "room is required")
		return
	}

	sub, err := h.hub.Subscribe(room)
	if err != nil {
		if errors.Is(err, notification.ErrHubClosed) {
			RespondWithError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "notifications are shutting down")
			return
		}
		h.logger.Error("Failed to subscribe to room", "room", room, "error", err)
		RespondInternalError(c)
		return
	}
	defer sub.Cancel()

	logger := h.logger.With("room", room)
	subscribers := h.hub.Subscribers(room)
	logger.Debug("Room stream opened", "subscribers", subscribers)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("subscribed", gin.H{"room": room, "subscribers": subscribers})

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	done := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})

	logger.Debug("Room stream closed")
}
