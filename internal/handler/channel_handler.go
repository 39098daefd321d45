package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"focusflow/internal/channel"
	"focusflow/internal/middleware"
	"focusflow/internal/model"
	"focusflow/internal/service"
)

const (
	EventSnapshot = "snapshot"
	EventJoined   = "joined"

	DefaultKeepAlive = 15 * time.Second
)

// ChannelHandler exposes hub topics as Server-Sent Event streams.
type ChannelHandler struct {
	channel        *channel.Local
	sessionService *service.SessionService
	clock          clockwork.Clock
	keepAlive      time.Duration
}

func NewChannelHandler(hub *channel.Hub, sessionService *service.SessionService, clock clockwork.Clock, keepAlive time.Duration) *ChannelHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &ChannelHandler{
		channel:        channel.NewLocal(hub),
		sessionService: sessionService,
		clock:          clock,
		keepAlive:      keepAlive,
	}
}

// StreamSession streams snapshots published after the subscription opens.
// Clients read the stored session before subscribing.
func (h *ChannelHandler) StreamSession(c *gin.Context) {
	found, apiErr := h.sessionService.GetByCode(c.Request.Context(), c.Param("code"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	snaps, _ := h.channel.Subscribe(c.Request.Context(), found.Code)
	stream(h, c, snaps, EventSnapshot)
}

func (h *ChannelHandler) StreamJoins(c *gin.Context) {
	found, apiErr := h.sessionService.GetByCode(c.Request.Context(), c.Param("code"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	joins, _ := h.channel.SubscribeJoins(c.Request.Context(), found.Code)
	stream(h, c, joins, EventJoined)
}

func (h *ChannelHandler) Publish(c *gin.Context) {
	var snap model.Snapshot
	if !bindJSON(c, &snap) {
		return
	}
	if snap.Origin == "" {
		snap.Origin = middleware.Origin(c)
	}

	if apiErr := h.sessionService.PublishSnapshot(c.Request.Context(), c.Param("code"), snap); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusAccepted)
}

// stream writes every value from messages as an SSE event until the client
// goes away or the hub closes.
func stream[T any](h *ChannelHandler, c *gin.Context, messages <-chan T, event string) {
	keepAlive := h.clock.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent(event, msg)
			return true
		case <-keepAlive.Chan():
			_, err := io.WriteString(w, ": keepalive\n\n")
			return err == nil
		}
	})
}
