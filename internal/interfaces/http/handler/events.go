package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/event"
	"go.uber.org/zap"
)

// Default stream settings.
const (
	DefaultPingInterval = 20 * time.Second
	DefaultStreamBuffer = 64
)

// EventSource registers listeners for supply change events.
type EventSource interface {
	Subscribe(filter event.Filter, listener event.Listener) (unsubscribe func())
}

// EventsHandler streams supply change events to clients over SSE
type EventsHandler struct {
	BaseHandler
	source EventSource
	ping   time.Duration
	buffer int
}

// EventsOption configures an EventsHandler.
type EventsOption func(*EventsHandler)

// WithPingInterval sets the keep-alive interval of a stream.
func WithPingInterval(d time.Duration) EventsOption {
	return func(h *EventsHandler) {
		if d > 0 {
			h.ping = d
		}
	}
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(source EventSource, logger *zap.Logger, opts ...EventsOption) *EventsHandler {
	h := &EventsHandler{
		BaseHandler: newBaseHandler(logger),
		source:      source,
		ping:        DefaultPingInterval,
		buffer:      DefaultStreamBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stream sends a hello event, then supply updates and periodic pings until
// the client disconnects. The supplyId query narrows the stream to one supply.
func (h *EventsHandler) Stream(c *gin.Context) {
	var filter event.Filter
	if supplyID := strings.TrimSpace(c.Query("supplyId")); supplyID != "" {
		filter = func(evt event.Event) bool {
			return evt.SupplyID == supplyID
		}
	}

	listener, events := event.ChannelListener(h.buffer)
	unsubscribe := h.source.Subscribe(filter, listener)
	defer unsubscribe()

	clientID := uuid.NewString()
	h.logger.Debug("event stream opened", zap.String("client_id", clientID))
	defer h.logger.Debug("event stream closed", zap.String("client_id", clientID))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("hello", gin.H{"clientId": clientID})
	c.Writer.Flush()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			c.SSEvent("ping", gin.H{"at": at.UTC().Format(time.RFC3339)})
			c.Writer.Flush()
		case evt := <-events:
			c.SSEvent(evt.Type, evt)
			c.Writer.Flush()
		}
	}
}
