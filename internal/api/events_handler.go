package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"visascope/internal/api/middleware"
	"visascope/internal/jobs"
	"visascope/internal/metrics"
)

// eventBuffer sizes the per-subscriber channel. A pipeline run emits on the
// order of ten events; a subscriber that cannot drain 64 is not keeping up
// and loses the overflow rather than stalling the publisher.
const eventBuffer = 64

// EventsHandler streams job progress to clients, over SSE or WebSocket.
type EventsHandler struct {
	registry       *jobs.Registry
	allowedOrigins []string
}

// NewEventsHandler constructs the progress-stream handler.
func NewEventsHandler(registry *jobs.Registry, allowedOrigins []string) *EventsHandler {
	return &EventsHandler{registry: registry, allowedOrigins: allowedOrigins}
}

// Stream handles GET /v1/evaluations/events?jobId=...; it replies with an SSE
// stream of the job's progress events and closes after the terminal event.
// Validation failures are plain JSON errors sent before the stream starts.
func (h *EventsHandler) Stream(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	jobID := strings.TrimSpace(c.Query("jobId"))
	if jobID == "" {
		BadRequest(c, "missing jobId")
		return
	}
	job, ok := h.registry.Get(jobID)
	if !ok {
		NotFound(c, "unknown or expired job")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	events, sub := subscribe(job)
	defer job.Unsubscribe(sub)

	metrics.SubscriberConnected()
	defer metrics.SubscriberDisconnected()

	logger = logger.With(slog.String("job_id", jobID))
	logger.Info("event stream opened")

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			logger.Info("event stream client disconnected")
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warn("drop unencodable event", slog.String("type", string(ev.Type)))
				continue
			}
			if err := sse.Encode(c.Writer, sse.Event{Data: string(data)}); err != nil {
				logger.Info("event stream write failed", slog.String("error", err.Error()))
				return
			}
			c.Writer.Flush()

			if ev.Terminal() {
				logger.Info("event stream completed")
				return
			}
		}
	}
}

// subscribe bridges the job's synchronous listener callback onto a buffered
// channel. A full buffer drops the event instead of blocking the pipeline.
func subscribe(job *jobs.Job) (<-chan jobs.ProgressEvent, jobs.Subscription) {
	events := make(chan jobs.ProgressEvent, eventBuffer)
	sub := job.Subscribe(func(ev jobs.ProgressEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	return events, sub
}
