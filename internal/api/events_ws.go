package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"visascope/internal/api/middleware"
	"visascope/internal/metrics"
)

// StreamWS handles GET /v1/evaluations/ws?jobId=...; it is the WebSocket
// fallback for clients whose proxies buffer SSE. The connection carries the
// same JSON events as the SSE stream and closes after the terminal event.
func (h *EventsHandler) StreamWS(c *gin.Context) {
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

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	events, sub := subscribe(job)
	defer job.Unsubscribe(sub)

	metrics.SubscriberConnected()
	defer metrics.SubscriberDisconnected()

	logger = logger.With(slog.String("job_id", jobID))
	logger.Info("websocket stream opened")

	// Drain reads so client close frames are noticed.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-readerGone:
			logger.Info("websocket client disconnected")
			return
		case <-c.Request.Context().Done():
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warn("drop unencodable event", slog.String("type", string(ev.Type)))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Info("websocket write failed", slog.String("error", err.Error()))
				return
			}
			if ev.Terminal() {
				deadline := time.Now().Add(5 * time.Second)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"), deadline)
				logger.Info("websocket stream completed")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				logger.Info("websocket ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
