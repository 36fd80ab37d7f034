package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"visascope/internal/jobs"
)

func eventsRouter(registry *jobs.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewEventsHandler(registry, nil)
	router.GET("/v1/evaluations/events", h.Stream)
	return router
}

func TestStreamRequiresJobID(t *testing.T) {
	router := eventsRouter(jobs.NewRegistry())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/events", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestStreamUnknownJob(t *testing.T) {
	router := eventsRouter(jobs.NewRegistry())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/events?jobId=job_unknown", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestStreamForwardsEventsUntilFinished(t *testing.T) {
	registry := jobs.NewRegistry()
	job := registry.Create()
	router := eventsRouter(registry)

	go func() {
		// Give the handler time to subscribe before emitting.
		time.Sleep(50 * time.Millisecond)
		job.Emit(jobs.ProgressEvent{Type: jobs.StageReceived})
		job.Emit(jobs.ProgressEvent{Type: jobs.StageValidated})
		job.Emit(jobs.ProgressEvent{
			Type:    jobs.StageFinished,
			Payload: jobs.FinishedPayload{OK: true, EvaluationID: "eval_test_1"},
		})
	}()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/events?jobId="+job.ID, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	body := w.Body.String()
	for _, fragment := range []string{
		`"type":"received"`,
		`"type":"validated"`,
		`"type":"finished"`,
		`"evaluationId":"eval_test_1"`,
	} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("stream body missing %q:\n%s", fragment, body)
		}
	}
	if !strings.Contains(body, "data:") {
		t.Fatalf("stream body has no SSE data lines:\n%s", body)
	}
}

func TestStreamLateSubscriberSeesOnlyNewEvents(t *testing.T) {
	registry := jobs.NewRegistry()
	job := registry.Create()
	router := eventsRouter(registry)

	// Events emitted before the stream opens are not replayed.
	job.Emit(jobs.ProgressEvent{Type: jobs.StageReceived})
	job.Emit(jobs.ProgressEvent{Type: jobs.StageValidated})

	go func() {
		time.Sleep(50 * time.Millisecond)
		job.Emit(jobs.ProgressEvent{Type: jobs.StageFinished, Payload: jobs.FinishedPayload{OK: false}})
	}()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/events?jobId="+job.ID, nil))

	body := w.Body.String()
	if strings.Contains(body, `"type":"received"`) {
		t.Fatalf("stream replayed a pre-subscription event:\n%s", body)
	}
	if !strings.Contains(body, `"type":"finished"`) {
		t.Fatalf("stream missing the terminal event:\n%s", body)
	}
}
