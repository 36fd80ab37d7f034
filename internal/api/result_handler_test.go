package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"visascope/internal/database"
	"visascope/internal/mailer"
	"visascope/internal/report"
)

type recordingMailer struct {
	err  error
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func resultRouter(store *database.EvaluationStore, sender emailSender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewResultHandler(store, report.NewGenerator(), nil, sender)
	router.GET("/v1/evaluations/result", h.Get)
	router.POST("/v1/evaluations/send-report", h.SendReport)
	return router
}

func TestGetResultValidation(t *testing.T) {
	router := resultRouter(newTestEvalStore(t), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/result", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing id status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/result?evaluationId=eval_missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", w.Code)
	}
}

func TestGetResultJSON(t *testing.T) {
	store := newTestEvalStore(t)
	id := seedEvaluation(t, store, "Canada", 72)
	router := resultRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/result?evaluationId="+id, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s, want 200", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, fragment := range []string{id, `"score":72`, `"strengths":["s1"]`} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("response missing %q: %s", fragment, body)
		}
	}
}

func TestGetResultPDF(t *testing.T) {
	store := newTestEvalStore(t)
	id := seedEvaluation(t, store, "Canada", 72)
	router := resultRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/result?evaluationId="+id+"&format=pdf", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatal("response body is not a PDF")
	}
}

func TestGetResultUnknownFormat(t *testing.T) {
	store := newTestEvalStore(t)
	id := seedEvaluation(t, store, "Canada", 72)
	router := resultRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evaluations/result?evaluationId="+id+"&format=xml", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSendReport(t *testing.T) {
	store := newTestEvalStore(t)
	id := seedEvaluation(t, store, "Canada", 72)
	sender := &recordingMailer{}
	router := resultRouter(store, sender)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations/send-report",
		strings.NewReader(`{"evaluationId":"`+id+`","email":"other@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s, want 200", w.Code, w.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "other@example.com" {
		t.Fatalf("recipient = %q, want the override address", msg.To)
	}
	if len(msg.Report) == 0 || msg.EvaluationID != id {
		t.Fatalf("message = %+v, want attached report for %s", msg, id)
	}

	rec, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !rec.EmailSent {
		t.Fatal("email delivery was not recorded")
	}
}

func TestSendReportFailures(t *testing.T) {
	store := newTestEvalStore(t)
	id := seedEvaluation(t, store, "Canada", 72)

	// Unknown evaluation.
	router := resultRouter(store, &recordingMailer{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations/send-report",
		strings.NewReader(`{"evaluationId":"eval_missing"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", w.Code)
	}

	// SMTP failure surfaces as a gateway error.
	router = resultRouter(store, &recordingMailer{err: errors.New("smtp refused")})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/evaluations/send-report",
		strings.NewReader(`{"evaluationId":"`+id+`"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("smtp failure status = %d, want 502", w.Code)
	}
}
