package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"visascope/internal/database"
	"visascope/internal/jobs"
	"visascope/internal/pipeline"
	"visascope/internal/report"
	"visascope/internal/scoring"
	"visascope/internal/validation"
)

// memStore satisfies pipeline.ResultStore without a database.
type memStore struct {
	saved []*database.Evaluation
}

func (m *memStore) Save(_ context.Context, rec *database.Evaluation) (string, error) {
	rec.ID = "eval_test_1"
	m.saved = append(m.saved, rec)
	return rec.ID, nil
}

func (m *memStore) UpdateObjectKeys(context.Context, string, []byte, string) error { return nil }
func (m *memStore) MarkEmailSent(context.Context, string) error                    { return nil }

func newTestRunner(registry *jobs.Registry) *pipeline.Runner {
	return pipeline.NewRunner(
		registry,
		validation.NewValidator("", 6, nil),
		scoring.NewEngine(),
		&memStore{},
		nil,
		report.NewGenerator(),
		nil,
		0,
		nil,
	)
}

func multipartSubmission(t *testing.T, payload string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if payload != "" {
		if err := writer.WriteField("payload", payload); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func submitRequest(t *testing.T, h *EvaluateHandler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.Submit(c)
	return w
}

func TestSubmitRequiresPayload(t *testing.T) {
	registry := jobs.NewRegistry()
	h := NewEvaluateHandler(registry, newTestRunner(registry), 6, 10<<20)

	body, contentType := multipartSubmission(t, "", map[string][]byte{"a.pdf": []byte("doc")})
	w := submitRequest(t, h, body, contentType)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s, want 400", w.Code, w.Body.String())
	}
}

func TestSubmitRejectsMalformedPayload(t *testing.T) {
	registry := jobs.NewRegistry()
	h := NewEvaluateHandler(registry, newTestRunner(registry), 6, 10<<20)

	body, contentType := multipartSubmission(t, "{not json", nil)
	w := submitRequest(t, h, body, contentType)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSubmitEnforcesFileCount(t *testing.T) {
	registry := jobs.NewRegistry()
	h := NewEvaluateHandler(registry, newTestRunner(registry), 1, 10<<20)

	payload := `{"name":"Jane Doe","email":"jane@example.com","country":"Test","visaType":"X"}`
	body, contentType := multipartSubmission(t, payload, map[string][]byte{
		"a.pdf": []byte("doc1"),
		"b.pdf": []byte("doc2"),
	})
	w := submitRequest(t, h, body, contentType)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSubmitEnforcesFileSize(t *testing.T) {
	registry := jobs.NewRegistry()
	h := NewEvaluateHandler(registry, newTestRunner(registry), 6, 8)

	payload := `{"name":"Jane Doe","email":"jane@example.com","country":"Test","visaType":"X"}`
	body, contentType := multipartSubmission(t, payload, map[string][]byte{
		"big.pdf": bytes.Repeat([]byte("x"), 64),
	})
	w := submitRequest(t, h, body, contentType)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSubmitReturnsJobID(t *testing.T) {
	registry := jobs.NewRegistry()
	h := NewEvaluateHandler(registry, newTestRunner(registry), 6, 10<<20)

	payload := `{"name":"Jane Doe","email":"jane@example.com","country":"Test","visaType":"X"}`
	body, contentType := multipartSubmission(t, payload, map[string][]byte{
		"passport.pdf": []byte("doc1"),
		"photo.png":    []byte("doc2"),
	})
	w := submitRequest(t, h, body, contentType)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s, want 200", w.Code, w.Body.String())
	}

	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("response carries no jobId")
	}
	if _, ok := registry.Get(resp.JobID); !ok {
		t.Fatalf("job %q not registered", resp.JobID)
	}
}
