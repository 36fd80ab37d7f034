package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"visascope/internal/api/middleware"
	"visascope/internal/jobs"
	"visascope/internal/pipeline"
	"visascope/internal/submission"
)

// EvaluateHandler accepts evaluation submissions and starts pipeline runs.
type EvaluateHandler struct {
	registry    *jobs.Registry
	runner      *pipeline.Runner
	maxFiles    int
	maxFileSize int64
}

// NewEvaluateHandler constructs the submission handler.
func NewEvaluateHandler(registry *jobs.Registry, runner *pipeline.Runner, maxFiles int, maxFileSize int64) *EvaluateHandler {
	if maxFiles <= 0 {
		maxFiles = 6
	}
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &EvaluateHandler{
		registry:    registry,
		runner:      runner,
		maxFiles:    maxFiles,
		maxFileSize: maxFileSize,
	}
}

// Submit handles POST /v1/evaluations. The request is multipart: a "payload"
// field carrying the form JSON and any number of "files" parts. The response
// returns the job id immediately; progress arrives on the event stream.
func (h *EvaluateHandler) Submit(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "invalid multipart form")
		return
	}

	payloads := form.Value["payload"]
	if len(payloads) == 0 || strings.TrimSpace(payloads[0]) == "" {
		BadRequest(c, "missing payload field")
		return
	}

	var sub submission.Form
	if err := json.Unmarshal([]byte(payloads[0]), &sub); err != nil {
		BadRequest(c, "malformed payload JSON")
		return
	}
	if strings.TrimSpace(sub.Email) == "" {
		BadRequest(c, "email is required")
		return
	}
	if strings.TrimSpace(sub.Country) == "" || strings.TrimSpace(sub.VisaType) == "" {
		BadRequest(c, "country and visaType are required")
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) > h.maxFiles {
		BadRequest(c, fmt.Sprintf("too many files - max %d allowed", h.maxFiles))
		return
	}

	files := make([]submission.File, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > h.maxFileSize {
			BadRequest(c, fmt.Sprintf("file %q exceeds the %d byte limit", fh.Filename, h.maxFileSize))
			return
		}

		src, err := fh.Open()
		if err != nil {
			Internal(c, "failed to read uploaded file")
			return
		}
		content, err := io.ReadAll(io.LimitReader(src, h.maxFileSize+1))
		src.Close()
		if err != nil {
			Internal(c, "failed to read uploaded file")
			return
		}
		if int64(len(content)) > h.maxFileSize {
			BadRequest(c, fmt.Sprintf("file %q exceeds the %d byte limit", fh.Filename, h.maxFileSize))
			return
		}

		files = append(files, submission.File{
			Name:        fh.Filename,
			Size:        int64(len(content)),
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	job := h.registry.Create()
	h.runner.Start(job, sub, files)

	logger.Info("evaluation accepted",
		slog.String("job_id", job.ID),
		slog.String("country", sub.Country),
		slog.String("visa_type", sub.VisaType),
		slog.Int("files", len(files)),
	)

	c.JSON(http.StatusOK, gin.H{"jobId": job.ID})
}
