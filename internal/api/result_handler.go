package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"visascope/internal/api/middleware"
	"visascope/internal/database"
	"visascope/internal/mailer"
	"visascope/internal/report"
)

// reportRenderer renders a stored evaluation back into PDF bytes.
type reportRenderer interface {
	Render(data report.Data) ([]byte, error)
}

// linkSigner issues presigned download links for archived objects.
type linkSigner interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// emailSender re-delivers result emails on demand.
type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// ResultHandler serves persisted evaluation results.
type ResultHandler struct {
	store    *database.EvaluationStore
	renderer reportRenderer
	signer   linkSigner
	mailer   emailSender
}

// NewResultHandler constructs the result handler. signer and sender may be
// nil; the download link and send-report surface degrade accordingly.
func NewResultHandler(store *database.EvaluationStore, renderer reportRenderer, signer linkSigner, sender emailSender) *ResultHandler {
	return &ResultHandler{store: store, renderer: renderer, signer: signer, mailer: sender}
}

type evaluationResponse struct {
	EvaluationID   string          `json:"evaluationId"`
	CreatedAt      time.Time       `json:"createdAt"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Country        string          `json:"country"`
	VisaType       string          `json:"visaType"`
	Score          int             `json:"score"`
	Summary        string          `json:"summary"`
	Strengths      json.RawMessage `json:"strengths"`
	Improvements   json.RawMessage `json:"improvements"`
	Recommendation string          `json:"recommendation"`
	EmailSent      bool            `json:"emailSent"`
	ReportURL      string          `json:"reportUrl,omitempty"`
}

// Get handles GET /v1/evaluations/result?evaluationId=...&format=json|pdf.
func (h *ResultHandler) Get(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	id := strings.TrimSpace(c.Query("evaluationId"))
	if id == "" {
		BadRequest(c, "missing evaluationId")
		return
	}

	rec, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrEvaluationNotFound) {
			NotFound(c, "evaluation not found")
			return
		}
		logger.Error("load evaluation failed", slog.String("error", err.Error()))
		Internal(c, "failed to load evaluation")
		return
	}

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		h.respondJSON(c, rec)
	case "pdf":
		h.respondPDF(c, rec)
	default:
		BadRequest(c, "format must be json or pdf")
	}
}

// newEvaluationResponse maps a record to the wire shape shared by the result
// fetch and the partner retrieval surface.
func newEvaluationResponse(rec *database.Evaluation) evaluationResponse {
	return evaluationResponse{
		EvaluationID:   rec.ID,
		CreatedAt:      rec.CreatedAt,
		Name:           rec.Name,
		Email:          rec.Email,
		Country:        rec.Country,
		VisaType:       rec.VisaType,
		Score:          rec.Score,
		Summary:        rec.Summary,
		Strengths:      json.RawMessage(rec.Strengths),
		Improvements:   json.RawMessage(rec.Improvements),
		Recommendation: rec.Recommendation,
		EmailSent:      rec.EmailSent,
	}
}

func (h *ResultHandler) respondJSON(c *gin.Context, rec *database.Evaluation) {
	resp := newEvaluationResponse(rec)

	if h.signer != nil && rec.ReportObjectKey != "" {
		if url, err := h.signer.GeneratePresignedURL(c.Request.Context(), rec.ReportObjectKey, 15*time.Minute); err == nil {
			resp.ReportURL = url
		}
	}

	c.JSON(http.StatusOK, resp)
}

// respondPDF re-renders the report from the persisted record. Rendering is
// deterministic, so the bytes match the archived copy.
func (h *ResultHandler) respondPDF(c *gin.Context, rec *database.Evaluation) {
	logger := middleware.LoggerFromContext(c)

	pdfBytes, err := h.renderer.Render(reportData(rec))
	if err != nil {
		logger.Error("render report failed", slog.String("error", err.Error()))
		Internal(c, "failed to render report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"Evaluation-Report-%s.pdf\"", rec.ID))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

type sendReportRequest struct {
	EvaluationID string `json:"evaluationId" binding:"required"`
	Email        string `json:"email"`
}

// SendReport handles POST /v1/evaluations/send-report; it re-delivers the
// result email, optionally to an address other than the one on record.
func (h *ResultHandler) SendReport(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	if h.mailer == nil {
		Error(c, http.StatusServiceUnavailable, "email delivery is not configured")
		return
	}

	var req sendReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "evaluationId is required")
		return
	}

	rec, err := h.store.GetByID(c.Request.Context(), req.EvaluationID)
	if err != nil {
		if errors.Is(err, database.ErrEvaluationNotFound) {
			NotFound(c, "evaluation not found")
			return
		}
		logger.Error("load evaluation failed", slog.String("error", err.Error()))
		Internal(c, "failed to load evaluation")
		return
	}

	to := strings.TrimSpace(req.Email)
	if to == "" {
		to = rec.Email
	}

	pdfBytes, err := h.renderer.Render(reportData(rec))
	if err != nil {
		logger.Error("render report failed", slog.String("error", err.Error()))
		Internal(c, "failed to render report")
		return
	}

	msg := mailer.Message{
		To:             to,
		Name:           rec.Name,
		Country:        rec.Country,
		VisaType:       rec.VisaType,
		Score:          rec.Score,
		Summary:        rec.Summary,
		Recommendation: rec.Recommendation,
		Strengths:      decodeStringList(rec.Strengths),
		Improvements:   decodeStringList(rec.Improvements),
		EvaluationID:   rec.ID,
		Report:         pdfBytes,
	}
	if err := h.mailer.Send(c.Request.Context(), msg); err != nil {
		logger.Warn("re-send report email failed",
			slog.String("evaluation_id", rec.ID),
			slog.String("error", err.Error()),
		)
		Error(c, http.StatusBadGateway, "failed to send email")
		return
	}

	if err := h.store.MarkEmailSent(c.Request.Context(), rec.ID); err != nil {
		logger.Warn("mark email sent failed", slog.String("error", err.Error()))
	}

	logger.Info("report email re-sent", slog.String("evaluation_id", rec.ID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func reportData(rec *database.Evaluation) report.Data {
	return report.Data{
		EvaluationID:   rec.ID,
		Name:           rec.Name,
		Email:          rec.Email,
		Country:        rec.Country,
		VisaType:       rec.VisaType,
		Score:          rec.Score,
		Summary:        rec.Summary,
		Strengths:      decodeStringList(rec.Strengths),
		Improvements:   decodeStringList(rec.Improvements),
		Recommendation: rec.Recommendation,
	}
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
