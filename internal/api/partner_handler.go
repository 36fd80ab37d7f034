package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"visascope/internal/api/middleware"
	"visascope/internal/database"
	"visascope/internal/partner"
)

// partnerAuthenticator is the credential surface of partner.Service; tests
// substitute a fake.
type partnerAuthenticator interface {
	Verify(ctx context.Context, rawKey string) (*partner.KeyInfo, error)
	IssueToken(partnerID string) (string, error)
	ValidateToken(tokenString string) (*partner.TokenClaims, error)
}

// PartnerHandler serves the partner API: per-evaluation retrieval keys and
// the authenticated listing surface.
type PartnerHandler struct {
	store    *database.EvaluationStore
	partners partnerAuthenticator
	tokenTTL time.Duration
}

// NewPartnerHandler constructs the partner handler.
func NewPartnerHandler(store *database.EvaluationStore, partners partnerAuthenticator, tokenTTL time.Duration) *PartnerHandler {
	return &PartnerHandler{store: store, partners: partners, tokenTTL: tokenTTL}
}

// GetByKey handles GET /v1/partner?apiKey=...; it resolves a per-evaluation
// retrieval key to its record. A missing key is 401, an unknown one 403.
func (h *PartnerHandler) GetByKey(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	apiKey := strings.TrimSpace(c.Query("apiKey"))
	if apiKey == "" {
		Unauthorized(c)
		return
	}

	rec, err := h.store.GetByAPIKey(c.Request.Context(), apiKey)
	if err != nil {
		if errors.Is(err, database.ErrEvaluationNotFound) {
			Forbidden(c, "invalid api key")
			return
		}
		logger.Error("lookup by api key failed", slog.String("error", err.Error()))
		Internal(c, "failed to load evaluation")
		return
	}

	c.JSON(http.StatusOK, newEvaluationResponse(rec))
}

type generateKeyRequest struct {
	EvaluationID string `json:"evaluationId" binding:"required"`
}

// GenerateKey handles POST /v1/partner/generate-key; it binds a retrieval key
// to an evaluation. Repeated calls return the existing key.
func (h *PartnerHandler) GenerateKey(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	var req generateKeyRequest
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

	if rec.APIKey != "" {
		c.JSON(http.StatusOK, gin.H{"apiKey": rec.APIKey})
		return
	}

	apiKey, err := partner.GenerateKey()
	if err != nil {
		logger.Error("generate api key failed", slog.String("error", err.Error()))
		Internal(c, "failed to generate api key")
		return
	}
	if err := h.store.SetAPIKey(c.Request.Context(), rec.ID, apiKey); err != nil {
		logger.Error("store api key failed", slog.String("error", err.Error()))
		Internal(c, "failed to store api key")
		return
	}

	logger.Info("retrieval key generated", slog.String("evaluation_id", rec.ID))
	c.JSON(http.StatusCreated, gin.H{"apiKey": apiKey})
}

type partnerAuthRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

// Auth handles POST /v1/partner/auth; it exchanges a partner API key for a
// short-lived session token.
func (h *PartnerHandler) Auth(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	var req partnerAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "apiKey is required")
		return
	}

	info, err := h.partners.Verify(c.Request.Context(), req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, partner.ErrInvalidKey):
			Unauthorized(c)
		case errors.Is(err, partner.ErrRateLimited):
			TooManyRequests(c, "rate limit exceeded")
		default:
			logger.Error("verify partner key failed", slog.String("error", err.Error()))
			Internal(c, "failed to verify api key")
		}
		return
	}

	token, err := h.partners.IssueToken(info.PartnerID)
	if err != nil {
		logger.Error("issue partner token failed", slog.String("error", err.Error()))
		Internal(c, "failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"partnerId":   info.PartnerID,
		"partnerName": info.PartnerName,
		"expiresIn":   int(h.tokenTTL.Seconds()),
	})
}

// List handles GET /v1/partner/evaluations. Authentication is either a raw
// key in X-API-Key or a session token in Authorization: Bearer.
func (h *PartnerHandler) List(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	partnerID, info, ok := h.authenticate(c)
	if !ok {
		return
	}

	filter := database.EvaluationFilter{
		PartnerID: partnerID,
		Country:   strings.TrimSpace(c.Query("country")),
	}
	if raw := c.Query("minScore"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 100 {
			BadRequest(c, "minScore must be an integer between 0 and 100")
			return
		}
		filter.MinScore = n
	}
	if raw := c.Query("maxScore"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 100 {
			BadRequest(c, "maxScore must be an integer between 0 and 100")
			return
		}
		filter.MaxScore = n
	}

	recs, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		logger.Error("list evaluations failed", slog.String("error", err.Error()))
		Internal(c, "failed to list evaluations")
		return
	}

	items := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		items = append(items, gin.H{
			"evaluationId":   rec.ID,
			"country":        rec.Country,
			"visaType":       rec.VisaType,
			"score":          rec.Score,
			"recommendation": rec.Recommendation,
			"createdAt":      rec.CreatedAt,
		})
	}

	if info != nil {
		remaining := int64(info.RateLimit) - info.UsedToday
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(info.RateLimit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluations": items,
		"count":       len(items),
	})
}

// authenticate resolves the caller's partner id from either credential form.
// It writes the error response itself when authentication fails.
func (h *PartnerHandler) authenticate(c *gin.Context) (string, *partner.KeyInfo, bool) {
	logger := middleware.LoggerFromContext(c)

	if rawKey := strings.TrimSpace(c.GetHeader("X-API-Key")); rawKey != "" {
		info, err := h.partners.Verify(c.Request.Context(), rawKey)
		if err != nil {
			switch {
			case errors.Is(err, partner.ErrInvalidKey):
				Unauthorized(c)
			case errors.Is(err, partner.ErrRateLimited):
				TooManyRequests(c, "rate limit exceeded")
			default:
				logger.Error("verify partner key failed", slog.String("error", err.Error()))
				Internal(c, "failed to verify api key")
			}
			return "", nil, false
		}
		return info.PartnerID, info, true
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		claims, err := h.partners.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			Unauthorized(c)
			return "", nil, false
		}
		return claims.PartnerID, nil, true
	}

	Unauthorized(c)
	return "", nil, false
}
