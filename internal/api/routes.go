package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"visascope/internal/database"
	"visascope/internal/jobs"
	"visascope/internal/pipeline"
)

// Deps collects the collaborators the route handlers need.
type Deps struct {
	Registry       *jobs.Registry
	Runner         *pipeline.Runner
	Store          *database.EvaluationStore
	Renderer       reportRenderer
	Signer         linkSigner
	Mailer         emailSender
	Partners       partnerAuthenticator
	AllowedOrigins []string
	MaxFiles       int
	MaxFileSize    int64
	PartnerTTL     time.Duration
}

// RegisterRoutes registers the API routes under /v1.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	evaluateHandler := NewEvaluateHandler(deps.Registry, deps.Runner, deps.MaxFiles, deps.MaxFileSize)
	eventsHandler := NewEventsHandler(deps.Registry, deps.AllowedOrigins)
	resultHandler := NewResultHandler(deps.Store, deps.Renderer, deps.Signer, deps.Mailer)
	partnerHandler := NewPartnerHandler(deps.Store, deps.Partners, deps.PartnerTTL)

	v1 := router.Group("/v1")
	{
		evalGroup := v1.Group("/evaluations")
		{
			evalGroup.POST("", evaluateHandler.Submit)
			evalGroup.GET("/events", eventsHandler.Stream)
			evalGroup.GET("/ws", eventsHandler.StreamWS)
			evalGroup.GET("/result", resultHandler.Get)
			evalGroup.POST("/send-report", resultHandler.SendReport)
		}

		partnerGroup := v1.Group("/partner")
		{
			partnerGroup.GET("", partnerHandler.GetByKey)
			partnerGroup.POST("/generate-key", partnerHandler.GenerateKey)
			partnerGroup.POST("/auth", partnerHandler.Auth)
			partnerGroup.GET("/evaluations", partnerHandler.List)
		}
	}
}
