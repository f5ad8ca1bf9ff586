// Package api registers the REST routes of the diarization review service:
// file lifecycle, diarization job control, the engine webhook, and the
// three confidence range queries.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Heimeroux/pyannote-api-toolkit/confidence"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/service"
)

// Handler carries the collaborators the routes need.
type Handler struct {
	manager       *service.Manager
	engine        *confidence.Engine
	signingSecret string
	log           *logger.Logger
}

// NewHandler creates the route handler set. signingSecret verifies engine
// webhook callbacks; an empty secret disables verification, which is only
// acceptable in tests.
func NewHandler(manager *service.Manager, engine *confidence.Engine, signingSecret string, log *logger.Logger) *Handler {
	return &Handler{
		manager:       manager,
		engine:        engine,
		signingSecret: signingSecret,
		log:           log.WithComponent("api"),
	}
}

// Register mounts every route on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.POST("/files/upload", h.Upload)
	r.POST("/delete", h.Delete)
	r.GET("/filenames", h.Filenames)
	r.GET("/documents/count", h.Count)
	r.GET("/audio/bytes", h.AudioBytes)

	r.POST("/diarization/jobs", h.StartDiarization)
	r.POST("/diarization/results", h.AttachResults)
	r.POST("/webhook", h.Webhook)

	r.POST("/scores/human", h.SetHumanScore)

	r.GET("/filenames/by-mean-scores", h.FilenamesByMeanScores)
	r.GET("/confidences/sample-level", h.SampleLevelConfidences)
	r.GET("/confidences/turn-level", h.TurnLevelConfidences)

	r.POST("/maintenance/clear-stale-jobs", h.ClearStaleJobs)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "healthy"})
}
