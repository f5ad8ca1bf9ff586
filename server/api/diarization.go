package api

import (
	"io"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/pyannote"
	"github.com/Heimeroux/pyannote-api-toolkit/record"
	"github.com/Heimeroux/pyannote-api-toolkit/server"
	"github.com/Heimeroux/pyannote-api-toolkit/validation"
)

// StartDiarization handles POST /diarization/jobs: the stored audio is
// pushed to the engine and an asynchronous job is submitted for it.
func (h *Handler) StartDiarization(c *gin.Context) {
	var body filenameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, apperrors.Validation("malformed request body").WithCause(err))
		return
	}
	if err := validation.Validate(&body); err != nil {
		server.RespondWithError(c, err)
		return
	}

	jobID, err := h.manager.StartDiarization(c.Request.Context(), body.Filename)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondAccepted(c, gin.H{"job_id": jobID})
}

type diarizationResultBody struct {
	JobID                  string                    `json:"job_id" validate:"required"`
	Diarization            []record.Segment          `json:"diarization"`
	SampleLevelMeanScore   float64                   `json:"sample_level_mean_score"`
	SampleLevelConfidences *record.SampleConfidences `json:"sample_level_confidences"`
}

// AttachResults handles POST /diarization/results: a pre-parsed result is
// attached to the record owning the job reference. This is the trusted
// ingest path; signature checking happens only on /webhook.
func (h *Handler) AttachResults(c *gin.Context) {
	var body diarizationResultBody
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, apperrors.Validation("malformed request body").WithCause(err))
		return
	}
	if err := validation.Validate(&body); err != nil {
		server.RespondWithError(c, err)
		return
	}

	err := h.manager.AttachResult(c.Request.Context(), &pyannote.JobResult{
		JobID:      body.JobID,
		Segments:   body.Diarization,
		Samples:    body.SampleLevelConfidences,
		SampleMean: body.SampleLevelMeanScore,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, gin.H{"job_id": body.JobID})
}

// Webhook handles POST /webhook, the engine's asynchronous callback. The
// signature is verified over the raw body before anything is parsed.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		server.RespondWithError(c, apperrors.Validation("unreadable request body").WithCause(err))
		return
	}

	if h.signingSecret != "" {
		err := pyannote.VerifySignature(
			h.signingSecret,
			c.GetHeader(pyannote.HeaderTimestamp),
			c.GetHeader(pyannote.HeaderSignature),
			body,
		)
		if err != nil {
			h.log.Warn("Webhook signature rejected", map[string]interface{}{
				"client": c.ClientIP(),
			})
			server.RespondWithError(c, err)
			return
		}
	}

	res, err := pyannote.ParseResult(body)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	if err := h.manager.AttachResult(c.Request.Context(), res); err != nil {
		server.RespondWithError(c, err)
		return
	}

	h.log.Info("Webhook result attached", map[string]interface{}{logger.FieldJobID: res.JobID})
	c.JSON(200, gin.H{"status": "received"})
}

// ClearStaleJobs handles POST /maintenance/clear-stale-jobs, the
// caller-driven retention sweep for completed job references.
func (h *Handler) ClearStaleJobs(c *gin.Context) {
	cleared, err := h.manager.ClearStaleJobRefs(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"cleared": cleared})
}
