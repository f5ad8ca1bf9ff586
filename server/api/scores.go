package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Heimeroux/pyannote-api-toolkit/confidence"
	apperrors "github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/server"
	"github.com/Heimeroux/pyannote-api-toolkit/validation"
)

type humanScoreBody struct {
	Filename   string `json:"filename" validate:"required"`
	HumanScore *int   `json:"human_score" validate:"required"`
}

// SetHumanScore handles POST /scores/human. A later write replaces an
// earlier one.
func (h *Handler) SetHumanScore(c *gin.Context) {
	var body humanScoreBody
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, apperrors.Validation("malformed request body").WithCause(err))
		return
	}
	if err := validation.Validate(&body); err != nil {
		server.RespondWithError(c, err)
		return
	}

	if err := h.manager.SetHumanScore(c.Request.Context(), body.Filename, *body.HumanScore); err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, gin.H{"filename": body.Filename, "human_score": *body.HumanScore})
}

// FilenamesByMeanScores handles GET /filenames/by-mean-scores: the
// conjunctive range query over the human score and the sample-level mean.
func (h *Handler) FilenamesByMeanScores(c *gin.Context) {
	humanMin, err1 := queryFloat(c, "human_score_min")
	humanMax, err2 := queryFloat(c, "human_score_max")
	sampleMin, err3 := queryFloat(c, "sample_score_min")
	sampleMax, err4 := queryFloat(c, "sample_score_max")
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
	}

	rows, err := h.engine.RecordsByMeanScores(c.Request.Context(), confidence.MeanScoreRange{
		HumanMin:  humanMin,
		HumanMax:  humanMax,
		SampleMin: sampleMin,
		SampleMax: sampleMax,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, gin.H{"files": rows})
}

// SampleLevelConfidences handles GET /confidences/sample-level: the
// per-file sample window query with reconstructed time bounds.
func (h *Handler) SampleLevelConfidences(c *gin.Context) {
	filename, window, err := windowQuery(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	samples, err := h.engine.SamplesInWindow(c.Request.Context(), filename, window)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, gin.H{"filename": filename, "samples": samples})
}

// TurnLevelConfidences handles GET /confidences/turn-level: the per-file
// speaker-turn window query.
func (h *Handler) TurnLevelConfidences(c *gin.Context) {
	filename, window, err := windowQuery(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	turns, err := h.engine.TurnsInWindow(c.Request.Context(), filename, window)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, gin.H{"filename": filename, "turns": turns})
}

// windowQuery extracts the filename plus min_score/max_score bounds shared
// by the two per-file confidence queries.
func windowQuery(c *gin.Context) (string, confidence.Window, error) {
	filename := c.Query("filename")
	if filename == "" {
		return "", confidence.Window{}, apperrors.MissingField("filename")
	}
	minScore, err := queryFloat(c, "min_score")
	if err != nil {
		return "", confidence.Window{}, err
	}
	maxScore, err := queryFloat(c, "max_score")
	if err != nil {
		return "", confidence.Window{}, err
	}
	return filename, confidence.Window{Min: minScore, Max: maxScore}, nil
}

func queryFloat(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, apperrors.MissingField(name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.InvalidInput(name, "must be a number")
	}
	return v, nil
}
