package confidence

import (
	"context"

	"github.com/Heimeroux/pyannote-api-toolkit/record"
)

// MeanScoreRange is the conjunctive filter for the mean-score range query.
// Both intervals are inclusive. Bound ordering (min <= max per pair) is the
// caller's contract; the engine does not validate it, and a violated
// contract produces an empty result set rather than a fault.
type MeanScoreRange struct {
	HumanMin  float64
	HumanMax  float64
	SampleMin float64
	SampleMax float64
}

// RecordScores is the mean-score query projection: one row per matching
// record.
type RecordScores struct {
	Filename        string  `json:"filename"`
	HumanScore      int     `json:"human_score"`
	SampleMeanScore float64 `gorm:"column:sample_level_mean_score" json:"sample_level_mean_score"`
}

// Source resolves records for the query engine. The document store
// implements it; tests may substitute an in-memory fake.
type Source interface {
	// GetByFilename returns the record for filename or a NotFound error.
	GetByFilename(ctx context.Context, filename string) (*record.FileRecord, error)
	// FindByMeanScores returns the records whose human score and sample
	// mean both lie in the given inclusive ranges. Records missing either
	// score never match.
	FindByMeanScores(ctx context.Context, q MeanScoreRange) ([]RecordScores, error)
}

// Engine executes the three range-query operations against a record source.
type Engine struct {
	source Source
}

// NewEngine creates a query engine over the given record source.
func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// RecordsByMeanScores runs the mean-score range query across all records.
func (e *Engine) RecordsByMeanScores(ctx context.Context, q MeanScoreRange) ([]RecordScores, error) {
	return e.source.FindByMeanScores(ctx, q)
}

// SamplesInWindow resolves the record for filename and filters its
// sample-level confidences to the window. Fails with NotFound if no record
// exists for the filename; a record without sample confidences yields an
// empty result.
func (e *Engine) SamplesInWindow(ctx context.Context, filename string, w Window) ([]SampleSlice, error) {
	rec, err := e.source.GetByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	return FilterSamples(rec.SampleConfidences, w), nil
}

// TurnsInWindow resolves the record for filename and filters its segments
// to those whose speaker confidence lies in the window, preserving the
// original segment order.
func (e *Engine) TurnsInWindow(ctx context.Context, filename string, w Window) ([]Turn, error) {
	rec, err := e.source.GetByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	return FilterTurns(rec.Segments, w), nil
}
