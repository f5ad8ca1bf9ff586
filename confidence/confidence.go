// Package confidence implements the score model and the range-query engine
// over diarized-file records. Three independent read operations surface
// low-confidence recordings or regions: a mean-score range query across the
// whole record set, and per-file sample-level and turn-level confidence
// window queries. All three are pure reads; an empty result is a valid
// answer, never an error.
package confidence

import (
	"github.com/Heimeroux/pyannote-api-toolkit/record"
)

// Window is an inclusive confidence score interval. Callers are responsible
// for Min <= Max; an inverted window yields an empty result, not an error.
type Window struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max], both bounds inclusive.
func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// SampleSlice is one retained fixed-width sample with its reconstructed
// time bounds.
type SampleSlice struct {
	Confidence int     `json:"confidence"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
}

// Turn is one retained speaker segment with the turn-level confidence for
// its own speaker label.
type Turn struct {
	Start             float64 `json:"start"`
	End               float64 `json:"end"`
	Speaker           string  `json:"speaker"`
	SpeakerConfidence float64 `json:"speaker_confidence"`
}

// FilterSamples retains the samples whose confidence lies in the window.
// Time bounds for the i-th sample are reconstructed from the fixed
// resolution as [i*resolution, (i+1)*resolution]; they are not stored per
// sample. Index order is preserved.
func FilterSamples(sc *record.SampleConfidences, w Window) []SampleSlice {
	if sc == nil {
		return []SampleSlice{}
	}
	out := make([]SampleSlice, 0, len(sc.Scores))
	for i, score := range sc.Scores {
		if !w.Contains(float64(score)) {
			continue
		}
		out = append(out, SampleSlice{
			Confidence: score,
			Start:      float64(i) * sc.Resolution,
			End:        float64(i+1) * sc.Resolution,
		})
	}
	return out
}

// FilterTurns retains the segments whose speaker-keyed confidence sub-score
// lies in the window. A segment with no sub-score for its own speaker
// counts as 0. Insertion order is preserved; by convention it is
// chronological, though nothing enforces that.
func FilterTurns(segments []record.Segment, w Window) []Turn {
	out := make([]Turn, 0, len(segments))
	for _, seg := range segments {
		sc := seg.SpeakerConfidence()
		if !w.Contains(sc) {
			continue
		}
		out = append(out, Turn{
			Start:             seg.Start,
			End:               seg.End,
			Speaker:           seg.Speaker,
			SpeakerConfidence: sc,
		})
	}
	return out
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleMean computes the arithmetic mean over per-sample confidences.
// This mirrors what the diarization engine reports as the record-level
// sample mean; the stored value is the engine's, this is used when the
// engine payload carries only the raw scores.
func SampleMean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += float64(s)
	}
	return sum / float64(len(scores))
}

// TurnMean computes the arithmetic mean of each segment's speaker-keyed
// confidence sub-score.
func TurnMean(segments []record.Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	var sum float64
	for _, seg := range segments {
		sum += seg.SpeakerConfidence()
	}
	return sum / float64(len(segments))
}
