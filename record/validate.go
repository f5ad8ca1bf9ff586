package record

import (
	"fmt"

	"github.com/Heimeroux/pyannote-api-toolkit/validation"
)

// ValidateNew checks the constraints required at record creation: identity
// and storage fields present, speaker count in [1,100]. Result fields
// (scores, segments) must not be set yet; they arrive with the diarization
// result.
func (r *FileRecord) ValidateNew() error {
	v := validation.New()
	v.Required("filename", r.Filename).
		Required("file_id", r.FileID).
		Required("storage_type", string(r.StorageKind)).
		OneOf("storage_type", string(r.StorageKind), StorageKinds()).
		Range("nb_speakers", r.SpeakerCount, MinSpeakerCount, MaxSpeakerCount)

	v.Custom(r.Segments == nil, "diarization_result", "must not be set at creation")
	v.Custom(r.SampleConfidences == nil, "sample_level_confidences", "must not be set at creation")
	v.Custom(r.SampleMeanScore == nil, "sample_level_mean_score", "must not be set at creation")
	v.Custom(r.HumanScore == nil, "human_score", "must not be set at creation")

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateHumanScore checks the [0,100] bound on a reviewer's score.
func ValidateHumanScore(score int) error {
	if err := validation.New().Range("human_score", score, MinScore, MaxScore).Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the per-sample confidence structure: every score in
// [0,100] and a strictly positive resolution. Consistency between the
// resolution and the recording's actual duration is not checked; that is
// the caller's concern.
func (s *SampleConfidences) Validate() error {
	v := validation.New()
	v.Positive("resolution", s.Resolution)
	for i, score := range s.Scores {
		if score < MinScore || score > MaxScore {
			v.AddError(fmt.Sprintf("score[%d]", i), fmt.Sprintf("must be between %d and %d", MinScore, MaxScore))
		}
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateSegments checks each segment's time bounds and speaker label.
// Start and End must be non-negative; End > Start is deliberately NOT
// enforced, matching the permissive behavior of the stored data.
func ValidateSegments(segments []Segment) error {
	v := validation.New()
	for i, seg := range segments {
		v.NonNegative(fmt.Sprintf("diarization_result[%d].start", i), seg.Start)
		v.NonNegative(fmt.Sprintf("diarization_result[%d].end", i), seg.End)
		v.Required(fmt.Sprintf("diarization_result[%d].speaker", i), seg.Speaker)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateMeanScore checks the [0.0,100.0] bound on the sample-level mean.
// The value itself is supplied by the diarization engine and trusted; only
// the schema bound is enforced.
func ValidateMeanScore(score float64) error {
	if err := validation.New().RangeFloat("sample_level_mean_score", score, float64(MinScore), float64(MaxScore)).Validate(); err != nil {
		return err
	}
	return nil
}
