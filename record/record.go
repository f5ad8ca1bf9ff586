// Package record defines the diarized-file record schema: the legal shape
// of a record, its validation rules, and the lifecycle states derived from
// which fields are populated. The persisted field names match the layout of
// existing stored data and must not be renamed.
package record

import (
	"time"
)

// StorageKind tags which blob store holds a record's audio bytes.
type StorageKind string

const (
	// StorageLocal stores audio bytes on the local filesystem.
	StorageLocal StorageKind = "local"
	// StorageS3 stores audio bytes in S3 or an S3-compatible service.
	StorageS3 StorageKind = "s3"
)

// StorageKinds returns the accepted storage_type values.
func StorageKinds() []string {
	return []string{string(StorageLocal), string(StorageS3)}
}

// Speaker count bounds accepted at record creation.
const (
	MinSpeakerCount = 1
	MaxSpeakerCount = 100
)

// Score bounds shared by human scores, sample confidences, and mean scores.
const (
	MinScore = 0
	MaxScore = 100
)

// SampleConfidences holds per-sample confidence values computed over
// fixed-width time windows, independent of speaker-turn boundaries.
// The i-th score covers [i*Resolution, (i+1)*Resolution) seconds; time
// bounds are reconstructed from Resolution, never stored per sample.
type SampleConfidences struct {
	// Scores holds one confidence value in [0,100] per sample.
	Scores []int `json:"score"`
	// Resolution is the sample width in seconds.
	Resolution float64 `json:"resolution"`
}

// Segment is a single speaker turn: a contiguous time interval attributed
// to one speaker, with an opaque bag of confidence sub-scores as delivered
// by the diarization engine (the turn-level value is keyed by speaker).
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	// Confidence is an associative bag of scalar sub-scores. The schema
	// does not constrain its keys.
	Confidence map[string]float64 `json:"confidence,omitempty"`
}

// SpeakerConfidence returns the turn-level confidence for the segment's own
// speaker label, or 0 when the engine supplied no value for it.
func (s Segment) SpeakerConfidence() float64 {
	return s.Confidence[s.Speaker]
}

// FileRecord is one diarized-file record, keyed by filename. The filename
// is the only stable external handle; no surrogate ID is exposed.
type FileRecord struct {
	Filename     string      `gorm:"column:filename;primaryKey" json:"filename"`
	FileID       string      `gorm:"column:file_id" json:"file_id"`
	StorageKind  StorageKind `gorm:"column:storage_type" json:"storage_type"`
	ContentType  string      `gorm:"column:content_type" json:"content_type"`
	SpeakerCount int         `gorm:"column:nb_speakers" json:"nb_speakers"`

	// JobRef identifies an in-flight or completed diarization job. It is
	// retained for 24 hours after job completion, then cleared by a
	// caller-driven sweep (see store.ClearStaleJobRefs).
	JobRef         *string    `gorm:"column:job_id" json:"job_id,omitempty"`
	JobCompletedAt *time.Time `gorm:"column:job_completed_at" json:"-"`

	HumanScore      *int     `gorm:"column:human_score" json:"human_score,omitempty"`
	SampleMeanScore *float64 `gorm:"column:sample_level_mean_score" json:"sample_level_mean_score,omitempty"`

	SampleConfidences *SampleConfidences `gorm:"column:sample_level_confidences;serializer:json" json:"sample_level_confidences,omitempty"`
	Segments          []Segment          `gorm:"column:diarization_result;serializer:json" json:"diarization_result,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName keeps the collection name used by existing data.
func (FileRecord) TableName() string { return "file_infos" }

// State is the lifecycle state of a record, derived from which fields are
// populated rather than stored separately.
type State string

const (
	// StateCreated: identity, storage, and speaker-count fields only.
	StateCreated State = "created"
	// StateAwaitingDiarization: a diarization job has been submitted.
	StateAwaitingDiarization State = "awaiting_diarization"
	// StateDiarized: segments and confidences are attached.
	StateDiarized State = "diarized"
	// StateHumanScored: a reviewer has scored the diarization.
	StateHumanScored State = "human_scored"
)

// State derives the record's lifecycle state.
func (r *FileRecord) State() State {
	switch {
	case r.HumanScore != nil && r.Segments != nil:
		return StateHumanScored
	case r.Segments != nil || r.SampleConfidences != nil:
		return StateDiarized
	case r.JobRef != nil:
		return StateAwaitingDiarization
	default:
		return StateCreated
	}
}

// QueryableByMeanScore reports whether the record can match a mean-score
// range query: both the human score and the sample-level mean must exist.
func (r *FileRecord) QueryableByMeanScore() bool {
	return r.HumanScore != nil && r.SampleMeanScore != nil
}

// QueryableBySampleWindow reports whether sample-level window queries can
// run against this record.
func (r *FileRecord) QueryableBySampleWindow() bool {
	return r.SampleConfidences != nil
}

// QueryableByTurnWindow reports whether turn-level window queries can run
// against this record.
func (r *FileRecord) QueryableByTurnWindow() bool {
	return len(r.Segments) > 0
}
