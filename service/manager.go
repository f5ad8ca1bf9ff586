// Package service implements the lifecycle of a diarized-file record: audio
// upload, asynchronous diarization, human scoring, retention, and removal.
// It coordinates the record store, the blob store, and the diarization
// engine; all query reads go through the confidence engine instead.
package service

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/pyannote"
	"github.com/Heimeroux/pyannote-api-toolkit/record"
	"github.com/Heimeroux/pyannote-api-toolkit/storage"
	"github.com/Heimeroux/pyannote-api-toolkit/store"
)

// DefaultJobRetention is how long a completed job's reference is kept on
// the record before the sweep clears it.
const DefaultJobRetention = 24 * time.Hour

// Diarizer is the slice of the diarization engine the manager needs.
// *pyannote.Client implements it; tests substitute a fake.
type Diarizer interface {
	RegisterMedia(ctx context.Context, fileID string) (string, error)
	UploadMedia(ctx context.Context, presignedURL string, body io.Reader) error
	SubmitJob(ctx context.Context, fileID string) (string, error)
}

// Manager owns record lifecycle transitions.
type Manager struct {
	records   *store.Store
	blobs     storage.Store
	diarizer  Diarizer
	retention time.Duration
	log       *logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithJobRetention overrides the completed-job reference retention window.
func WithJobRetention(d time.Duration) Option {
	return func(m *Manager) { m.retention = d }
}

// NewManager wires the manager to its collaborators.
func NewManager(records *store.Store, blobs storage.Store, diarizer Diarizer, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		records:   records,
		blobs:     blobs,
		diarizer:  diarizer,
		retention: DefaultJobRetention,
		log:       log.WithComponent("service"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UploadRequest describes a new audio file registration.
type UploadRequest struct {
	Filename     string
	ContentType  string
	SpeakerCount int
	Body         io.Reader
}

// Upload validates the request, stores the audio bytes in the blob store,
// and creates the record. The filename is the user-facing identity and must
// be unique; a collision rejects the whole upload and releases the blob.
// Result fields stay empty until diarization completes.
func (m *Manager) Upload(ctx context.Context, req UploadRequest) (*record.FileRecord, error) {
	rec := &record.FileRecord{
		Filename:     req.Filename,
		FileID:       uuid.NewString(),
		StorageKind:  m.blobs.Kind(),
		ContentType:  req.ContentType,
		SpeakerCount: req.SpeakerCount,
	}
	if err := rec.ValidateNew(); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, apperrors.MissingField("file")
	}

	if err := m.blobs.Put(ctx, rec.FileID, req.Body, rec.ContentType); err != nil {
		return nil, apperrors.UpstreamFailure("blob store", err)
	}

	if err := m.records.Insert(ctx, rec); err != nil {
		// The record is the source of truth; without it the blob is
		// unreachable, so release it. Failure here only leaks bytes.
		if delErr := m.blobs.Delete(ctx, rec.FileID); delErr != nil {
			m.log.Warn("Orphaned blob after rejected insert", map[string]interface{}{
				"file_id": rec.FileID, logger.FieldError: delErr.Error(),
			})
		}
		return nil, err
	}

	m.log.Info("File uploaded", map[string]interface{}{
		logger.FieldFilename: rec.Filename, "file_id": rec.FileID,
	})
	return rec, nil
}

// StartDiarization pushes the stored audio to the diarization engine and
// submits an asynchronous job for it. The returned job reference is stored
// on the record; the result arrives later through AttachResult.
func (m *Manager) StartDiarization(ctx context.Context, filename string) (string, error) {
	rec, err := m.records.GetByFilename(ctx, filename)
	if err != nil {
		return "", err
	}

	blob, err := m.blobs.Get(ctx, rec.FileID)
	if err != nil {
		return "", apperrors.UpstreamFailure("blob store", err)
	}
	defer blob.Body.Close()

	// The engine pulls from its own media slot, so the bytes are staged
	// there before the job is submitted.
	data, err := io.ReadAll(blob.Body)
	if err != nil {
		return "", apperrors.UpstreamFailure("blob store", err)
	}

	presigned, err := m.diarizer.RegisterMedia(ctx, rec.FileID)
	if err != nil {
		return "", err
	}
	if err := m.diarizer.UploadMedia(ctx, presigned, bytes.NewReader(data)); err != nil {
		return "", err
	}

	jobID, err := m.diarizer.SubmitJob(ctx, rec.FileID)
	if err != nil {
		return "", err
	}

	if err := m.records.SetJobRef(ctx, filename, jobID); err != nil {
		return "", err
	}

	m.log.Info("Diarization started", map[string]interface{}{
		logger.FieldFilename: filename, logger.FieldJobID: jobID,
	})
	return jobID, nil
}

// AttachResult stores a completed diarization result against the record
// that owns its job reference. The sample-level mean comes from the engine
// payload as computed by ParseResult; it is written once and never
// recomputed from the stored scores.
func (m *Manager) AttachResult(ctx context.Context, res *pyannote.JobResult) error {
	if res == nil || res.JobID == "" {
		return apperrors.MissingField("jobId")
	}
	if err := record.ValidateSegments(res.Segments); err != nil {
		return err
	}
	if res.Samples != nil {
		if err := res.Samples.Validate(); err != nil {
			return err
		}
	}
	return m.records.AttachDiarization(ctx, res.JobID, res.Segments, res.Samples, res.SampleMean)
}

// SetHumanScore records the reviewer's integer score for filename. A later
// write replaces an earlier one.
func (m *Manager) SetHumanScore(ctx context.Context, filename string, score int) error {
	if err := record.ValidateHumanScore(score); err != nil {
		return err
	}
	return m.records.UpdateHumanScore(ctx, filename, score)
}

// AudioBytes returns the stored audio for filename. The content type
// declared at upload wins over whatever the backend infers.
func (m *Manager) AudioBytes(ctx context.Context, filename string) (*storage.Blob, error) {
	rec, err := m.records.GetByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}

	blob, err := m.blobs.Get(ctx, rec.FileID)
	if err != nil {
		return nil, apperrors.UpstreamFailure("blob store", err)
	}
	if rec.ContentType != "" {
		blob.ContentType = rec.ContentType
	}
	return blob, nil
}

// Delete removes the record and releases its audio bytes. The record
// delete is authoritative; a blob release failure is logged, not returned,
// so a half-deleted file cannot keep its name reserved.
func (m *Manager) Delete(ctx context.Context, filename string) error {
	rec, err := m.records.GetByFilename(ctx, filename)
	if err != nil {
		return err
	}

	if err := m.records.Delete(ctx, filename); err != nil {
		return err
	}

	if err := m.blobs.Delete(ctx, rec.FileID); err != nil {
		m.log.Warn("Blob release failed after record delete", map[string]interface{}{
			logger.FieldFilename: filename, "file_id": rec.FileID, logger.FieldError: err.Error(),
		})
	}

	return nil
}

// Filenames lists every registered filename.
func (m *Manager) Filenames(ctx context.Context) ([]string, error) {
	return m.records.Filenames(ctx)
}

// Count returns the number of registered records.
func (m *Manager) Count(ctx context.Context) (int64, error) {
	return m.records.Count(ctx)
}

// Record returns the full record for filename.
func (m *Manager) Record(ctx context.Context, filename string) (*record.FileRecord, error) {
	return m.records.GetByFilename(ctx, filename)
}

// ClearStaleJobRefs clears job references whose jobs completed longer ago
// than the retention window. Idempotent; meant for an external scheduler.
func (m *Manager) ClearStaleJobRefs(ctx context.Context) (int64, error) {
	return m.records.ClearStaleJobRefs(ctx, m.retention)
}
