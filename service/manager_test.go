package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/pyannote"
	"github.com/Heimeroux/pyannote-api-toolkit/record"
	"github.com/Heimeroux/pyannote-api-toolkit/storage/local"
	"github.com/Heimeroux/pyannote-api-toolkit/store"
)

// fakeDiarizer records submitted jobs and hands out sequential job IDs.
type fakeDiarizer struct {
	registered []string
	uploaded   int
	submitted  []string
	failSubmit bool
}

func (f *fakeDiarizer) RegisterMedia(_ context.Context, fileID string) (string, error) {
	f.registered = append(f.registered, fileID)
	return "https://upload.example/" + fileID, nil
}

func (f *fakeDiarizer) UploadMedia(_ context.Context, _ string, body io.Reader) error {
	io.Copy(io.Discard, body)
	f.uploaded++
	return nil
}

func (f *fakeDiarizer) SubmitJob(_ context.Context, fileID string) (string, error) {
	if f.failSubmit {
		return "", errors.UpstreamFailure("pyannote", fmt.Errorf("engine down"))
	}
	jobID := fmt.Sprintf("job-%d", len(f.submitted)+1)
	f.submitted = append(f.submitted, fileID)
	return jobID, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeDiarizer) {
	t.Helper()
	log := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"}, "service-test")

	records, err := store.Open(store.Config{DSN: ":memory:", LogLevel: "silent"}, log)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { records.Close() })

	blobs, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("local.NewStore() error = %v", err)
	}

	diarizer := &fakeDiarizer{}
	return NewManager(records, blobs, diarizer, log), diarizer
}

func upload(t *testing.T, m *Manager, filename string) *record.FileRecord {
	t.Helper()
	rec, err := m.Upload(context.Background(), UploadRequest{
		Filename:     filename,
		ContentType:  "audio/wav",
		SpeakerCount: 2,
		Body:         strings.NewReader("fake-audio-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload(%s) error = %v", filename, err)
	}
	return rec
}

func TestUploadCreatesRecordAndBlob(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	rec := upload(t, m, "interview.wav")
	if rec.FileID == "" {
		t.Error("FileID should be minted at upload")
	}
	if rec.StorageKind != record.StorageLocal {
		t.Errorf("StorageKind = %q, want %q", rec.StorageKind, record.StorageLocal)
	}
	if rec.State() != record.StateCreated {
		t.Errorf("State() = %q, want %q", rec.State(), record.StateCreated)
	}

	exists, err := m.blobs.Exists(ctx, rec.FileID)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("audio blob should be stored under the minted file ID")
	}

	blob, err := m.AudioBytes(ctx, "interview.wav")
	if err != nil {
		t.Fatalf("AudioBytes() error = %v", err)
	}
	defer blob.Body.Close()
	data, _ := io.ReadAll(blob.Body)
	if string(data) != "fake-audio-bytes" {
		t.Errorf("audio bytes = %q", data)
	}
	if blob.ContentType != "audio/wav" {
		t.Errorf("ContentType = %q, want the declared audio/wav", blob.ContentType)
	}
}

func TestUploadDuplicateFilenameReleasesBlob(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first := upload(t, m, "dup.wav")

	_, err := m.Upload(ctx, UploadRequest{
		Filename:     "dup.wav",
		ContentType:  "audio/wav",
		SpeakerCount: 3,
		Body:         strings.NewReader("other-bytes"),
	})
	if !errors.IsCode(err, errors.ErrCodeDuplicateKey) {
		t.Fatalf("Upload() error = %v, want code %s", err, errors.ErrCodeDuplicateKey)
	}

	// The surviving record and its bytes are the first upload's.
	blob, err := m.AudioBytes(ctx, "dup.wav")
	if err != nil {
		t.Fatalf("AudioBytes() error = %v", err)
	}
	defer blob.Body.Close()
	data, _ := io.ReadAll(blob.Body)
	if string(data) != "fake-audio-bytes" {
		t.Errorf("audio bytes = %q, want the first upload's", data)
	}

	rec, err := m.Record(ctx, "dup.wav")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.FileID != first.FileID {
		t.Errorf("FileID = %q, want the first upload's %q", rec.FileID, first.FileID)
	}
}

func TestUploadValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  UploadRequest
		code errors.ErrorCode
	}{
		{
			name: "missing filename",
			req:  UploadRequest{ContentType: "audio/wav", SpeakerCount: 2, Body: strings.NewReader("x")},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "speaker count too low",
			req:  UploadRequest{Filename: "a.wav", ContentType: "audio/wav", SpeakerCount: 0, Body: strings.NewReader("x")},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "speaker count too high",
			req:  UploadRequest{Filename: "a.wav", ContentType: "audio/wav", SpeakerCount: 101, Body: strings.NewReader("x")},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "missing body",
			req:  UploadRequest{Filename: "a.wav", ContentType: "audio/wav", SpeakerCount: 2},
			code: errors.ErrCodeMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Upload(ctx, tt.req)
			if !errors.IsCode(err, tt.code) {
				t.Errorf("Upload() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestDiarizationLifecycle(t *testing.T) {
	m, diarizer := newTestManager(t)
	ctx := context.Background()

	rec := upload(t, m, "call.wav")

	jobID, err := m.StartDiarization(ctx, "call.wav")
	if err != nil {
		t.Fatalf("StartDiarization() error = %v", err)
	}
	if jobID != "job-1" {
		t.Errorf("jobID = %q, want job-1", jobID)
	}
	if len(diarizer.registered) != 1 || diarizer.registered[0] != rec.FileID {
		t.Errorf("registered media = %v, want [%s]", diarizer.registered, rec.FileID)
	}
	if diarizer.uploaded != 1 {
		t.Errorf("uploaded = %d, want 1", diarizer.uploaded)
	}

	got, _ := m.Record(ctx, "call.wav")
	if got.State() != record.StateAwaitingDiarization {
		t.Errorf("State() = %q, want %q", got.State(), record.StateAwaitingDiarization)
	}

	err = m.AttachResult(ctx, &pyannote.JobResult{
		JobID: jobID,
		Segments: []record.Segment{
			{Start: 0, End: 2, Speaker: "SPEAKER_00", Confidence: map[string]float64{"SPEAKER_00": 0.9}},
		},
		Samples:    &record.SampleConfidences{Scores: []int{80, 60}, Resolution: 0.5},
		SampleMean: 70,
	})
	if err != nil {
		t.Fatalf("AttachResult() error = %v", err)
	}

	got, _ = m.Record(ctx, "call.wav")
	if got.State() != record.StateDiarized {
		t.Errorf("State() = %q, want %q", got.State(), record.StateDiarized)
	}
	if got.SampleMeanScore == nil || *got.SampleMeanScore != 70 {
		t.Errorf("SampleMeanScore = %v, want 70", got.SampleMeanScore)
	}

	if err := m.SetHumanScore(ctx, "call.wav", 85); err != nil {
		t.Fatalf("SetHumanScore() error = %v", err)
	}
	got, _ = m.Record(ctx, "call.wav")
	if got.State() != record.StateHumanScored {
		t.Errorf("State() = %q, want %q", got.State(), record.StateHumanScored)
	}
}

func TestStartDiarizationEngineDown(t *testing.T) {
	m, diarizer := newTestManager(t)
	diarizer.failSubmit = true

	upload(t, m, "call.wav")

	_, err := m.StartDiarization(context.Background(), "call.wav")
	if !errors.IsCode(err, errors.ErrCodeUpstreamFailure) {
		t.Fatalf("StartDiarization() error = %v, want code %s", err, errors.ErrCodeUpstreamFailure)
	}

	// No job reference must be left behind on failure.
	got, _ := m.Record(context.Background(), "call.wav")
	if got.JobRef != nil {
		t.Errorf("JobRef = %v, want nil after failed submit", *got.JobRef)
	}
}

func TestAttachResultUnknownJob(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.AttachResult(context.Background(), &pyannote.JobResult{JobID: "job-ghost"})
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("AttachResult() error = %v, want code %s", err, errors.ErrCodeNotFound)
	}
}

func TestSetHumanScoreOutOfRange(t *testing.T) {
	m, _ := newTestManager(t)
	upload(t, m, "a.wav")

	for _, score := range []int{-1, 101} {
		if err := m.SetHumanScore(context.Background(), "a.wav", score); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("SetHumanScore(%d) error = %v, want code %s", score, err, errors.ErrCodeInvalidInput)
		}
	}
}

func TestDeleteRemovesRecordAndBlob(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	rec := upload(t, m, "gone.wav")

	if err := m.Delete(ctx, "gone.wav"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := m.Record(ctx, "gone.wav"); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Record() after delete error = %v, want code %s", err, errors.ErrCodeNotFound)
	}
	exists, _ := m.blobs.Exists(ctx, rec.FileID)
	if exists {
		t.Error("blob should be released with the record")
	}

	if err := m.Delete(ctx, "gone.wav"); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("second Delete() error = %v, want code %s", err, errors.ErrCodeNotFound)
	}
}

func TestFilenamesAndCount(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	upload(t, m, "b.wav")
	upload(t, m, "a.wav")

	names, err := m.Filenames(ctx)
	if err != nil {
		t.Fatalf("Filenames() error = %v", err)
	}
	if len(names) != 2 || names[0] != "a.wav" || names[1] != "b.wav" {
		t.Errorf("Filenames() = %v, want [a.wav b.wav]", names)
	}

	n, err := m.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestClearStaleJobRefsRetention(t *testing.T) {
	log := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"}, "service-test")
	records, err := store.Open(store.Config{DSN: ":memory:", LogLevel: "silent"}, log)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { records.Close() })
	blobs, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("local.NewStore() error = %v", err)
	}
	m := NewManager(records, blobs, &fakeDiarizer{}, log, WithJobRetention(time.Nanosecond))
	ctx := context.Background()

	upload(t, m, "done.wav")
	if _, err := m.StartDiarization(ctx, "done.wav"); err != nil {
		t.Fatalf("StartDiarization() error = %v", err)
	}
	if err := m.AttachResult(ctx, &pyannote.JobResult{JobID: "job-1", SampleMean: 10}); err != nil {
		t.Fatalf("AttachResult() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	cleared, err := m.ClearStaleJobRefs(ctx)
	if err != nil {
		t.Fatalf("ClearStaleJobRefs() error = %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}

	got, _ := m.Record(ctx, "done.wav")
	if got.JobRef != nil {
		t.Errorf("JobRef = %v, want cleared", *got.JobRef)
	}
	if got.SampleMeanScore == nil || *got.SampleMeanScore != 10 {
		t.Error("clearing the job reference must not touch the result fields")
	}
}
