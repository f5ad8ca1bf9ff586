// Package store persists diarized-file records in a document store with a
// unique index on filename, built on GORM with the sqlite driver. Every
// write is a single-document atomic operation; concurrent writes to the
// same filename are last-write-wins, which is acceptable for a
// single-operator tool.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Heimeroux/pyannote-api-toolkit/confidence"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/record"
)

// Store wraps the record collection.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the store, configures the connection pool, and migrates
// the record schema. TranslateError turns driver-level unique constraint
// violations into gorm.ErrDuplicatedKey so filename collisions surface as
// DuplicateKey errors.
func Open(cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log, slowThreshold, parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.DSN, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}

	if err := db.AutoMigrate(&record.FileRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	l := log.WithComponent("store")
	l.Info("Record store ready", map[string]interface{}{"dsn": cfg.DSN})

	return &Store{db: db, log: l}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert creates a new record. A filename collision yields DuplicateKey;
// the write is rejected, never retried.
func (s *Store) Insert(ctx context.Context, rec *record.FileRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fromStore(err, "record", rec.Filename)
	}
	s.log.Debug("Record inserted", map[string]interface{}{logger.FieldFilename: rec.Filename})
	return nil
}

// GetByFilename returns the record for filename or NotFound.
func (s *Store) GetByFilename(ctx context.Context, filename string) (*record.FileRecord, error) {
	var rec record.FileRecord
	if err := s.db.WithContext(ctx).First(&rec, "filename = ?", filename).Error; err != nil {
		return nil, fromStore(err, "record", filename)
	}
	return &rec, nil
}

// GetByJobRef returns the record carrying the given job reference, or
// NotFound when no record references the job.
func (s *Store) GetByJobRef(ctx context.Context, jobRef string) (*record.FileRecord, error) {
	var rec record.FileRecord
	if err := s.db.WithContext(ctx).First(&rec, "job_id = ?", jobRef).Error; err != nil {
		return nil, fromStore(err, "record", jobRef)
	}
	return &rec, nil
}

// SetJobRef records the diarization job reference for filename, moving the
// record into the awaiting-diarization state.
func (s *Store) SetJobRef(ctx context.Context, filename, jobRef string) error {
	res := s.db.WithContext(ctx).Model(&record.FileRecord{}).
		Where("filename = ?", filename).
		Updates(map[string]interface{}{"job_id": jobRef, "job_completed_at": nil})
	if res.Error != nil {
		return fromStore(res.Error, "record", filename)
	}
	if res.RowsAffected == 0 {
		return fromStore(gorm.ErrRecordNotFound, "record", filename)
	}
	return nil
}

// AttachDiarization attaches the diarization result to the record carrying
// jobRef: segments, sample-level confidences, and the engine-supplied mean
// score. The job completion time is stamped so the retention sweep can
// clear the reference 24 hours later. Fails with NotFound when no record
// references the job.
func (s *Store) AttachDiarization(ctx context.Context, jobRef string, segments []record.Segment, samples *record.SampleConfidences, meanScore float64) error {
	rec, err := s.GetByJobRef(ctx, jobRef)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rec.Segments = segments
	rec.SampleConfidences = samples
	rec.SampleMeanScore = &meanScore
	rec.JobCompletedAt = &now

	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fromStore(err, "record", rec.Filename)
	}
	s.log.Info("Diarization result attached", map[string]interface{}{
		logger.FieldFilename: rec.Filename,
		logger.FieldJobID:    jobRef,
		"segments":           len(segments),
	})
	return nil
}

// UpdateHumanScore sets the reviewer's score for filename.
func (s *Store) UpdateHumanScore(ctx context.Context, filename string, score int) error {
	res := s.db.WithContext(ctx).Model(&record.FileRecord{}).
		Where("filename = ?", filename).
		Update("human_score", score)
	if res.Error != nil {
		return fromStore(res.Error, "record", filename)
	}
	if res.RowsAffected == 0 {
		return fromStore(gorm.ErrRecordNotFound, "record", filename)
	}
	return nil
}

// Delete removes the record for filename. The caller owns releasing the
// referenced blob bytes and refreshing any filename caches.
func (s *Store) Delete(ctx context.Context, filename string) error {
	res := s.db.WithContext(ctx).Delete(&record.FileRecord{}, "filename = ?", filename)
	if res.Error != nil {
		return fromStore(res.Error, "record", filename)
	}
	if res.RowsAffected == 0 {
		return fromStore(gorm.ErrRecordNotFound, "record", filename)
	}
	s.log.Info("Record deleted", map[string]interface{}{logger.FieldFilename: filename})
	return nil
}

// Filenames lists every registered filename in lexical order. The UI
// mirrors this into its dropdown and refreshes it after create/delete.
func (s *Store) Filenames(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.WithContext(ctx).Model(&record.FileRecord{}).
		Order("filename").
		Pluck("filename", &names).Error
	if err != nil {
		return nil, fromStore(err, "record", "")
	}
	return names, nil
}

// Count returns the total number of records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&record.FileRecord{}).Count(&n).Error; err != nil {
		return 0, fromStore(err, "record", "")
	}
	return n, nil
}

// FindByMeanScores runs the mean-score range predicate in the store.
// Records missing either score are excluded by the NOT NULL guards, so an
// unscored record never matches regardless of bounds.
func (s *Store) FindByMeanScores(ctx context.Context, q confidence.MeanScoreRange) ([]confidence.RecordScores, error) {
	rows := []confidence.RecordScores{}
	err := s.db.WithContext(ctx).Model(&record.FileRecord{}).
		Select("filename", "human_score", "sample_level_mean_score").
		Where("human_score IS NOT NULL").
		Where("sample_level_mean_score IS NOT NULL").
		Where("human_score >= ? AND human_score <= ?", q.HumanMin, q.HumanMax).
		Where("sample_level_mean_score >= ? AND sample_level_mean_score <= ?", q.SampleMin, q.SampleMax).
		Order("filename").
		Scan(&rows).Error
	if err != nil {
		return nil, fromStore(err, "record", "")
	}
	return rows, nil
}

// ClearStaleJobRefs clears job references on records whose job completed
// before the retention cutoff. Idempotent: a second sweep finds nothing.
// Invoked by an external scheduler, not a timer inside this core.
func (s *Store) ClearStaleJobRefs(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res := s.db.WithContext(ctx).Model(&record.FileRecord{}).
		Where("job_id IS NOT NULL").
		Where("job_completed_at IS NOT NULL").
		Where("job_completed_at <= ?", cutoff).
		Update("job_id", nil)
	if res.Error != nil {
		return 0, fromStore(res.Error, "record", "")
	}
	if res.RowsAffected > 0 {
		s.log.Info("Stale job references cleared", map[string]interface{}{"count": res.RowsAffected})
	}
	return res.RowsAffected, nil
}

var _ confidence.Source = (*Store)(nil)
