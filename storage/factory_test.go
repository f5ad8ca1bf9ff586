package storage_test

import (
	"testing"

	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/record"
	"github.com/Heimeroux/pyannote-api-toolkit/storage"
	"github.com/Heimeroux/pyannote-api-toolkit/storage/local"
	_ "github.com/Heimeroux/pyannote-api-toolkit/storage/s3"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"}, "storage-test")
}

func TestNewLocal(t *testing.T) {
	s, err := storage.New(storage.Config{Provider: "local"}, &local.Config{BasePath: t.TempDir()}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Kind() != record.StorageLocal {
		t.Errorf("Kind() = %q, want %q", s.Kind(), record.StorageLocal)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := storage.New(storage.Config{Provider: "ftp"}, nil, testLogger())
	if err == nil {
		t.Fatal("New() with unknown provider should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"local defaults", storage.Config{Provider: "local", BasePath: "/tmp/x"}, false},
		{"s3 missing bucket", storage.Config{Provider: "s3", Region: "us-east-1"}, true},
		{"s3 complete", storage.Config{Provider: "s3", Bucket: "audio", Region: "us-east-1"}, false},
		{"unknown provider", storage.Config{Provider: "gcs"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
