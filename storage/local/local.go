// Package local implements the blob store on the local filesystem. Each
// blob is a single file under the base directory, named by its key.
package local

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/record"
	"github.com/Heimeroux/pyannote-api-toolkit/storage"
)

func init() {
	storage.RegisterFactory("local", func(cfg storage.Config, providerCfg any, log *logger.Logger) (storage.Store, error) {
		c := &Config{BasePath: cfg.BasePath}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("local: expected *local.Config, got %T", providerCfg)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewStore(c.BasePath)
	})
}

// Store implements storage.Store using the local filesystem.
type Store struct {
	basePath string
}

// NewStore creates a local blob store rooted at basePath, creating the
// directory if needed.
func NewStore(basePath string) (*Store, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("local: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("local: create base directory: %w", err)
	}
	return &Store{basePath: abs}, nil
}

// keyPath confines key to the base directory. Keys are generated
// identifiers, but a cleaned join keeps a malformed key from escaping.
func (s *Store) keyPath(key string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+key))
}

// Put writes the blob bytes to a file named by key.
func (s *Store) Put(_ context.Context, key string, body io.Reader, _ string) error {
	fullPath := s.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("local: create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("local: create file: %w", err)
	}
	defer f.Close() //nolint:errcheck // Error on close is safe to ignore for read operations

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("local: write file: %w", err)
	}
	return nil
}

// Get opens the blob file for key. The content type is inferred from the
// key's extension when one is present.
func (s *Store) Get(_ context.Context, key string) (*storage.Blob, error) {
	fullPath := s.keyPath(key)
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local: blob not found: %s", key)
		}
		return nil, fmt.Errorf("local: open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("local: stat file: %w", err)
	}

	ct := mime.TypeByExtension(filepath.Ext(key))
	if ct == "" {
		ct = "application/octet-stream"
	}

	return &storage.Blob{Body: f, ContentType: ct, Size: info.Size()}, nil
}

// Delete removes the blob file. Returns nil if the file does not exist.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local: delete file: %w", err)
	}
	return nil
}

// Exists checks whether the blob file exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("local: stat file: %w", err)
	}
	return true, nil
}

// Kind reports the local backend identifier.
func (s *Store) Kind() record.StorageKind { return record.StorageLocal }

// compile-time check
var _ storage.Store = (*Store)(nil)
