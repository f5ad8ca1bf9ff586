// Package storage provides the blob store that holds uploaded audio bytes,
// keyed by opaque file identifier. Supported backends: local filesystem and
// Amazon S3 (or S3-compatible services).
package storage

import (
	"context"
	"io"

	"github.com/Heimeroux/pyannote-api-toolkit/record"
)

// Blob contains the bytes and declared media type of a stored audio file.
type Blob struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store defines blob operations over an audio backend. Keys are the file
// identifiers minted at upload time, never user-supplied filenames.
type Store interface {
	// Put writes the audio bytes under key. An existing blob at the same
	// key is overwritten.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns the blob stored under key. The caller must close Body.
	Get(ctx context.Context, key string) (*Blob, error)

	// Delete removes the blob under key. Deleting an absent key is not an
	// error; record deletion must succeed even when the bytes are gone.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Kind identifies the backend so records can capture where their
	// bytes live.
	Kind() record.StorageKind
}
