package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/Heimeroux/pyannote-api-toolkit/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := "RIFF....WAVEfmt "
	if err := s.Put(ctx, "file-1.wav", strings.NewReader(payload), "audio/wav"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	blob, err := s.Get(ctx, "file-1.wav")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != payload {
		t.Errorf("body = %q, want %q", data, payload)
	}
	if blob.Size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", blob.Size, len(payload))
	}
}

func TestPutOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", strings.NewReader("first"), ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "k", strings.NewReader("second"), ""); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	blob, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer blob.Body.Close()
	data, _ := io.ReadAll(blob.Body)
	if string(data) != "second" {
		t.Errorf("body = %q, want overwritten value", data)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get(context.Background(), "nope"); err == nil {
		t.Fatal("Get() on missing key should fail")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", strings.NewReader("x"), ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() on missing key error = %v, want nil", err)
	}

	exists, err := s.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true after delete")
	}
}

func TestKeyCannotEscapeBase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "../../etc/escape", strings.NewReader("x"), ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	exists, err := s.Exists(ctx, "../../etc/escape")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("blob should be stored inside the base directory under the cleaned key")
	}
}

func TestKind(t *testing.T) {
	s := newTestStore(t)
	if got := s.Kind(); got != record.StorageLocal {
		t.Errorf("Kind() = %q, want %q", got, record.StorageLocal)
	}
}
