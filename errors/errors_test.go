package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_NotFound(t *testing.T) {
	err := NotFound("record", "audio1.mp3")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
	if err.Details["resource"] != "record" {
		t.Errorf("expected resource=record, got %v", err.Details["resource"])
	}
	if err.Details["key"] != "audio1.mp3" {
		t.Errorf("expected key=audio1.mp3, got %v", err.Details["key"])
	}
}

func TestAppError_NotFound_EmptyKey(t *testing.T) {
	err := NotFound("record", "")
	if _, ok := err.Details["key"]; ok {
		t.Error("expected no 'key' detail when key is empty")
	}
}

func TestAppError_DuplicateKey(t *testing.T) {
	err := DuplicateKey("record", "audio1.mp3")
	if err.Code != ErrCodeDuplicateKey {
		t.Errorf("expected DUPLICATE_KEY, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %d", err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("duplicate key must not be retryable")
	}
	if !strings.Contains(err.Message, "audio1.mp3") {
		t.Errorf("message should name the colliding filename, got %q", err.Message)
	}
}

func TestAppError_UpstreamFailure(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := UpstreamFailure("pyannote", cause)
	if err.Code != ErrCodeUpstreamFailure {
		t.Errorf("expected UPSTREAM_FAILURE, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", err.HTTPStatus)
	}
	if !err.Retryable {
		t.Error("upstream failures should be marked retryable for the caller")
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to unwrap")
	}
}

func TestAppError_Validation(t *testing.T) {
	err := Validation("nb_speakers: must be between 1 and 100")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Retryable {
		t.Error("validation errors must not be retryable")
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := Validation("bad input").WithCause(fmt.Errorf("boom"))
	s := err.Error()
	if !strings.Contains(s, "INVALID_INPUT") || !strings.Contains(s, "boom") {
		t.Errorf("unexpected error string: %q", s)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("record", "x")
	wrapped := fmt.Errorf("handler: %w", appErr)

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to unwrap")
	}
	if got.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", got.Code)
	}

	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error should not convert")
	}
}

func TestIsCode(t *testing.T) {
	err := DuplicateKey("record", "a.wav")
	if !IsCode(err, ErrCodeDuplicateKey) {
		t.Error("expected IsCode to match DUPLICATE_KEY")
	}
	if IsCode(err, ErrCodeNotFound) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeNotFound) {
		t.Error("IsCode should reject non-AppError")
	}
}

func TestToResponse(t *testing.T) {
	err := MissingField("filename")
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeMissingField {
		t.Errorf("expected MISSING_FIELD, got %s", resp.Error.Code)
	}
	if resp.Error.Details["field"] != "filename" {
		t.Errorf("expected field detail, got %v", resp.Error.Details)
	}
}
