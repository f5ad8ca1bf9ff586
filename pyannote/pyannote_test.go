package pyannote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"}, "pyannote-test")
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:       baseURL,
		Token:         "test-token",
		WebhookURL:    "http://localhost/webhook",
		SigningSecret: "whs-secret",
	}, testLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestRegisterMedia(t *testing.T) {
	var gotAuth, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/input" {
			t.Errorf("path = %q, want /media/input", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		gotURL = req["url"]
		json.NewEncoder(w).Encode(map[string]string{"url": "https://upload.example/presigned"})
	}))
	defer srv.Close()

	presigned, err := newTestClient(t, srv.URL).RegisterMedia(context.Background(), "file-123")
	if err != nil {
		t.Fatalf("RegisterMedia() error = %v", err)
	}
	if presigned != "https://upload.example/presigned" {
		t.Errorf("presigned = %q", presigned)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotURL != "media://file-123" {
		t.Errorf("media url = %q, want media://file-123", gotURL)
	}
}

func TestUploadMedia(t *testing.T) {
	var gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	err := newTestClient(t, "http://unused").UploadMedia(context.Background(), srv.URL, strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotBody != "audio-bytes" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestSubmitJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Errorf("path = %q, want /diarize", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["url"] != "media://file-9" {
			t.Errorf("url = %v, want media://file-9", req["url"])
		}
		if req["webhook"] != "http://localhost/webhook" {
			t.Errorf("webhook = %v", req["webhook"])
		}
		if req["confidence"] != true || req["turnLevelConfidence"] != true {
			t.Errorf("confidence flags = %v / %v, want both true", req["confidence"], req["turnLevelConfidence"])
		}
		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-55"})
	}))
	defer srv.Close()

	jobID, err := newTestClient(t, srv.URL).SubmitJob(context.Background(), "file-9")
	if err != nil {
		t.Fatalf("SubmitJob() error = %v", err)
	}
	if jobID != "job-55" {
		t.Errorf("jobID = %q, want job-55", jobID)
	}
}

func TestUpstreamFailureMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).SubmitJob(context.Background(), "file-9")
	if !errors.IsCode(err, errors.ErrCodeUpstreamFailure) {
		t.Fatalf("SubmitJob() error = %v, want code %s", err, errors.ErrCodeUpstreamFailure)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whs-secret"
	body := []byte(`{"jobId":"job-1"}`)
	ts := "1735689600"
	sig := Signature(secret, ts, body)

	if err := VerifySignature(secret, ts, sig, body); err != nil {
		t.Fatalf("VerifySignature() with valid signature error = %v", err)
	}

	if err := VerifySignature(secret, ts, sig, []byte(`{"jobId":"job-2"}`)); err == nil {
		t.Error("VerifySignature() should fail for a tampered body")
	}
	if err := VerifySignature(secret, "1735689601", sig, body); err == nil {
		t.Error("VerifySignature() should fail for a changed timestamp")
	}
	if err := VerifySignature("other-secret", ts, sig, body); err == nil {
		t.Error("VerifySignature() should fail for the wrong secret")
	}
	if err := VerifySignature(secret, "", sig, body); err == nil {
		t.Error("VerifySignature() should fail when headers are missing")
	}
}

func TestParseResult(t *testing.T) {
	body := []byte(`{
		"jobId": "job-7",
		"status": "succeeded",
		"output": {
			"diarization": [
				{"start": 0, "end": 1.5, "speaker": "SPEAKER_00", "confidence": {"SPEAKER_00": 0.9}},
				{"start": 1.5, "end": 3.0, "speaker": "SPEAKER_01", "confidence": {"SPEAKER_01": 0.7}}
			],
			"confidence": {"score": [10, 90, 50], "resolution": 0.5}
		}
	}`)

	res, err := ParseResult(body)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if res.JobID != "job-7" {
		t.Errorf("JobID = %q, want job-7", res.JobID)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(res.Segments))
	}
	if res.Samples == nil || res.Samples.Resolution != 0.5 {
		t.Fatalf("Samples = %+v, want resolution 0.5", res.Samples)
	}
	if res.SampleMean != 50.0 {
		t.Errorf("SampleMean = %v, want 50", res.SampleMean)
	}
	if res.TurnMean != 0.8 {
		t.Errorf("TurnMean = %v, want 0.8", res.TurnMean)
	}
}

func TestParseResultMissingJobID(t *testing.T) {
	_, err := ParseResult([]byte(`{"output":{}}`))
	if !errors.IsCode(err, errors.ErrCodeMissingField) {
		t.Fatalf("ParseResult() error = %v, want code %s", err, errors.ErrCodeMissingField)
	}
}

func TestParseResultMalformed(t *testing.T) {
	_, err := ParseResult([]byte(`not-json`))
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("ParseResult() error = %v, want code %s", err, errors.ErrCodeInvalidInput)
	}
}
