package pyannote

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Heimeroux/pyannote-api-toolkit/confidence"
	apperrors "github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/record"
)

// Webhook header names used by pyannote.ai callbacks.
const (
	HeaderTimestamp = "X-Request-Timestamp"
	HeaderSignature = "X-Signature"
)

// Signature computes the hex HMAC-SHA256 signature over the callback body
// with the versioned signing scheme: the signed content is
// "v0:{timestamp}:{body}".
func Signature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook callback signature in constant time.
// The raw request body must be used; re-serialized JSON will not match.
func VerifySignature(secret, timestamp, received string, body []byte) error {
	if timestamp == "" || received == "" {
		return apperrors.Validation("missing webhook signature headers")
	}
	expected := Signature(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return apperrors.InvalidInput("signature", "webhook signature mismatch")
	}
	return nil
}

// JobResult is a parsed diarization callback: the segments, the raw
// sample-level confidences, and the means derived from them.
type JobResult struct {
	JobID      string
	Segments   []record.Segment
	Samples    *record.SampleConfidences
	SampleMean float64
	TurnMean   float64
}

type webhookPayload struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Output struct {
		Diarization []record.Segment          `json:"diarization"`
		Confidence  *record.SampleConfidences `json:"confidence"`
	} `json:"output"`
}

// ParseResult decodes a verified callback body into a JobResult and
// computes the two mean scores. A callback without a job reference is
// rejected; a missing confidence block yields a zero sample mean, matching
// how absent scores are treated everywhere else.
func ParseResult(body []byte) (*JobResult, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.Validation("malformed webhook payload").WithCause(err)
	}
	if payload.JobID == "" {
		return nil, apperrors.MissingField("jobId")
	}

	res := &JobResult{
		JobID:    payload.JobID,
		Segments: payload.Output.Diarization,
		Samples:  payload.Output.Confidence,
		TurnMean: confidence.TurnMean(payload.Output.Diarization),
	}
	if res.Samples != nil {
		res.SampleMean = confidence.SampleMean(res.Samples.Scores)
	}
	return res, nil
}
