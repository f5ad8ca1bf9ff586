// Package pyannote wraps the pyannote.ai cloud diarization API: media
// registration and upload, asynchronous job submission, and verification
// plus parsing of the webhook callbacks that deliver results.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Heimeroux/pyannote-api-toolkit/errors"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
)

const upstreamName = "pyannote"

// Client talks to the pyannote.ai API. Jobs are asynchronous: SubmitJob
// returns a job reference and the result arrives later on the webhook.
type Client struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// NewClient creates a pyannote API client from the given config.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.WithComponent("pyannote"),
	}, nil
}

// MediaURL returns the media reference the API uses for a stored file.
func MediaURL(fileID string) string {
	return "media://" + fileID
}

type mediaInputRequest struct {
	URL string `json:"url"`
}

type mediaInputResponse struct {
	URL string `json:"url"`
}

type diarizeRequest struct {
	URL                 string `json:"url"`
	Webhook             string `json:"webhook"`
	Confidence          bool   `json:"confidence"`
	TurnLevelConfidence bool   `json:"turnLevelConfidence"`
}

type diarizeResponse struct {
	JobID string `json:"jobId"`
}

// RegisterMedia declares a media slot for fileID and returns the presigned
// URL the audio bytes must be uploaded to.
func (c *Client) RegisterMedia(ctx context.Context, fileID string) (string, error) {
	var out mediaInputResponse
	err := c.postJSON(ctx, "/media/input", mediaInputRequest{URL: MediaURL(fileID)}, &out)
	if err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", apperrors.UpstreamFailure(upstreamName, fmt.Errorf("media input response missing presigned url"))
	}
	return out.URL, nil
}

// UploadMedia PUTs the audio bytes to the presigned URL returned by
// RegisterMedia.
func (c *Client) UploadMedia(ctx context.Context, presignedURL string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, body)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("pyannote: build upload request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.UpstreamFailure(upstreamName, fmt.Errorf("media upload: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamStatusError("media upload", resp)
	}
	return nil
}

// SubmitJob starts an asynchronous diarization job for the media under
// fileID, requesting sample-level and turn-level confidences. The result
// is delivered to the configured webhook; the returned job reference ties
// the callback back to the record.
func (c *Client) SubmitJob(ctx context.Context, fileID string) (string, error) {
	var out diarizeResponse
	err := c.postJSON(ctx, "/diarize", diarizeRequest{
		URL:                 MediaURL(fileID),
		Webhook:             c.cfg.WebhookURL,
		Confidence:          true,
		TurnLevelConfidence: true,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", apperrors.UpstreamFailure(upstreamName, fmt.Errorf("diarize response missing jobId"))
	}

	c.log.Info("Diarization job submitted", map[string]interface{}{logger.FieldJobID: out.JobID})
	return out.JobID, nil
}

// SigningSecret exposes the webhook secret for callback verification.
func (c *Client) SigningSecret() string { return c.cfg.SigningSecret }

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("pyannote: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Internal(fmt.Errorf("pyannote: build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.UpstreamFailure(upstreamName, fmt.Errorf("%s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamStatusError(path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.UpstreamFailure(upstreamName, fmt.Errorf("%s: decode response: %w", path, err))
	}
	return nil
}

func upstreamStatusError(op string, resp *http.Response) *apperrors.AppError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return apperrors.UpstreamFailure(upstreamName, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, body)).
		WithDetail("status", resp.StatusCode)
}
