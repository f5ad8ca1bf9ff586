package pyannote

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.pyannote.ai/v1"
	DefaultTimeout = 60 * time.Second
)

// Config holds pyannote.ai API client configuration.
type Config struct {
	// BaseURL is the pyannote.ai API root.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Token is the API bearer token.
	Token string `yaml:"token" mapstructure:"token"`

	// WebhookURL is the publicly reachable callback URL passed with each
	// diarization job.
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`

	// SigningSecret verifies webhook callback signatures.
	SigningSecret string `yaml:"signing_secret" mapstructure:"signing_secret"`

	// Timeout bounds each API call, including the media upload.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("pyannote: token is required"))
	}
	if c.WebhookURL == "" {
		errs = append(errs, errors.New("pyannote: webhook_url is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("pyannote: invalid config: %w", errors.Join(errs...))
	}
	return nil
}
