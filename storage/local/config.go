package local

import "fmt"

// DefaultBasePath is the default root directory for local blobs.
const DefaultBasePath = "/tmp/audio-blobs"

// Config holds local filesystem blob store configuration.
type Config struct {
	// BasePath is the root directory for stored blobs.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
}

// Validate checks that the local configuration is valid.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("local: base_path is required")
	}
	return nil
}
