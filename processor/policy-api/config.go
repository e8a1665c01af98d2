package policyapi

import "fmt"

// Config holds configuration for the policy-api component.
type Config struct {
	// Prefix is the path the API is mounted under.
	Prefix string `yaml:"prefix" json:"prefix"`

	// MaxUploadBytes bounds a whole multipart generation request.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" json:"max_upload_bytes"`
}

// DefaultConfig returns the configuration used by `nsepolicy serve`.
func DefaultConfig() Config {
	return Config{
		Prefix:         "/api",
		MaxUploadBytes: 8 << 20,
	}
}

// Validate verifies the configuration is consistent.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	return nil
}
