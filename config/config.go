// Package config provides configuration loading and management for the
// policy generator.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theSolTrain/nse-policy-generator/attachment"
	"github.com/theSolTrain/nse-policy-generator/render"
	"github.com/theSolTrain/nse-policy-generator/storage"
)

// Storage drivers for drafts.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverNATS   = "nats"
)

// Config represents the complete configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Render      RenderConfig      `yaml:"render"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Storage     StorageConfig     `yaml:"storage"`
	NATS        NATSConfig        `yaml:"nats"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr"`
	// Prefix is the API mount path (default: /api)
	Prefix string `yaml:"prefix"`
	// MaxUploadBytes bounds a whole multipart request
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	// ShutdownTimeout is how long in-flight requests get on shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RenderConfig configures the headless browser
type RenderConfig struct {
	// ChromePath is the browser binary (empty = chromedp's lookup)
	ChromePath string `yaml:"chrome_path"`
	// Timeout bounds a single render
	Timeout time.Duration `yaml:"timeout"`
	// MaxConcurrent is the number of simultaneous browser processes
	MaxConcurrent int `yaml:"max_concurrent"`
	// NoSandbox disables the browser sandbox, needed in most containers
	NoSandbox bool `yaml:"no_sandbox"`
	// Page is the printed page layout
	Page render.PageSpec `yaml:"page"`
}

// AttachmentsConfig configures uploaded images
type AttachmentsConfig struct {
	MaxBytes int64    `yaml:"max_bytes"`
	Types    []string `yaml:"types"`
}

// StorageConfig configures the draft store
type StorageConfig struct {
	// Driver is memory, sqlite or nats
	Driver string `yaml:"driver"`
	// Path is the SQLite database file
	Path string `yaml:"path"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
	// StoreDir is the embedded server's JetStream directory (empty = temp)
	StoreDir string `yaml:"store_dir"`
	// Publish enables "document generated" events
	Publish bool `yaml:"publish"`
	// Subject is the event subject
	Subject string `yaml:"subject"`
	// Bucket is the JetStream KV bucket for drafts
	Bucket string `yaml:"bucket"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
	// Format is text or json
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Prefix:          "/api",
			MaxUploadBytes:  8 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Render: RenderConfig{
			Timeout:       30 * time.Second,
			MaxConcurrent: 2,
			Page:          render.A4(),
		},
		Attachments: AttachmentsConfig{
			MaxBytes: attachment.MaxSize,
			Types:    append([]string(nil), attachment.DefaultTypes...),
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   defaultDBPath(),
		},
		NATS: NATSConfig{
			Embedded: true,
			Subject:  "policy.document.generated",
			Bucket:   storage.DefaultBucket,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultDBPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "nsepolicy", "drafts.db")
	}
	return "drafts.db"
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !strings.HasPrefix(c.Server.Prefix, "/") {
		return fmt.Errorf("server.prefix must start with /")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("render.timeout must be positive")
	}
	if c.Render.MaxConcurrent < 1 {
		return fmt.Errorf("render.max_concurrent must be at least 1")
	}
	if err := c.Render.Page.Validate(); err != nil {
		return fmt.Errorf("render.page: %w", err)
	}
	if c.Attachments.MaxBytes <= 0 {
		return fmt.Errorf("attachments.max_bytes must be positive")
	}
	if c.Attachments.MaxBytes > c.Server.MaxUploadBytes {
		return fmt.Errorf("attachments.max_bytes exceeds server.max_upload_bytes")
	}
	if len(c.Attachments.Types) == 0 {
		return fmt.Errorf("attachments.types must not be empty")
	}
	for _, t := range c.Attachments.Types {
		if !strings.HasPrefix(t, "image/") {
			return fmt.Errorf("attachments.types: %q is not an image type", t)
		}
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case DriverNATS:
		if c.NATS.Bucket == "" {
			return fmt.Errorf("nats.bucket is required for the nats driver")
		}
	default:
		return fmt.Errorf("storage.driver must be memory, sqlite or nats, got %q", c.Storage.Driver)
	}
	if c.NATS.Publish && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when publishing")
	}
	if c.UsesNATS() && c.NATS.URL == "" && !c.NATS.Embedded {
		return fmt.Errorf("nats.url is required when nats.embedded is false")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// UsesNATS reports whether any component needs a NATS connection.
func (c *Config) UsesNATS() bool {
	return c.Storage.Driver == DriverNATS || c.NATS.Publish
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// loadOverlay parses a YAML file onto a zero Config so Merge only sees the
// keys the file sets.
func loadOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.Prefix != "" {
		c.Server.Prefix = other.Server.Prefix
	}
	if other.Server.MaxUploadBytes != 0 {
		c.Server.MaxUploadBytes = other.Server.MaxUploadBytes
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// Render
	if other.Render.ChromePath != "" {
		c.Render.ChromePath = other.Render.ChromePath
	}
	if other.Render.Timeout != 0 {
		c.Render.Timeout = other.Render.Timeout
	}
	if other.Render.MaxConcurrent != 0 {
		c.Render.MaxConcurrent = other.Render.MaxConcurrent
	}
	if other.Render.NoSandbox {
		c.Render.NoSandbox = true
	}
	if other.Render.Page != (render.PageSpec{}) {
		c.Render.Page = other.Render.Page
	}

	// Attachments
	if other.Attachments.MaxBytes != 0 {
		c.Attachments.MaxBytes = other.Attachments.MaxBytes
	}
	if len(other.Attachments.Types) > 0 {
		c.Attachments.Types = other.Attachments.Types
	}

	// Storage
	if other.Storage.Driver != "" {
		c.Storage.Driver = other.Storage.Driver
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.StoreDir != "" {
		c.NATS.StoreDir = other.NATS.StoreDir
	}
	if other.NATS.Publish {
		c.NATS.Publish = true
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
	if other.NATS.Bucket != "" {
		c.NATS.Bucket = other.NATS.Bucket
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
