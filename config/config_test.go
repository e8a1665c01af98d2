package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theSolTrain/nse-policy-generator/render"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Render.Page != render.A4() {
		t.Errorf("expected A4 page, got %+v", cfg.Render.Page)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if cfg.UsesNATS() {
		t.Error("default config should not need NATS")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
		},
		{
			name:    "relative prefix",
			modify:  func(c *Config) { c.Server.Prefix = "api" },
			wantErr: true,
		},
		{
			name:    "zero render timeout",
			modify:  func(c *Config) { c.Render.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "no printable area",
			modify:  func(c *Config) { c.Render.Page.MarginLeftMM = 200 },
			wantErr: true,
		},
		{
			name:    "attachment larger than upload",
			modify:  func(c *Config) { c.Attachments.MaxBytes = c.Server.MaxUploadBytes + 1 },
			wantErr: true,
		},
		{
			name:    "non-image attachment type",
			modify:  func(c *Config) { c.Attachments.Types = []string{"application/pdf"} },
			wantErr: true,
		},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Storage.Driver = "redis" },
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			modify:  func(c *Config) { c.Storage.Path = "" },
			wantErr: true,
		},
		{
			name:    "memory driver",
			modify:  func(c *Config) { c.Storage.Driver = DriverMemory; c.Storage.Path = "" },
			wantErr: false,
		},
		{
			name:    "external nats without url",
			modify:  func(c *Config) { c.Storage.Driver = DriverNATS; c.NATS.Embedded = false },
			wantErr: true,
		},
		{
			name:    "publish without subject",
			modify:  func(c *Config) { c.NATS.Publish = true; c.NATS.Subject = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  addr: ":9090"
render:
  chrome_path: "/usr/bin/chromium"
  timeout: 45s
  no_sandbox: true
storage:
  driver: nats
nats:
  url: "nats://test:4222"
  publish: true
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.Server.Addr)
	}
	if cfg.Server.Prefix != "/api" {
		t.Errorf("expected default prefix to survive, got %s", cfg.Server.Prefix)
	}
	if cfg.Render.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Render.Timeout)
	}
	if !cfg.Render.NoSandbox {
		t.Error("expected no_sandbox")
	}
	if cfg.Storage.Driver != DriverNATS {
		t.Errorf("expected nats driver, got %s", cfg.Storage.Driver)
	}
	if !cfg.UsesNATS() {
		t.Error("expected UsesNATS")
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil || level.String() != "DEBUG" {
		t.Errorf("expected debug level, got %v (%v)", level, err)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Server:  ServerConfig{Addr: ":7000"},
		Storage: StorageConfig{Driver: DriverMemory},
		NATS:    NATSConfig{URL: "nats://remote:4222"},
	}

	base.Merge(override)

	if base.Server.Addr != ":7000" {
		t.Errorf("expected addr :7000, got %s", base.Server.Addr)
	}
	// Prefix should remain from base since override didn't set it
	if base.Server.Prefix != "/api" {
		t.Errorf("expected prefix to remain default, got %s", base.Server.Prefix)
	}
	if base.Storage.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", base.Storage.Driver)
	}
	if base.NATS.Embedded {
		t.Error("an explicit URL should disable the embedded server")
	}
	if base.Render.Page != render.A4() {
		t.Error("page should remain A4")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":1234"
	cfg.Render.Timeout = time.Minute

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Server.Addr != ":1234" {
		t.Errorf("expected addr :1234, got %s", loaded.Server.Addr)
	}
	if loaded.Render.Timeout != time.Minute {
		t.Errorf("expected timeout 1m, got %v", loaded.Render.Timeout)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderPrecedence(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", home)
	t.Setenv(EnvChromePath, "")
	t.Chdir(nested)

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), "server:\n  addr: \":1111\"\nlog:\n  level: warn\n")
	writeFile(t, filepath.Join(project, ProjectConfigFile), "server:\n  addr: \":2222\"\n")

	cfg, err := NewLoader(nil).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":2222" {
		t.Errorf("project config should win over user config, got %s", cfg.Server.Addr)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("user config should apply where the project is silent, got %s", cfg.Log.Level)
	}

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	writeFile(t, explicit, "server:\n  addr: \":3333\"\n")
	t.Setenv(EnvChromePath, "/opt/chrome")

	cfg, err = NewLoader(nil).Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":3333" {
		t.Errorf("explicit config should win, got %s", cfg.Server.Addr)
	}
	if cfg.Render.ChromePath != "/opt/chrome" {
		t.Errorf("environment should override chrome path, got %s", cfg.Render.ChromePath)
	}
}

func TestLoaderErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if _, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, bad, "storage:\n  driver: redis\n")
	if _, err := NewLoader(nil).Load(bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := NewLoader(nil).EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if path != filepath.Join(home, UserConfigDir, UserConfigFile) {
		t.Errorf("unexpected path %s", path)
	}
	if _, err := LoadFromFile(path); err != nil {
		t.Errorf("created config does not load: %v", err)
	}
}
