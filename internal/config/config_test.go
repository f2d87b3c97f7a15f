package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Output != "downloads" {
		t.Errorf("expected default output downloads, got %q", cfg.Output)
	}
	if cfg.Workers != 1 {
		t.Errorf("expected default workers 1, got %d", cfg.Workers)
	}
	if cfg.Poll.Interval != 15*time.Second {
		t.Errorf("expected default poll interval 15s, got %v", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxWait != 2*time.Hour {
		t.Errorf("expected default max wait 2h, got %v", cfg.Poll.MaxWait)
	}
	if cfg.Retry.Attempts != 5 {
		t.Errorf("expected default retry attempts 5, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 0 {
		t.Errorf("expected no default retry backoff, got %v", cfg.Retry.Backoff)
	}
	if cfg.Timeout != 0 {
		t.Errorf("expected no default timeout, got %v", cfg.Timeout)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server: https://rdgen.example.com
file: build.json
output: mem://
workers: 4
verbose: true
preserve_log: true
poll:
  interval: 5s
  max_wait: 10m
retry:
  attempts: 10
  backoff: 2s
  max_backoff: 60s
timeout: 1m
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server != "https://rdgen.example.com" {
		t.Errorf("unexpected server %q", cfg.Server)
	}
	if cfg.File != "build.json" {
		t.Errorf("unexpected file %q", cfg.File)
	}
	if cfg.Output != "mem://" {
		t.Errorf("unexpected output %q", cfg.Output)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Workers)
	}
	if !cfg.Verbose || !cfg.PreserveLog {
		t.Error("expected verbose and preserve_log true")
	}
	if cfg.DisableDownload {
		t.Error("expected disable_download false")
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxWait != 10*time.Minute {
		t.Errorf("expected max wait 10m, got %v", cfg.Poll.MaxWait)
	}
	if cfg.Retry.Attempts != 10 {
		t.Errorf("expected retry attempts 10, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 2*time.Second {
		t.Errorf("expected retry backoff 2s, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != 60*time.Second {
		t.Errorf("expected retry max backoff 60s, got %v", cfg.Retry.MaxBackoff)
	}
	if cfg.Timeout != time.Minute {
		t.Errorf("expected timeout 1m, got %v", cfg.Timeout)
	}
}

func TestLoadFromYAMLKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server: localhost:8000\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	want := Default()
	want.Server = "localhost:8000"
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadYAMLInvalidDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("poll:\n  interval: soon\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RDGEN_SERVER", "rdgen.local:8080")
	t.Setenv("RDGEN_FILE", "env.json")
	t.Setenv("RDGEN_WORKERS", "8")
	t.Setenv("RDGEN_DISABLE_DOWNLOAD", "1")
	t.Setenv("RDGEN_POLL_INTERVAL", "30s")
	t.Setenv("RDGEN_RETRY_ATTEMPTS", "3")
	t.Setenv("RDGEN_RETRY_BACKOFF", "500ms")
	t.Setenv("RDGEN_TIMEOUT", "45s")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Server != "rdgen.local:8080" {
		t.Errorf("unexpected server %q", cfg.Server)
	}
	if cfg.File != "env.json" {
		t.Errorf("unexpected file %q", cfg.File)
	}
	if cfg.Workers != 8 {
		t.Errorf("expected workers 8, got %d", cfg.Workers)
	}
	if !cfg.DisableDownload {
		t.Error("expected disable download true")
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Errorf("expected poll interval 30s, got %v", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxWait != 7200*time.Second {
		t.Errorf("expected max wait preserved, got %v", cfg.Poll.MaxWait)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected retry attempts 3, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 500*time.Millisecond {
		t.Errorf("expected retry backoff 500ms, got %v", cfg.Retry.Backoff)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Timeout)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("RDGEN_WORKERS", "many")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for invalid RDGEN_WORKERS")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Server = "localhost"
		cfg.File = "build.json"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"missing server", func(c *Config) { c.Server = "" }, true},
		{"missing file", func(c *Config) { c.File = "" }, true},
		{"missing output", func(c *Config) { c.Output = "" }, true},
		{"missing output without download", func(c *Config) { c.Output = ""; c.DisableDownload = true }, false},
		{"invalid workers", func(c *Config) { c.Workers = 0 }, true},
		{"invalid interval", func(c *Config) { c.Poll.Interval = 0 }, true},
		{"invalid max wait", func(c *Config) { c.Poll.MaxWait = -time.Second }, true},
		{"invalid attempts", func(c *Config) { c.Retry.Attempts = 0 }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Server = "https://rdgen.example.com"
	base.File = "build.json"

	override := Config{
		Workers: 4,
		Verbose: true,
		Poll:    PollConfig{Interval: time.Second},
		Retry:   RetryConfig{Attempts: 2},
		Timeout: time.Minute,
		Output:  "file:///tmp/out",
	}

	merged := base.Merge(override)

	if merged.Server != "https://rdgen.example.com" {
		t.Errorf("expected server preserved, got %s", merged.Server)
	}
	if merged.File != "build.json" {
		t.Errorf("expected file preserved, got %s", merged.File)
	}
	if merged.Poll.MaxWait != 7200*time.Second {
		t.Errorf("expected max wait preserved, got %v", merged.Poll.MaxWait)
	}
	if merged.Retry.MaxBackoff != 30*time.Second {
		t.Errorf("expected max backoff preserved, got %v", merged.Retry.MaxBackoff)
	}

	if merged.Workers != 4 {
		t.Errorf("expected workers overridden to 4, got %d", merged.Workers)
	}
	if !merged.Verbose {
		t.Error("expected verbose overridden")
	}
	if merged.Poll.Interval != time.Second {
		t.Errorf("expected interval overridden, got %v", merged.Poll.Interval)
	}
	if merged.Retry.Attempts != 2 {
		t.Errorf("expected attempts overridden, got %d", merged.Retry.Attempts)
	}
	if merged.Timeout != time.Minute {
		t.Errorf("expected timeout overridden, got %v", merged.Timeout)
	}
	if merged.Output != "file:///tmp/out" {
		t.Errorf("expected output overridden, got %s", merged.Output)
	}
}

func TestLoadYAMLFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
