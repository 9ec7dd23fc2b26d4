package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "default" {
		t.Errorf("environment = %q, want default", cfg.Environment)
	}
	if cfg.DefaultAdapter != "cli" {
		t.Errorf("default adapter = %q, want cli", cfg.DefaultAdapter)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clawctl.yaml")
	body := `environment: staging
default_adapter: browser
adapters:
  browser:
    base_url: http://localhost:9999
    timeout: 30s
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.DefaultAdapter != "browser" {
		t.Errorf("default adapter = %q", cfg.DefaultAdapter)
	}
	if cfg.Adapters.Browser.BaseURL != "http://localhost:9999" {
		t.Errorf("browser base url = %q", cfg.Adapters.Browser.BaseURL)
	}
	if cfg.Adapters.Browser.Timeout != 30*time.Second {
		t.Errorf("browser timeout = %v", cfg.Adapters.Browser.Timeout)
	}
	// Untouched sections keep their defaults.
	if cfg.Adapters.CLI.BinaryPath != "openclaw-helper" {
		t.Errorf("cli binary = %q", cfg.Adapters.CLI.BinaryPath)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clawctl.yaml")
	if err := os.WriteFile(path, []byte("environment: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadAdapter(t *testing.T) {
	cfg := Default()
	cfg.DefaultAdapter = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown adapter")
	}
}

func TestValidateRejectsSSHDefaultWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.DefaultAdapter = "ssh"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when ssh default but disabled")
	}
}

func TestStatePathIncludesEnvironment(t *testing.T) {
	cfg := Default()
	cfg.Environment = "prod"
	cfg.StateDir = "/var/lib/clawctl"
	want := filepath.Join("/var/lib/clawctl", "state-prod.json")
	if got := cfg.StatePath(); got != want {
		t.Errorf("StatePath() = %q, want %q", got, want)
	}
}
