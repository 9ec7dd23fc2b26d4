package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/telemetry"
)

// Config is the whole clawctl configuration document.
type Config struct {
	// Environment names the control-plane environment; the state document
	// is stored per environment.
	Environment string `yaml:"environment"`

	// StateDir is the directory holding state documents.
	StateDir string `yaml:"state_dir"`

	// DefaultAdapter is used when a plan does not pin preferredAdapter.
	DefaultAdapter string `yaml:"default_adapter"`

	// PolicyDir optionally holds operator rego/json policy files; when set,
	// they load on startup and hot-reload on change.
	PolicyDir string `yaml:"policy_dir"`

	// ManifestDir holds skill manifests read by backfill.
	ManifestDir string `yaml:"manifest_dir"`

	// ArchivePath is the SQLite run archive; empty disables archiving.
	ArchivePath string `yaml:"archive_path"`

	// StaleAfter is how old the last reconciliation may be before sync
	// health reports stale.
	StaleAfter time.Duration `yaml:"stale_after"`

	// Adapters configures the execution backends.
	Adapters AdaptersConfig `yaml:"adapters"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// AdaptersConfig groups per-adapter settings.
type AdaptersConfig struct {
	Browser BrowserConfig `yaml:"browser"`
	CLI     CLIConfig     `yaml:"cli"`
	SSH     SSHConfig     `yaml:"ssh"`
}

// BrowserConfig configures the browser automation adapter.
type BrowserConfig struct {
	// BaseURL is the automation daemon's HTTP endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds one daemon request.
	Timeout time.Duration `yaml:"timeout"`
}

// CLIConfig configures the vendor CLI adapter.
type CLIConfig struct {
	// BinaryPath is the vendor helper binary.
	BinaryPath string `yaml:"binary_path"`

	// Args are extra arguments passed to the helper.
	Args []string `yaml:"args,omitempty"`

	// CommandTimeout bounds one helper command.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// SSHConfig configures the remote CLI adapter. Enabled is separate so the
// block can stay in the file while the adapter is off.
type SSHConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	PrivateKeyPath string        `yaml:"private_key_path"`
	KnownHostsPath string        `yaml:"known_hosts_path"`
	RemoteCLI      string        `yaml:"remote_cli"`
	RemoteAssetDir string        `yaml:"remote_asset_dir"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Default returns the configuration clawctl uses when no file exists.
func Default() *Config {
	return &Config{
		Environment:    "default",
		StateDir:       ".clawctl",
		DefaultAdapter: "cli",
		StaleAfter:     24 * time.Hour,
		Adapters: AdaptersConfig{
			Browser: BrowserConfig{
				BaseURL: "http://127.0.0.1:9515",
				Timeout: 2 * time.Minute,
			},
			CLI: CLIConfig{
				BinaryPath:     "openclaw-helper",
				CommandTimeout: 2 * time.Minute,
			},
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads the configuration file at path, falling back to defaults when
// path is empty or the file does not exist. A present but malformed file is
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	switch c.DefaultAdapter {
	case "browser", "cli", "ssh":
	default:
		return fmt.Errorf("default_adapter must be one of browser, cli, ssh; got %q", c.DefaultAdapter)
	}
	if c.DefaultAdapter == "ssh" && !c.Adapters.SSH.Enabled {
		return fmt.Errorf("default_adapter is ssh but the ssh adapter is not enabled")
	}
	return c.Telemetry.Validate()
}

// StatePath resolves the state document path for the configured environment.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, fmt.Sprintf("state-%s.json", c.Environment))
}
