package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters/browser"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters/cliadapter"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters/sshadapter"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/backfill"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/config"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/history"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/orchestrator"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/policy"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/state"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/telemetry"
)

// runtime holds the wired control-plane components one command invocation
// uses. Build it with newRuntime and always Close it.
type runtime struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    *state.Store
	registry *adapters.Registry
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	policy   *policy.Engine
	archive  *history.Store
	orch     *orchestrator.Orchestrator
}

// newRuntime loads the config file and wires the full stack.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	metrics, err := telemetry.NewMetrics(cfg.Telemetry.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics: %w", err)
	}

	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing,
		cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to build tracer: %w", err)
	}

	store := state.NewStore(cfg.StatePath(), logger)

	registry := adapters.NewRegistry()
	if err := registry.Register(browser.New(browser.Config{
		BaseURL: cfg.Adapters.Browser.BaseURL,
		Timeout: cfg.Adapters.Browser.Timeout,
	}, logger)); err != nil {
		return nil, err
	}
	if err := registry.Register(cliadapter.New(cliadapter.Config{
		BinaryPath:     cfg.Adapters.CLI.BinaryPath,
		Args:           cfg.Adapters.CLI.Args,
		CommandTimeout: cfg.Adapters.CLI.CommandTimeout,
	}, logger)); err != nil {
		return nil, err
	}
	if cfg.Adapters.SSH.Enabled {
		sshCfg, err := sshConfig(cfg)
		if err != nil {
			return nil, err
		}
		sshAdapter, err := sshadapter.New(sshCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build ssh adapter: %w", err)
		}
		if err := registry.Register(sshAdapter); err != nil {
			return nil, err
		}
	}

	policyEngine, err := policy.NewEngine(logger)
	if err != nil {
		return nil, err
	}
	if cfg.PolicyDir != "" {
		if err := policyEngine.LoadPolicies(ctx, []string{cfg.PolicyDir}); err != nil {
			return nil, err
		}
		if err := policyEngine.WatchPolicies(ctx, []string{cfg.PolicyDir}); err != nil {
			return nil, err
		}
	}

	var archive *history.Store
	if cfg.ArchivePath != "" {
		archive, err = history.NewStore(history.Config{Path: cfg.ArchivePath})
		if err != nil {
			return nil, err
		}
		if err := archive.Init(ctx); err != nil {
			return nil, err
		}
		if err := archive.Migrate(ctx); err != nil {
			_ = archive.Close()
			return nil, err
		}
	}

	orchCfg := orchestrator.Config{
		StateStore:     store,
		Adapters:       registry,
		Policy:         policyEngine,
		Metrics:        metrics,
		Tracer:         tracer,
		DefaultAdapter: cfg.DefaultAdapter,
		Logger:         logger,
	}
	if archive != nil {
		orchCfg.Archive = archive
	}
	orch, err := orchestrator.New(orchCfg)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		metrics:  metrics,
		tracer:   tracer,
		policy:   policyEngine,
		archive:  archive,
		orch:     orch,
	}, nil
}

// sshConfig maps the file config onto the adapter config, resolving the host
// key policy from the known-hosts file.
func sshConfig(cfg *config.Config) (sshadapter.Config, error) {
	if cfg.Adapters.SSH.KnownHostsPath == "" {
		return sshadapter.Config{}, fmt.Errorf("ssh adapter requires known_hosts_path")
	}
	callback, err := knownhosts.New(cfg.Adapters.SSH.KnownHostsPath)
	if err != nil {
		return sshadapter.Config{}, fmt.Errorf("failed to load known hosts: %w", err)
	}
	return sshadapter.Config{
		Host:            cfg.Adapters.SSH.Host,
		Port:            cfg.Adapters.SSH.Port,
		User:            cfg.Adapters.SSH.User,
		PrivateKeyPath:  cfg.Adapters.SSH.PrivateKeyPath,
		RemoteCLI:       cfg.Adapters.SSH.RemoteCLI,
		RemoteAssetDir:  cfg.Adapters.SSH.RemoteAssetDir,
		ConnectTimeout:  cfg.Adapters.SSH.ConnectTimeout,
		HostKeyCallback: callback,
	}, nil
}

// Close stops the policy watcher, flushes the tracer and closes the archive.
func (r *runtime) Close(ctx context.Context) {
	if r.policy != nil {
		if err := r.policy.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to stop policy watcher")
		}
	}
	if r.archive != nil {
		if err := r.archive.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close archive")
		}
	}
	if r.tracer != nil {
		if err := r.tracer.Shutdown(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("failed to shut down tracer")
		}
	}
}

// newBackfillJob wires the reconciliation job against the configured
// manifest directory.
func (r *runtime) newBackfillJob() (*backfill.Job, error) {
	if r.cfg.ManifestDir == "" {
		return nil, fmt.Errorf("manifest_dir is not configured")
	}
	source := backfill.NewManifestDirSource(r.cfg.ManifestDir, r.logger)
	job := backfill.NewJob(r.store, source, r.metrics, r.logger)
	job.SetCapabilities(capabilityMatrix(r.registry))
	return job, nil
}

// capabilityMatrix maps every registered adapter to the action types the
// compiler emits. All adapters implement the full execution contract.
func capabilityMatrix(registry *adapters.Registry) map[string][]string {
	types := []string{
		plan.ActionCampaignCreate,
		plan.ActionAudienceConfigure,
		plan.ActionCreativeUpload,
		plan.ActionBudgetSet,
		plan.ActionCampaignLaunch,
	}
	matrix := make(map[string][]string)
	for _, name := range registry.Names() {
		matrix[name] = append([]string(nil), types...)
	}
	return matrix
}

// readPlanFile decodes a plan document from a JSON file, returning both the
// typed plan and the raw document for schema validation.
func readPlanFile(path string) (*plan.MarketingPlan, map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}

	var p plan.MarketingPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}

	return &p, doc, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsonIndent marshals v as indented JSON.
func jsonIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
