package sshadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// AdapterName is the registry name of the SSH adapter.
const AdapterName = "ssh"

// remote abstracts the SSH transport so tests can substitute a fake.
type remote interface {
	run(ctx context.Context, cmd string, stdin []byte) (stdout, stderr string, err error)
	upload(localPath, remotePath string) error
	close() error
}

// Adapter runs the vendor CLI on a remote host.
type Adapter struct {
	cfg    Config
	dial   func(ctx context.Context) (remote, error)
	logger zerolog.Logger
}

// New creates an SSH adapter.
func New(cfg Config, logger zerolog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ssh adapter config: %w", err)
	}
	a := &Adapter{
		cfg:    cfg,
		logger: logger.With().Str("adapter", AdapterName).Logger(),
	}
	a.dial = a.dialSSH
	return a, nil
}

// Name implements adapters.Adapter.
func (a *Adapter) Name() string { return AdapterName }

// cliOutcome is the JSON document the remote vendor CLI prints.
type cliOutcome struct {
	OK       bool           `json:"ok"`
	Category string         `json:"category,omitempty"`
	Message  string         `json:"message,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// ProbeSession implements adapters.Adapter.
func (a *Adapter) ProbeSession(ctx context.Context, accountID string) (adapters.ProbeResult, error) {
	result := adapters.ProbeResult{Adapter: AdapterName, CheckedAt: time.Now().UTC()}

	conn, err := a.dial(ctx)
	if err != nil {
		result.Detail = err.Error()
		return result, nil
	}
	defer conn.close()

	cmd := fmt.Sprintf("%s session status --account %s --json", a.cfg.RemoteCLI, shellQuote(accountID))
	stdout, stderr, err := conn.run(ctx, cmd, nil)
	if err != nil {
		result.Detail = firstNonEmpty(stderr, err.Error())
		return result, nil
	}

	var outcome cliOutcome
	if err := json.Unmarshal([]byte(stdout), &outcome); err != nil {
		return result, fmt.Errorf("malformed probe output: %w", err)
	}

	result.OK = outcome.OK
	result.Detail = outcome.Message
	return result, nil
}

// ExecuteAction implements adapters.Adapter.
func (a *Adapter) ExecuteAction(ctx context.Context, accountID string, action plan.Action) (adapters.Result, error) {
	conn, err := a.dial(ctx)
	if err != nil {
		wrapped := adapters.NewAdapterError(adapters.CategoryUnknown, "ssh dial failed", err).
			WithAdapter(AdapterName).WithAction(action.ID)
		return adapters.FailureResult(AdapterName, accountID, action.ID, wrapped), nil
	}
	defer conn.close()

	action, err = a.stageAssets(conn, action)
	if err != nil {
		wrapped := adapters.NewAdapterError(adapters.CategoryValidation, "asset staging failed", err).
			WithAdapter(AdapterName).WithAction(action.ID)
		return adapters.FailureResult(AdapterName, accountID, action.ID, wrapped), nil
	}

	payload, err := json.Marshal(map[string]any{
		"actionId":   action.ID,
		"actionType": action.Type,
		"accountId":  accountID,
		"parameters": action.Parameters,
	})
	if err != nil {
		return adapters.Result{}, fmt.Errorf("failed to marshal action %s: %w", action.ID, err)
	}

	cmd := fmt.Sprintf("%s action execute --json -", a.cfg.RemoteCLI)
	stdout, stderr, runErr := conn.run(ctx, cmd, payload)

	var outcome cliOutcome
	if stdout != "" {
		if err := json.Unmarshal([]byte(stdout), &outcome); err != nil && runErr == nil {
			return adapters.Result{}, fmt.Errorf("malformed action output: %w", err)
		}
	}

	if runErr != nil || !outcome.OK {
		message := firstNonEmpty(outcome.Message, stderr)
		if message == "" && runErr != nil {
			message = runErr.Error()
		}
		wrapped := adapters.NewAdapterError(categoryFromWire(outcome.Category), message, runErr).
			WithAdapter(AdapterName).WithAction(action.ID)
		a.logger.Warn().
			Str("action_id", action.ID).
			Str("category", string(adapters.Categorize(wrapped))).
			Msg("action failed")
		return adapters.FailureResult(AdapterName, accountID, action.ID, wrapped), nil
	}

	a.logger.Info().Str("action_id", action.ID).Msg("action executed")

	return adapters.Result{
		OK:        true,
		ActionID:  action.ID,
		Adapter:   AdapterName,
		AccountID: accountID,
		Details:   outcome.Details,
	}, nil
}

// stageAssets uploads any local asset referenced by the action and rewrites
// the parameter to the staged remote path.
func (a *Adapter) stageAssets(conn remote, action plan.Action) (plan.Action, error) {
	assetPath, ok := action.Parameters["assetPath"].(string)
	if !ok || assetPath == "" {
		return action, nil
	}

	remotePath := path.Join(a.cfg.RemoteAssetDir, action.ID+"-"+path.Base(assetPath))
	if err := conn.upload(assetPath, remotePath); err != nil {
		return action, fmt.Errorf("failed to upload %s: %w", assetPath, err)
	}

	params := make(map[string]any, len(action.Parameters))
	for k, v := range action.Parameters {
		params[k] = v
	}
	params["assetPath"] = remotePath
	action.Parameters = params

	a.logger.Debug().Str("action_id", action.ID).Str("remote_path", remotePath).Msg("asset staged")
	return action, nil
}

// categoryFromWire maps a CLI-reported category to the adapter taxonomy.
func categoryFromWire(category string) adapters.ErrorCategory {
	switch adapters.ErrorCategory(category) {
	case adapters.CategoryValidation, adapters.CategoryAuth, adapters.CategoryPermission,
		adapters.CategoryRateLimit, adapters.CategoryTimeout:
		return adapters.ErrorCategory(category)
	default:
		return adapters.CategoryUnknown
	}
}

// sshRemote is the production remote over a live SSH connection.
type sshRemote struct {
	client *ssh.Client
}

// dialSSH opens the SSH connection.
func (a *Adapter) dialSSH(ctx context.Context) (remote, error) {
	clientCfg, err := a.cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	client, err := ssh.Dial("tcp", a.cfg.addr(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", a.cfg.addr(), err)
	}
	return &sshRemote{client: client}, nil
}

func (r *sshRemote) run(ctx context.Context, cmd string, stdin []byte) (string, string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf
	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}

	doneChan := make(chan error, 1)
	go func() {
		doneChan <- session.Run(cmd)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		time.Sleep(100 * time.Millisecond)
		_ = session.Signal(ssh.SIGKILL)
		runErr = ctx.Err()
	case runErr = <-doneChan:
	}

	return strings.TrimSpace(stdoutBuf.String()), strings.TrimSpace(stderrBuf.String()), runErr
}

func (r *sshRemote) upload(localPath, remotePath string) error {
	client, err := sftp.NewClient(r.client)
	if err != nil {
		return fmt.Errorf("failed to open sftp: %w", err)
	}
	defer client.Close()

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	if err := client.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("failed to create remote dir: %w", err)
	}

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", remotePath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy asset: %w", err)
	}
	return nil
}

func (r *sshRemote) close() error {
	return r.client.Close()
}

// shellQuote wraps a value in single quotes for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
