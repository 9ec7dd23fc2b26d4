// Package cliadapter executes plan actions through a vendor CLI helper
// process speaking the cliproto JSON-over-stdio protocol.
package cliadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters/cliproto"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// AdapterName is the registry name of the CLI adapter.
const AdapterName = "cli"

// defaultCommandTimeout bounds one helper command when the caller's context
// carries no deadline.
const defaultCommandTimeout = 60 * time.Second

// session is one live helper process with its protocol streams.
type session struct {
	enc    *cliproto.Encoder
	dec    *cliproto.Decoder
	closer io.Closer
}

// launchFunc starts a helper process and returns its protocol streams.
// Tests substitute an in-memory pipe pair.
type launchFunc func(ctx context.Context) (*session, error)

// Config configures the CLI adapter.
type Config struct {
	// BinaryPath is the vendor helper binary to spawn.
	BinaryPath string

	// Args are extra arguments passed to the helper.
	Args []string

	// CommandTimeout bounds one helper command. Zero uses the default.
	CommandTimeout time.Duration
}

// Adapter drives a vendor CLI helper. A fresh helper process is spawned per
// command so a crashed helper never poisons subsequent actions.
type Adapter struct {
	cfg    Config
	launch launchFunc
	logger zerolog.Logger
}

// New creates a CLI adapter that spawns the configured helper binary.
func New(cfg Config, logger zerolog.Logger) *Adapter {
	a := &Adapter{
		cfg:    cfg,
		logger: logger.With().Str("adapter", AdapterName).Logger(),
	}
	a.launch = a.launchProcess
	return a
}

// Name implements adapters.Adapter.
func (a *Adapter) Name() string { return AdapterName }

// ProbeSession implements adapters.Adapter.
func (a *Adapter) ProbeSession(ctx context.Context, accountID string) (adapters.ProbeResult, error) {
	result := adapters.ProbeResult{Adapter: AdapterName, CheckedAt: time.Now().UTC()}

	params, err := json.Marshal(cliproto.ProbeParams{})
	if err != nil {
		return result, fmt.Errorf("failed to marshal probe params: %w", err)
	}

	data, cmdErr := a.runCommand(ctx, &cliproto.CommandMessage{
		ID:        uuid.New().String(),
		Type:      cliproto.CommandTypeProbe,
		AccountID: accountID,
		Timeout:   a.timeoutSeconds(ctx),
		Params:    params,
	})
	if cmdErr != nil {
		result.Detail = cmdErr.Error()
		return result, nil
	}

	var outcome cliproto.ProbeOutcome
	if err := cliproto.ParseData(data, &outcome); err != nil {
		return result, fmt.Errorf("malformed probe outcome: %w", err)
	}

	result.OK = outcome.Authenticated
	result.Detail = outcome.Detail
	return result, nil
}

// ExecuteAction implements adapters.Adapter.
func (a *Adapter) ExecuteAction(ctx context.Context, accountID string, action plan.Action) (adapters.Result, error) {
	params, err := json.Marshal(cliproto.ExecuteParams{
		ActionID:   action.ID,
		ActionType: action.Type,
		Parameters: action.Parameters,
	})
	if err != nil {
		return adapters.Result{}, fmt.Errorf("failed to marshal action %s: %w", action.ID, err)
	}

	data, cmdErr := a.runCommand(ctx, &cliproto.CommandMessage{
		ID:        uuid.New().String(),
		Type:      cliproto.CommandTypeExecute,
		AccountID: accountID,
		Timeout:   a.timeoutSeconds(ctx),
		Params:    params,
	})
	if cmdErr != nil {
		a.logger.Warn().
			Str("action_id", action.ID).
			Str("category", string(adapters.Categorize(cmdErr))).
			Err(cmdErr).
			Msg("action failed")
		return adapters.FailureResult(AdapterName, accountID, action.ID, cmdErr), nil
	}

	var execResult cliproto.ExecuteResult
	if len(data) > 0 {
		if err := cliproto.ParseData(data, &execResult); err != nil {
			return adapters.Result{}, fmt.Errorf("malformed execute result: %w", err)
		}
	}

	a.logger.Info().Str("action_id", action.ID).Msg("action executed")

	return adapters.Result{
		OK:        true,
		ActionID:  action.ID,
		Adapter:   AdapterName,
		AccountID: accountID,
		Details:   execResult.Details,
	}, nil
}

// runCommand spawns a helper, waits for READY, sends one command and reads
// until DONE or ERROR. The helper's EVENT messages are logged and skipped.
func (a *Adapter) runCommand(ctx context.Context, cmd *cliproto.CommandMessage) (json.RawMessage, error) {
	sess, err := a.launch(ctx)
	if err != nil {
		return nil, adapters.NewAdapterError(adapters.CategoryUnknown, "failed to start helper", err).
			WithAdapter(AdapterName)
	}
	defer sess.closer.Close()

	ready, err := sess.dec.Decode()
	if err != nil {
		return nil, adapters.NewAdapterError(adapters.CategoryUnknown, "helper did not report ready", err).
			WithAdapter(AdapterName)
	}
	if ready.Type != cliproto.MessageTypeReady {
		return nil, adapters.NewAdapterError(adapters.CategoryUnknown,
			fmt.Sprintf("expected READY, got %s", ready.Type), nil).WithAdapter(AdapterName)
	}

	if err := sess.enc.EncodeCommand(cmd); err != nil {
		return nil, adapters.NewAdapterError(adapters.CategoryUnknown, "failed to send command", err).
			WithAdapter(AdapterName)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, adapters.NewAdapterError(adapters.CategoryTimeout, "command canceled", err).
				WithAdapter(AdapterName)
		}

		msg, err := sess.dec.Decode()
		if err != nil {
			return nil, adapters.NewAdapterError(adapters.CategoryUnknown, "helper stream broke", err).
				WithAdapter(AdapterName)
		}

		switch msg.Type {
		case cliproto.MessageTypeEvent:
			var evt cliproto.EventMessage
			if err := cliproto.ParseData(msg.Data, &evt); err == nil {
				a.logger.Debug().Str("command_id", evt.CommandID).Msg(evt.Message)
			}

		case cliproto.MessageTypeDone:
			var done cliproto.DoneMessage
			if err := cliproto.ParseData(msg.Data, &done); err != nil {
				return nil, adapters.NewAdapterError(adapters.CategoryUnknown, "malformed DONE message", err).
					WithAdapter(AdapterName)
			}
			return done.Result, nil

		case cliproto.MessageTypeError:
			var helperErr cliproto.ErrorMessage
			if err := cliproto.ParseData(msg.Data, &helperErr); err != nil {
				return nil, adapters.NewAdapterError(adapters.CategoryUnknown, "malformed ERROR message", err).
					WithAdapter(AdapterName)
			}
			return nil, adapters.NewAdapterError(categoryFromWire(helperErr.Category), helperErr.Message, nil).
				WithAdapter(AdapterName)

		default:
			return nil, adapters.NewAdapterError(adapters.CategoryUnknown,
				fmt.Sprintf("unexpected message type %s", msg.Type), nil).WithAdapter(AdapterName)
		}
	}
}

// launchProcess starts the configured helper binary with piped stdio.
func (a *Adapter) launchProcess(ctx context.Context) (*session, error) {
	cmd := exec.CommandContext(ctx, a.cfg.BinaryPath, a.cfg.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", a.cfg.BinaryPath, err)
	}

	return &session{
		enc:    cliproto.NewEncoder(stdin),
		dec:    cliproto.NewDecoder(stdout),
		closer: &processCloser{stdin: stdin, cmd: cmd},
	}, nil
}

// timeoutSeconds derives the wire timeout from the context deadline.
func (a *Adapter) timeoutSeconds(ctx context.Context) int {
	timeout := a.cfg.CommandTimeout
	if timeout == 0 {
		timeout = defaultCommandTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// categoryFromWire maps a wire category to the adapter taxonomy.
func categoryFromWire(category string) adapters.ErrorCategory {
	switch adapters.ErrorCategory(category) {
	case adapters.CategoryValidation, adapters.CategoryAuth, adapters.CategoryPermission,
		adapters.CategoryRateLimit, adapters.CategoryTimeout:
		return adapters.ErrorCategory(category)
	default:
		return adapters.CategoryUnknown
	}
}

// processCloser closes the helper's stdin and reaps the process.
type processCloser struct {
	stdin io.WriteCloser
	cmd   *exec.Cmd
}

func (p *processCloser) Close() error {
	p.stdin.Close()
	return p.cmd.Wait()
}
