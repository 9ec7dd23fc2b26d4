// Package main implements the openclaw-helper binary, the sandbox vendor
// helper the CLI adapter spawns by default. It executes commands received
// via JSON-over-stdio and records them without touching any live vendor
// surface, so plans can be exercised end to end on a development machine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters/cliproto"
)

const (
	version = "1.0.0"
	ttl     = 10 * time.Minute
)

// failureParam names the action parameter that makes the helper report a
// failure instead of executing, so failure paths stay testable in sandbox.
const failureParam = "simulate_failure"

type helper struct {
	encoder      *cliproto.Encoder
	decoder      *cliproto.Decoder
	commandCount int
}

func main() {
	h := &helper{
		encoder: cliproto.NewEncoder(os.Stdout),
		decoder: cliproto.NewDecoder(os.Stdin),
	}

	if err := h.sendReady(); err != nil {
		h.sendErrorAndExit("failed to send ready: "+err.Error(), 1)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ttl)
	defer cancel()

	exitCode := 0
	reason := "completed"

	for {
		select {
		case <-ctx.Done():
			reason = "ttl_expired"
			goto exit
		default:
			if err := h.processNextCommand(ctx); err != nil {
				if err.Error() == "EOF" {
					reason = "stdin_closed"
				} else {
					reason = "error"
					exitCode = 1
				}
				goto exit
			}
		}
	}

exit:
	h.exit(reason, exitCode)
}

func (h *helper) sendReady() error {
	ready := &cliproto.ReadyMessage{
		Version: version,
		Vendor:  "openclaw-sandbox",
		PID:     os.Getpid(),
		Caps: map[string]bool{
			string(cliproto.CommandTypeProbe):   true,
			string(cliproto.CommandTypeExecute): true,
		},
		Metadata: map[string]string{
			"ttl": ttl.String(),
		},
	}

	return h.encoder.EncodeReady(ready)
}

func (h *helper) processNextCommand(ctx context.Context) error {
	cmd, err := h.decoder.DecodeCommand()
	if err != nil {
		return err
	}

	h.commandCount++

	cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Timeout)*time.Second)
	defer cancel()

	start := time.Now()
	result, cmdErr := h.handleCommand(cmdCtx, cmd)
	duration := time.Since(start).Seconds()

	if cmdErr != nil {
		var helperErr *cliproto.ErrorMessage
		if e, ok := cmdErr.(*commandError); ok {
			helperErr = &cliproto.ErrorMessage{
				CommandID: cmd.ID,
				Category:  e.category,
				Message:   e.message,
			}
		} else {
			helperErr = &cliproto.ErrorMessage{
				CommandID: cmd.ID,
				Category:  "unknown",
				Message:   cmdErr.Error(),
			}
		}
		return h.encoder.EncodeError(helperErr)
	}

	return h.encoder.EncodeDone(&cliproto.DoneMessage{
		CommandID: cmd.ID,
		Result:    result,
		Duration:  duration,
	})
}

func (h *helper) handleCommand(ctx context.Context, cmd *cliproto.CommandMessage) (json.RawMessage, error) {
	switch cmd.Type {
	case cliproto.CommandTypeProbe:
		var params cliproto.ProbeParams
		if len(cmd.Params) > 0 {
			if err := cliproto.ParseData(cmd.Params, &params); err != nil {
				return nil, err
			}
		}
		outcome := cliproto.ProbeOutcome{
			Authenticated: os.Getenv("OPENCLAW_HELPER_UNAUTHENTICATED") == "",
			Detail:        "sandbox session",
		}
		if !outcome.Authenticated {
			outcome.Detail = "sandbox session marked unauthenticated"
		}
		return json.Marshal(outcome)

	case cliproto.CommandTypeExecute:
		var params cliproto.ExecuteParams
		if err := cliproto.ParseData(cmd.Params, &params); err != nil {
			return nil, err
		}

		if category, ok := params.Parameters[failureParam].(string); ok && category != "" {
			return nil, &commandError{
				category: category,
				message:  fmt.Sprintf("simulated %s failure for action %s", category, params.ActionID),
			}
		}

		_ = h.encoder.EncodeEvent(&cliproto.EventMessage{
			CommandID: cmd.ID,
			Level:     "info",
			Message:   fmt.Sprintf("executing %s for account %s", params.ActionType, cmd.AccountID),
		})

		result := cliproto.ExecuteResult{
			Details: map[string]any{
				"sandbox":     true,
				"action_type": params.ActionType,
				"executed_at": time.Now().UTC().Format(time.RFC3339),
			},
		}
		if err := ctx.Err(); err != nil {
			return nil, &commandError{category: "timeout", message: err.Error()}
		}
		return json.Marshal(result)

	default:
		return nil, fmt.Errorf("unsupported command type: %s", cmd.Type)
	}
}

func (h *helper) exit(reason string, exitCode int) {
	_ = h.encoder.EncodeExit(&cliproto.ExitMessage{
		Reason:        reason,
		ExitCode:      exitCode,
		CommandsTotal: h.commandCount,
	})
	os.Exit(exitCode)
}

func (h *helper) sendErrorAndExit(message string, exitCode int) {
	_ = h.encoder.EncodeError(&cliproto.ErrorMessage{
		Category: "unknown",
		Message:  message,
	})
	os.Exit(exitCode)
}

// commandError carries a categorized failure back over the wire.
type commandError struct {
	category string
	message  string
}

func (e *commandError) Error() string { return e.message }
