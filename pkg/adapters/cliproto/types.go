// Package cliproto defines the JSON-over-stdio protocol spoken between the
// control plane and vendor CLI helper processes.
package cliproto

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the type of message in the protocol.
type MessageType string

const (
	// MessageTypeReady indicates the helper is ready to receive commands
	MessageTypeReady MessageType = "READY"
	// MessageTypeCommand indicates a command from the control plane
	MessageTypeCommand MessageType = "CMD"
	// MessageTypeEvent indicates a progress event from the helper
	MessageTypeEvent MessageType = "EVENT"
	// MessageTypeDone indicates successful completion
	MessageTypeDone MessageType = "DONE"
	// MessageTypeError indicates an error occurred
	MessageTypeError MessageType = "ERROR"
	// MessageTypeExit indicates the helper is exiting
	MessageTypeExit MessageType = "EXIT"
)

// CommandType represents the type of command to execute.
type CommandType string

const (
	// CommandTypeProbe verifies the helper's vendor session is usable
	CommandTypeProbe CommandType = "session.probe"
	// CommandTypeExecute executes one compiled plan action
	CommandTypeExecute CommandType = "action.execute"
)

// Message is the base structure for all protocol messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ReadyMessage is sent when the helper is ready to receive commands.
type ReadyMessage struct {
	Version  string            `json:"version"`
	Vendor   string            `json:"vendor"`
	PID      int               `json:"pid"`
	Caps     map[string]bool   `json:"capabilities"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CommandMessage contains a command for the helper to execute.
type CommandMessage struct {
	ID        string            `json:"id"`
	Type      CommandType       `json:"type"`
	AccountID string            `json:"account_id"`
	Timeout   int               `json:"timeout"` // seconds
	Params    json.RawMessage   `json:"params,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventMessage contains progress information during command execution.
type EventMessage struct {
	CommandID string            `json:"command_id"`
	Level     string            `json:"level"` // info, warn, debug
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// DoneMessage indicates successful command completion.
type DoneMessage struct {
	CommandID string          `json:"command_id"`
	Result    json.RawMessage `json:"result"`
	Duration  float64         `json:"duration"` // seconds
}

// ErrorMessage indicates a command failed. Category carries the normalized
// failure taxonomy so the adapter can classify without parsing Message.
type ErrorMessage struct {
	CommandID  string            `json:"command_id,omitempty"`
	Category   string            `json:"category"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Retryable  bool              `json:"retryable"`
	RetryAfter int               `json:"retry_after,omitempty"` // seconds
}

// ExitMessage is sent before the helper terminates.
type ExitMessage struct {
	Reason        string `json:"reason"`
	ExitCode      int    `json:"exit_code"`
	CommandsTotal int    `json:"commands_total"`
}

// ExecuteParams carries one compiled action for the helper.
type ExecuteParams struct {
	ActionID   string         `json:"action_id"`
	ActionType string         `json:"action_type"`
	Parameters map[string]any `json:"parameters"`
}

// ExecuteResult carries the helper's structured action outcome.
type ExecuteResult struct {
	Details map[string]any `json:"details,omitempty"`
}

// ProbeParams carries session probe options.
type ProbeParams struct {
	Deep bool `json:"deep,omitempty"`
}

// ProbeOutcome carries the helper's session status.
type ProbeOutcome struct {
	Authenticated bool   `json:"authenticated"`
	Detail        string `json:"detail,omitempty"`
}

// Validate checks if the message type is valid.
func (mt MessageType) Validate() error {
	switch mt {
	case MessageTypeReady, MessageTypeCommand, MessageTypeEvent,
		MessageTypeDone, MessageTypeError, MessageTypeExit:
		return nil
	default:
		return fmt.Errorf("invalid message type: %s", mt)
	}
}

// Validate checks if the command type is valid.
func (ct CommandType) Validate() error {
	switch ct {
	case CommandTypeProbe, CommandTypeExecute:
		return nil
	default:
		return fmt.Errorf("invalid command type: %s", ct)
	}
}

// Validate checks if the command message is valid.
func (cmd *CommandMessage) Validate() error {
	if cmd.ID == "" {
		return fmt.Errorf("command ID is required")
	}
	if err := cmd.Type.Validate(); err != nil {
		return err
	}
	if cmd.AccountID == "" {
		return fmt.Errorf("account ID is required")
	}
	if cmd.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
