// Package browser executes plan actions through a browser automation daemon
// over its local HTTP API. The daemon drives an authenticated vendor web
// session; this adapter only translates actions to daemon calls and
// normalizes failures.
package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/adapters"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// AdapterName is the registry name of the browser adapter.
const AdapterName = "browser"

// defaultTimeout bounds one daemon call when the config leaves it unset.
const defaultTimeout = 120 * time.Second

// Config configures the browser adapter.
type Config struct {
	// BaseURL is the daemon's HTTP endpoint, e.g. "http://127.0.0.1:9515".
	BaseURL string

	// Timeout bounds one daemon request. Zero uses the default.
	Timeout time.Duration
}

// Adapter talks to the browser automation daemon.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// New creates a browser adapter.
func New(cfg Config, logger zerolog.Logger) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("adapter", AdapterName).Logger(),
	}
}

// Name implements adapters.Adapter.
func (a *Adapter) Name() string { return AdapterName }

// sessionStatus is the daemon's probe response body.
type sessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	Detail        string `json:"detail,omitempty"`
}

// executeRequest is the daemon's action request body.
type executeRequest struct {
	ActionID   string         `json:"actionId"`
	ActionType string         `json:"actionType"`
	AccountID  string         `json:"accountId"`
	Parameters map[string]any `json:"parameters"`
}

// executeResponse is the daemon's action response body.
type executeResponse struct {
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ProbeSession implements adapters.Adapter.
func (a *Adapter) ProbeSession(ctx context.Context, accountID string) (adapters.ProbeResult, error) {
	result := adapters.ProbeResult{Adapter: AdapterName, CheckedAt: time.Now().UTC()}

	url := fmt.Sprintf("%s/session/%s/status", a.cfg.BaseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		result.Detail = err.Error()
		return result, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Detail = fmt.Sprintf("daemon returned status %d", resp.StatusCode)
		return result, nil
	}

	var status sessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return result, fmt.Errorf("malformed probe response: %w", err)
	}

	result.OK = status.Authenticated
	result.Detail = status.Detail
	return result, nil
}

// ExecuteAction implements adapters.Adapter.
func (a *Adapter) ExecuteAction(ctx context.Context, accountID string, action plan.Action) (adapters.Result, error) {
	body, err := json.Marshal(executeRequest{
		ActionID:   action.ID,
		ActionType: action.Type,
		AccountID:  accountID,
		Parameters: action.Parameters,
	})
	if err != nil {
		return adapters.Result{}, fmt.Errorf("failed to marshal action %s: %w", action.ID, err)
	}

	url := fmt.Sprintf("%s/actions/execute", a.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return adapters.Result{}, fmt.Errorf("failed to build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		category := adapters.CategoryUnknown
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			category = adapters.CategoryTimeout
		}
		wrapped := adapters.NewAdapterError(category, "daemon unreachable", err).
			WithAdapter(AdapterName).WithAction(action.ID)
		return adapters.FailureResult(AdapterName, accountID, action.ID, wrapped), nil
	}
	defer resp.Body.Close()

	var parsed executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode == http.StatusOK {
		return adapters.Result{}, fmt.Errorf("malformed execute response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := parsed.Error
		if message == "" {
			message = fmt.Sprintf("daemon returned status %d", resp.StatusCode)
		}
		wrapped := adapters.NewAdapterError(categoryFromStatus(resp.StatusCode), message, nil).
			WithAdapter(AdapterName).WithAction(action.ID)
		a.logger.Warn().
			Str("action_id", action.ID).
			Int("status", resp.StatusCode).
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
		Details:   parsed.Details,
	}, nil
}

// categoryFromStatus maps a daemon HTTP status to the adapter taxonomy.
func categoryFromStatus(status int) adapters.ErrorCategory {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return adapters.CategoryValidation
	case http.StatusUnauthorized:
		return adapters.CategoryAuth
	case http.StatusForbidden:
		return adapters.CategoryPermission
	case http.StatusTooManyRequests:
		return adapters.CategoryRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return adapters.CategoryTimeout
	default:
		return adapters.CategoryUnknown
	}
}
