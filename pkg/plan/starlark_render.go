package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Renderer executes Starlark plan templates safely. A template is a script
// that assigns the plan document to a top-level `plan` variable; input
// variables are exposed as predeclared globals so one template can render
// plans for multiple accounts or budgets.
type Renderer struct {
	timeout time.Duration
}

// NewRenderer creates a plan renderer.
func NewRenderer(timeout time.Duration) *Renderer {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Renderer{timeout: timeout}
}

// Render evaluates a Starlark template and returns the rendered plan.
// The script must define a top-level `plan` dict.
func (r *Renderer) Render(ctx context.Context, script string, vars map[string]any) (*MarketingPlan, error) {
	evalCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resultCh := make(chan *MarketingPlan, 1)
	errCh := make(chan error, 1)

	go func() {
		result, err := r.renderSync(script, vars)
		if err != nil {
			errCh <- err
		} else {
			resultCh <- result
		}
	}()

	select {
	case <-evalCtx.Done():
		return nil, fmt.Errorf("template execution timeout after %v", r.timeout)
	case err := <-errCh:
		return nil, err
	case result := <-resultCh:
		return result, nil
	}
}

// renderSync performs the actual Starlark evaluation synchronously.
func (r *Renderer) renderSync(script string, vars map[string]any) (*MarketingPlan, error) {
	thread := &starlark.Thread{
		Name: "plan-render",
		Print: func(_ *starlark.Thread, msg string) {
			// script print output is discarded
		},
	}

	predeclared := starlark.StringDict{
		"struct": starlarkstruct.Default,
	}

	for key, val := range vars {
		starlarkVal, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		predeclared[key] = starlarkVal
	}

	globals, err := starlark.ExecFile(thread, "plan.star", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("template execution failed: %w", err)
	}

	planVal, ok := globals["plan"]
	if !ok {
		return nil, fmt.Errorf("template must define a top-level plan variable")
	}

	goVal, err := fromStarlarkValue(planVal)
	if err != nil {
		return nil, fmt.Errorf("failed to convert plan: %w", err)
	}

	raw, err := json.Marshal(goVal)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize rendered plan: %w", err)
	}

	var p MarketingPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rendered plan is malformed: %w", err)
	}

	return &p, nil
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			starlarkItem, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = starlarkItem
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			starlarkVal, err := toStarlarkValue(v)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), starlarkVal); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
