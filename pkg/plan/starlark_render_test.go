package plan

import (
	"context"
	"testing"
	"time"
)

func TestRenderPlan(t *testing.T) {
	script := `
plan = {
    "title": "Rendered " + quarter,
    "accountId": account,
    "mode": "sandbox",
    "campaigns": [
        {
            "name": "search-" + quarter,
            "channel": "search",
            "dailyBudgetCents": budget,
        },
    ],
}
`

	r := NewRenderer(5 * time.Second)
	p, err := r.Render(context.Background(), script, map[string]any{
		"quarter": "q3",
		"account": "acct-42",
		"budget":  int64(2500),
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if p.Title != "Rendered q3" {
		t.Errorf("title = %q", p.Title)
	}
	if p.AccountID != "acct-42" {
		t.Errorf("accountId = %q", p.AccountID)
	}
	if len(p.Campaigns) != 1 {
		t.Fatalf("expected 1 campaign, got %d", len(p.Campaigns))
	}
	if p.Campaigns[0].DailyBudgetCents != 2500 {
		t.Errorf("budget = %d", p.Campaigns[0].DailyBudgetCents)
	}

	if res := Validate(p); !res.OK {
		t.Errorf("rendered plan invalid: %v", res.Errors)
	}
}

func TestRenderMissingPlanVariable(t *testing.T) {
	r := NewRenderer(5 * time.Second)
	if _, err := r.Render(context.Background(), `x = 1`, nil); err == nil {
		t.Fatal("expected error when template does not define plan")
	}
}

func TestRenderScriptError(t *testing.T) {
	r := NewRenderer(5 * time.Second)
	if _, err := r.Render(context.Background(), `plan = undefined_name`, nil); err == nil {
		t.Fatal("expected error for broken script")
	}
}

func TestRenderTimeout(t *testing.T) {
	script := `
x = 0
for i in range(100000000):
    x += i
plan = {"title": "t", "accountId": "a", "campaigns": []}
`
	r := NewRenderer(50 * time.Millisecond)
	if _, err := r.Render(context.Background(), script, nil); err == nil {
		t.Fatal("expected timeout error")
	}
}
