package plan

import (
	"strings"
	"testing"
)

func testPlan() *MarketingPlan {
	return &MarketingPlan{
		Title:     "Q3 Launch",
		AccountID: "acct-123",
		Mode:      ModeLive,
		Campaigns: []Campaign{
			{
				Name:             "summer-search",
				Channel:          "search",
				Objective:        "conversions",
				DailyBudgetCents: 5000,
				Audience: &Audience{
					Segments:  []string{"returning-customers"},
					Locations: []string{"US", "CA"},
					AgeMin:    21,
				},
				Creatives: []Creative{
					{Name: "hero", Format: "image", AssetPath: "assets/hero.png"},
					{Name: "tagline", Format: "text", Headline: "Summer sale", Body: "Up to 40% off"},
				},
			},
			{
				Name:    "summer-social",
				Channel: "social",
			},
		},
	}
}

func TestCompileDeterministic(t *testing.T) {
	first, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	second, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if !first.Valid || !second.Valid {
		t.Fatalf("expected both compilations valid, got %v and %v", first.Valid, second.Valid)
	}
	if first.ActionGraphHash != second.ActionGraphHash {
		t.Errorf("action graph hash not stable: %s != %s", first.ActionGraphHash, second.ActionGraphHash)
	}
	if len(first.Actions) != len(second.Actions) {
		t.Fatalf("action count differs: %d != %d", len(first.Actions), len(second.Actions))
	}
	for i := range first.Actions {
		if first.Actions[i].ID != second.Actions[i].ID {
			t.Errorf("action %d ID differs: %s != %s", i, first.Actions[i].ID, second.Actions[i].ID)
		}
		if first.Actions[i].Type != second.Actions[i].Type {
			t.Errorf("action %d type differs: %s != %s", i, first.Actions[i].Type, second.Actions[i].Type)
		}
	}
}

func TestCompileActionOrdering(t *testing.T) {
	result, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	wantTypes := []string{
		// summer-search: full campaign
		ActionCampaignCreate,
		ActionAudienceConfigure,
		ActionCreativeUpload,
		ActionCreativeUpload,
		ActionBudgetSet,
		ActionCampaignLaunch,
		// summer-social: bare campaign, no audience, creatives or budget
		ActionCampaignCreate,
		ActionCampaignLaunch,
	}

	if len(result.Actions) != len(wantTypes) {
		t.Fatalf("expected %d actions, got %d", len(wantTypes), len(result.Actions))
	}
	for i, want := range wantTypes {
		if result.Actions[i].Type != want {
			t.Errorf("action %d: expected type %s, got %s", i, want, result.Actions[i].Type)
		}
	}
}

func TestCompileActionIDs(t *testing.T) {
	result, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, a := range result.Actions {
		if !strings.HasPrefix(a.ID, "act-") {
			t.Errorf("action ID %q missing act- prefix", a.ID)
		}
		if len(a.ID) != len("act-")+12 {
			t.Errorf("action ID %q has unexpected length %d", a.ID, len(a.ID))
		}
		if seen[a.ID] {
			t.Errorf("duplicate action ID %q", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestCompileDependencyWiring(t *testing.T) {
	result, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	ids := make(map[string]Action)
	for _, a := range result.Actions {
		ids[a.ID] = a
	}

	for _, a := range result.Actions {
		for _, dep := range a.DependsOn {
			if _, ok := ids[dep]; !ok {
				t.Errorf("action %s depends on unknown action %s", a.ID, dep)
			}
		}
		switch a.Type {
		case ActionCampaignCreate:
			if len(a.DependsOn) != 0 {
				t.Errorf("campaign.create should have no dependencies, got %v", a.DependsOn)
			}
		case ActionCampaignLaunch:
			if len(a.DependsOn) == 0 {
				t.Errorf("campaign.launch must depend on prior actions")
			}
			for _, dep := range a.DependsOn {
				if ids[dep].Parameters["campaign"] != a.Parameters["campaign"] {
					t.Errorf("launch %s depends on action from another campaign", a.ID)
				}
			}
		default:
			if len(a.DependsOn) != 1 {
				t.Errorf("%s should depend only on campaign.create, got %v", a.Type, a.DependsOn)
			}
		}
	}
}

func TestCompileRiskTiers(t *testing.T) {
	tests := []struct {
		name       string
		mode       Mode
		wantBudget RiskTier
		wantLaunch RiskTier
	}{
		{name: "live mode escalates", mode: ModeLive, wantBudget: RiskHigh, wantLaunch: RiskCritical},
		{name: "sandbox mode stays medium", mode: ModeSandbox, wantBudget: RiskMedium, wantLaunch: RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPlan()
			p.Mode = tt.mode
			result, err := Compile(p)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			for _, a := range result.Actions {
				switch a.Type {
				case ActionBudgetSet:
					if a.Risk != tt.wantBudget {
						t.Errorf("budget.set risk = %s, want %s", a.Risk, tt.wantBudget)
					}
				case ActionCampaignLaunch:
					if a.Risk != tt.wantLaunch {
						t.Errorf("campaign.launch risk = %s, want %s", a.Risk, tt.wantLaunch)
					}
				}
			}
		})
	}
}

func TestCompileDefaultsToSandbox(t *testing.T) {
	p := testPlan()
	p.Mode = ""
	result, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got errors %v", result.Errors)
	}
	for _, a := range result.Actions {
		if a.Type == ActionCampaignLaunch {
			if a.Parameters["mode"] != string(ModeSandbox) {
				t.Errorf("launch mode = %v, want sandbox", a.Parameters["mode"])
			}
			if a.Risk != RiskMedium {
				t.Errorf("launch risk = %s, want medium in sandbox", a.Risk)
			}
		}
	}
}

func TestCompileInvalidPlan(t *testing.T) {
	result, err := Compile(&MarketingPlan{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if len(result.Actions) != 0 {
		t.Errorf("invalid plan must produce no actions, got %d", len(result.Actions))
	}

	want := map[string]bool{
		"title is required":     false,
		"accountId is required": false,
	}
	for _, msg := range result.Errors {
		if _, ok := want[msg]; ok {
			want[msg] = true
		}
	}
	for msg, found := range want {
		if !found {
			t.Errorf("missing validation error %q in %v", msg, result.Errors)
		}
	}
}

func TestCompileNilPlan(t *testing.T) {
	if _, err := Compile(nil); err == nil {
		t.Fatal("expected error for nil plan")
	}
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name string
		plan *MarketingPlan
		want string
	}{
		{
			name: "bad mode",
			plan: &MarketingPlan{Title: "t", AccountID: "a", Mode: "staging"},
			want: `mode must be "sandbox" or "live"`,
		},
		{
			name: "bad adapter",
			plan: &MarketingPlan{Title: "t", AccountID: "a", PreferredAdapter: "carrier-pigeon"},
			want: `preferredAdapter must be one of "browser", "cli", "ssh"`,
		},
		{
			name: "campaign missing name",
			plan: &MarketingPlan{Title: "t", AccountID: "a", Campaigns: []Campaign{{Channel: "search"}}},
			want: "campaigns[0]: name is required",
		},
		{
			name: "campaign missing channel",
			plan: &MarketingPlan{Title: "t", AccountID: "a", Campaigns: []Campaign{{Name: "c"}}},
			want: "campaigns[0]: channel is required",
		},
		{
			name: "negative budget",
			plan: &MarketingPlan{Title: "t", AccountID: "a", Campaigns: []Campaign{{Name: "c", Channel: "search", DailyBudgetCents: -1}}},
			want: "campaigns[0]: dailyBudgetCents must not be negative",
		},
		{
			name: "creative missing format",
			plan: &MarketingPlan{Title: "t", AccountID: "a", Campaigns: []Campaign{{Name: "c", Channel: "search", Creatives: []Creative{{Name: "x"}}}}},
			want: "campaigns[0].creatives[0]: format is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.plan)
			if res.OK {
				t.Fatal("expected validation failure")
			}
			found := false
			for _, msg := range res.Errors {
				if msg == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("missing message %q in %v", tt.want, res.Errors)
			}
		})
	}
}

func TestValidateNilPlan(t *testing.T) {
	res := Validate(nil)
	if res.OK {
		t.Fatal("nil plan must be invalid")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "plan is required" {
		t.Errorf("unexpected errors %v", res.Errors)
	}
}

func TestActionGraphHashChangesWithContent(t *testing.T) {
	base, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	changed := testPlan()
	changed.Campaigns[0].DailyBudgetCents = 9999
	other, err := Compile(changed)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if base.ActionGraphHash == other.ActionGraphHash {
		t.Error("hash should change when a budget changes")
	}
}
