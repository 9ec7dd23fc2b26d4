package plan

import "testing"

func TestFingerprintStable(t *testing.T) {
	a := Action{
		ID:   "act-abc123def456",
		Type: ActionBudgetSet,
		Parameters: map[string]any{
			"campaign":         "summer-search",
			"channel":          "search",
			"dailyBudgetCents": int64(5000),
		},
	}

	first, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	second, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if first != second {
		t.Errorf("fingerprint not stable: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(first))
	}
}

func TestFingerprintIgnoresIDAndDeps(t *testing.T) {
	params := map[string]any{"campaign": "c", "channel": "search"}
	a := Action{ID: "act-aaaaaaaaaaaa", Type: ActionCampaignCreate, Parameters: params}
	b := Action{ID: "act-bbbbbbbbbbbb", Type: ActionCampaignCreate, Parameters: params, DependsOn: []string{"act-cccccccccccc"}}

	fpA, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fpB, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fpA != fpB {
		t.Error("fingerprint must depend only on type and parameters")
	}
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	a := Action{Type: ActionBudgetSet, Parameters: map[string]any{"campaign": "c", "dailyBudgetCents": int64(100)}}
	b := Action{Type: ActionBudgetSet, Parameters: map[string]any{"campaign": "c", "dailyBudgetCents": int64(200)}}

	fpA, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fpB, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fpA == fpB {
		t.Error("different parameters must produce different fingerprints")
	}
}

func TestFingerprintAllPairwiseDistinct(t *testing.T) {
	result, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	fps, err := FingerprintAll(result.Actions)
	if err != nil {
		t.Fatalf("FingerprintAll() error = %v", err)
	}
	if len(fps) != len(result.Actions) {
		t.Fatalf("expected %d fingerprints, got %d", len(result.Actions), len(fps))
	}

	seen := make(map[string]string)
	for id, fp := range fps {
		if prev, ok := seen[fp]; ok {
			t.Errorf("actions %s and %s share fingerprint %s", prev, id, fp)
		}
		seen[fp] = id
	}
}

func TestFingerprintSurvivesRecompile(t *testing.T) {
	first, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	second, err := Compile(testPlan())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	fpsFirst, err := FingerprintAll(first.Actions)
	if err != nil {
		t.Fatalf("FingerprintAll() error = %v", err)
	}
	fpsSecond, err := FingerprintAll(second.Actions)
	if err != nil {
		t.Fatalf("FingerprintAll() error = %v", err)
	}

	for id, fp := range fpsFirst {
		if fpsSecond[id] != fp {
			t.Errorf("action %s fingerprint changed across recompiles", id)
		}
	}
}
