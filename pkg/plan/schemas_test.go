package plan

import "testing"

func TestSchemaRegistryValidDocuments(t *testing.T) {
	sr := NewSchemaRegistry()

	tests := []struct {
		name   string
		schema string
		doc    map[string]any
	}{
		{
			name:   "minimal plan",
			schema: "plan",
			doc: map[string]any{
				"title":     "t",
				"accountId": "a",
				"campaigns": []any{},
			},
		},
		{
			name:   "full campaign",
			schema: "campaign",
			doc: map[string]any{
				"name":             "summer",
				"channel":          "search",
				"dailyBudgetCents": 5000,
				"creatives": []any{
					map[string]any{"name": "hero", "format": "image"},
				},
			},
		},
		{
			name:   "skill manifest",
			schema: "manifest",
			doc: map[string]any{
				"name": "budget-pacing",
				"kind": "skill",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sr.ValidateDocument(tt.schema, tt.doc); err != nil {
				t.Errorf("ValidateDocument() error = %v", err)
			}
		})
	}
}

func TestSchemaRegistryInvalidDocuments(t *testing.T) {
	sr := NewSchemaRegistry()

	tests := []struct {
		name   string
		schema string
		doc    map[string]any
	}{
		{
			name:   "plan missing accountId",
			schema: "plan",
			doc:    map[string]any{"title": "t", "campaigns": []any{}},
		},
		{
			name:   "plan bad mode",
			schema: "plan",
			doc:    map[string]any{"title": "t", "accountId": "a", "campaigns": []any{}, "mode": "staging"},
		},
		{
			name:   "campaign negative budget",
			schema: "campaign",
			doc:    map[string]any{"name": "c", "channel": "search", "dailyBudgetCents": -1},
		},
		{
			name:   "manifest bad kind",
			schema: "manifest",
			doc:    map[string]any{"name": "x", "kind": "plugin"},
		},
		{
			name:   "manifest uppercase name",
			schema: "manifest",
			doc:    map[string]any{"name": "BadName", "kind": "skill"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sr.ValidateDocument(tt.schema, tt.doc); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSchemaRegistryUnknownSchema(t *testing.T) {
	sr := NewSchemaRegistry()
	if err := sr.ValidateDocument("nope", map[string]any{}); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}
