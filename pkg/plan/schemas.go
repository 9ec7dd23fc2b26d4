package plan

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for strict plan-document validation.
// It complements Validate: the struct validator produces the operator-facing
// messages the gateway surfaces, while CUE schemas catch shape errors in raw
// documents before they are decoded (unknown fields, wrong types).
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a schema registry with the built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	sr.RegisterSchema("plan", builtinPlanSchema)
	sr.RegisterSchema("campaign", builtinCampaignSchema)
	sr.RegisterSchema("manifest", builtinManifestSchema)

	return sr
}

// RegisterSchema registers a CUE schema under the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// ValidateDocument validates a decoded document against a named schema.
func (sr *SchemaRegistry) ValidateDocument(schemaName string, doc any) error {
	sr.mu.RLock()
	schema, ok := sr.schemas[schemaName]
	sr.mu.RUnlock()
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	docVal := sr.ctx.Encode(doc)
	if err := docVal.Err(); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	unified := schema.Unify(docVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

const builtinPlanSchema = `
// Marketing plan document
{
	title:     string & !=""
	accountId: string & !=""
	campaigns: [...]
	mode?:             "sandbox" | "live"
	preferredAdapter?: "browser" | "cli" | "ssh"
}
`

const builtinCampaignSchema = `
// Campaign entry inside a plan
{
	name:    string & !=""
	channel: string & !=""
	objective?:        string
	dailyBudgetCents?: int & >=0
	startDate?:        string
	endDate?:          string
	audience?: {
		segments?:  [...string]
		locations?: [...string]
		ageMin?:    int & >=0
		ageMax?:    int & >=0
	}
	creatives?: [...{
		name:   string & !=""
		format: "image" | "video" | "text"
		assetPath?: string
		headline?:  string
		body?:      string
	}]
}
`

const builtinManifestSchema = `
// Skill/workflow manifest registered by the plugin system
{
	name: string & =~"^[a-z0-9][a-z0-9-]*$"
	kind: "skill" | "workflow"
	version?:     string
	description?: string
	channels?: [...string]
	steps?:    [...string]
}
`
