package plan

// Mode selects the execution surface a plan targets.
type Mode string

const (
	// ModeSandbox executes against the vendor's test surface; nothing is
	// published to a live account.
	ModeSandbox Mode = "sandbox"

	// ModeLive executes against the real account.
	ModeLive Mode = "live"
)

// RiskTier classifies an action for approval gating.
type RiskTier string

const (
	// RiskLow actions are reversible and side-effect free on live accounts.
	RiskLow RiskTier = "low"

	// RiskMedium actions mutate account state but are cheaply reversible.
	RiskMedium RiskTier = "medium"

	// RiskHigh actions commit spend or change budgets.
	RiskHigh RiskTier = "high"

	// RiskCritical actions publish to a live audience.
	RiskCritical RiskTier = "critical"
)

// MarketingPlan is the declarative plan document submitted by an operator.
type MarketingPlan struct {
	// Title is the human-readable plan title.
	Title string `json:"title" validate:"required"`

	// AccountID is the vendor account the plan operates on.
	AccountID string `json:"accountId" validate:"required"`

	// Campaigns are the campaigns to materialize, in order.
	Campaigns []Campaign `json:"campaigns"`

	// Mode selects sandbox or live execution. Empty defaults to sandbox.
	Mode Mode `json:"mode,omitempty" validate:"omitempty,oneof=sandbox live"`

	// PreferredAdapter optionally pins the execution backend for the run.
	PreferredAdapter string `json:"preferredAdapter,omitempty" validate:"omitempty,oneof=browser cli ssh"`
}

// Campaign describes one campaign within a plan.
type Campaign struct {
	// Name is the campaign name, unique within the plan.
	Name string `json:"name"`

	// Channel is the delivery channel (e.g. "search", "social", "email").
	Channel string `json:"channel"`

	// Objective is the optimization objective (e.g. "traffic", "conversions").
	Objective string `json:"objective,omitempty"`

	// DailyBudgetCents is the daily budget in minor currency units.
	// Zero means no budget action is compiled for this campaign.
	DailyBudgetCents int64 `json:"dailyBudgetCents,omitempty"`

	// Audience optionally targets the campaign.
	Audience *Audience `json:"audience,omitempty"`

	// Creatives are the creative assets to upload for this campaign.
	Creatives []Creative `json:"creatives,omitempty"`

	// StartDate and EndDate bound the flight window (ISO 8601 dates).
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Audience describes campaign targeting.
type Audience struct {
	// Segments are named audience segments.
	Segments []string `json:"segments,omitempty"`

	// Locations are geo targets.
	Locations []string `json:"locations,omitempty"`

	// AgeMin and AgeMax bound the age range; zero means unbounded.
	AgeMin int `json:"ageMin,omitempty"`
	AgeMax int `json:"ageMax,omitempty"`
}

// Creative describes one creative asset.
type Creative struct {
	// Name identifies the creative within its campaign.
	Name string `json:"name"`

	// Format is the creative format (e.g. "image", "video", "text").
	Format string `json:"format"`

	// AssetPath points at the local asset file, if any.
	AssetPath string `json:"assetPath,omitempty"`

	// Headline and Body carry text content for text formats.
	Headline string `json:"headline,omitempty"`
	Body     string `json:"body,omitempty"`
}

// Action is one compiled, atomic unit of work derived from a plan.
type Action struct {
	// ID is the deterministic action identity, derived from the canonical
	// serialization of (campaign index, position, type, key fields).
	ID string `json:"id"`

	// Type is the action type (e.g. "campaign.create", "campaign.launch").
	Type string `json:"type"`

	// Risk is the approval-gating risk tier.
	Risk RiskTier `json:"risk"`

	// Parameters carry the semantic payload handed to the adapter.
	Parameters map[string]any `json:"parameters"`

	// DependsOn lists action IDs that must execute before this one.
	DependsOn []string `json:"dependsOn,omitempty"`
}

// Action types emitted by the compiler.
const (
	ActionCampaignCreate    = "campaign.create"
	ActionAudienceConfigure = "audience.configure"
	ActionCreativeUpload    = "creative.upload"
	ActionBudgetSet         = "budget.set"
	ActionCampaignLaunch    = "campaign.launch"
)

// ValidationResult reports structural validation of a plan document.
type ValidationResult struct {
	// OK is true when the plan is structurally valid.
	OK bool `json:"ok"`

	// Errors are operator-facing messages; empty when OK.
	Errors []string `json:"errors,omitempty"`
}

// CompileResult is the outcome of compiling a plan.
type CompileResult struct {
	// Valid is false when the plan failed structural validation.
	Valid bool `json:"valid"`

	// Errors are operator-facing validation messages; empty when Valid.
	Errors []string `json:"errors,omitempty"`

	// Actions is the flat, ordered action list.
	Actions []Action `json:"actions,omitempty"`

	// ActionGraphHash is a stable hash over the canonicalized ordered
	// action list, used to detect whether a previously seen plan changed.
	ActionGraphHash string `json:"actionGraphHash,omitempty"`
}
