package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// actionIDPrefix prefixes every compiled action ID.
const actionIDPrefix = "act-"

// actionIDHexLen is the number of hash hex characters kept in an action ID.
const actionIDHexLen = 12

var structValidator = validator.New()

// Validate performs structural validation of a plan document. It returns
// operator-facing messages and never fails on malformed input; a nil plan is
// reported as invalid rather than treated as a programmer error so callers
// can surface it to operators.
func Validate(p *MarketingPlan) ValidationResult {
	if p == nil {
		return ValidationResult{OK: false, Errors: []string{"plan is required"}}
	}

	var msgs []string

	if err := structValidator.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				msgs = append(msgs, fieldMessage(fe))
			}
		} else {
			msgs = append(msgs, err.Error())
		}
	}

	for i, c := range p.Campaigns {
		if c.Name == "" {
			msgs = append(msgs, fmt.Sprintf("campaigns[%d]: name is required", i))
		}
		if c.Channel == "" {
			msgs = append(msgs, fmt.Sprintf("campaigns[%d]: channel is required", i))
		}
		if c.DailyBudgetCents < 0 {
			msgs = append(msgs, fmt.Sprintf("campaigns[%d]: dailyBudgetCents must not be negative", i))
		}
		for j, cr := range c.Creatives {
			if cr.Name == "" {
				msgs = append(msgs, fmt.Sprintf("campaigns[%d].creatives[%d]: name is required", i, j))
			}
			if cr.Format == "" {
				msgs = append(msgs, fmt.Sprintf("campaigns[%d].creatives[%d]: format is required", i, j))
			}
		}
	}

	return ValidationResult{OK: len(msgs) == 0, Errors: msgs}
}

// fieldMessage maps a validator field error to its operator-facing message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Title":
		return "title is required"
	case "AccountID":
		return "accountId is required"
	case "Mode":
		return `mode must be "sandbox" or "live"`
	case "PreferredAdapter":
		return `preferredAdapter must be one of "browser", "cli", "ssh"`
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Compile validates a plan and decomposes it into a flat, ordered action list
// with deterministic IDs and a stable hash of the whole graph.
//
// Structurally invalid plans yield Valid=false with operator-facing errors.
// The returned error is non-nil only for programmer errors (a nil plan
// reference or an unserializable parameter value).
func Compile(p *MarketingPlan) (*CompileResult, error) {
	if p == nil {
		return nil, errors.New("plan is nil")
	}

	if res := Validate(p); !res.OK {
		return &CompileResult{Valid: false, Errors: res.Errors}, nil
	}

	mode := p.Mode
	if mode == "" {
		mode = ModeSandbox
	}

	var actions []Action
	for i, c := range p.Campaigns {
		compiled, err := compileCampaign(i, c, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to compile campaign %d: %w", i, err)
		}
		actions = append(actions, compiled...)
	}

	graphHash, err := hashActionGraph(actions)
	if err != nil {
		return nil, fmt.Errorf("failed to hash action graph: %w", err)
	}

	return &CompileResult{
		Valid:           true,
		Actions:         actions,
		ActionGraphHash: graphHash,
	}, nil
}

// compileCampaign decomposes one campaign into its ordered actions.
// Position numbering restarts per campaign so action identity is a pure
// function of plan content.
func compileCampaign(index int, c Campaign, mode Mode) ([]Action, error) {
	var actions []Action
	position := 0

	add := func(actionType string, risk RiskTier, params map[string]any, deps []string) (string, error) {
		params["campaign"] = c.Name
		params["channel"] = c.Channel

		id, err := actionID(index, position, actionType, params)
		if err != nil {
			return "", err
		}

		actions = append(actions, Action{
			ID:         id,
			Type:       actionType,
			Risk:       risk,
			Parameters: params,
			DependsOn:  deps,
		})
		position++
		return id, nil
	}

	createParams := map[string]any{}
	if c.Objective != "" {
		createParams["objective"] = c.Objective
	}
	if c.StartDate != "" {
		createParams["startDate"] = c.StartDate
	}
	if c.EndDate != "" {
		createParams["endDate"] = c.EndDate
	}
	createID, err := add(ActionCampaignCreate, RiskLow, createParams, nil)
	if err != nil {
		return nil, err
	}

	launchDeps := []string{createID}

	if c.Audience != nil {
		audienceParams := map[string]any{
			"segments":  c.Audience.Segments,
			"locations": c.Audience.Locations,
		}
		if c.Audience.AgeMin > 0 {
			audienceParams["ageMin"] = c.Audience.AgeMin
		}
		if c.Audience.AgeMax > 0 {
			audienceParams["ageMax"] = c.Audience.AgeMax
		}
		id, err := add(ActionAudienceConfigure, RiskMedium, audienceParams, []string{createID})
		if err != nil {
			return nil, err
		}
		launchDeps = append(launchDeps, id)
	}

	for _, cr := range c.Creatives {
		creativeParams := map[string]any{
			"creative": cr.Name,
			"format":   cr.Format,
		}
		if cr.AssetPath != "" {
			creativeParams["assetPath"] = cr.AssetPath
		}
		if cr.Headline != "" {
			creativeParams["headline"] = cr.Headline
		}
		if cr.Body != "" {
			creativeParams["body"] = cr.Body
		}
		id, err := add(ActionCreativeUpload, RiskLow, creativeParams, []string{createID})
		if err != nil {
			return nil, err
		}
		launchDeps = append(launchDeps, id)
	}

	if c.DailyBudgetCents > 0 {
		budgetRisk := RiskMedium
		if mode == ModeLive {
			budgetRisk = RiskHigh
		}
		id, err := add(ActionBudgetSet, budgetRisk, map[string]any{
			"dailyBudgetCents": c.DailyBudgetCents,
		}, []string{createID})
		if err != nil {
			return nil, err
		}
		launchDeps = append(launchDeps, id)
	}

	launchRisk := RiskMedium
	if mode == ModeLive {
		launchRisk = RiskCritical
	}
	if _, err := add(ActionCampaignLaunch, launchRisk, map[string]any{
		"mode": string(mode),
	}, launchDeps); err != nil {
		return nil, err
	}

	return actions, nil
}

// actionID derives a deterministic action identity from the canonical
// serialization of the action's structural position and semantic key fields.
func actionID(campaignIndex, position int, actionType string, params map[string]any) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"c":      campaignIndex,
		"p":      position,
		"type":   actionType,
		"params": params,
	})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize action identity: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return actionIDPrefix + hex.EncodeToString(sum[:])[:actionIDHexLen], nil
}

// hashActionGraph computes the stable hash over the canonicalized ordered
// action list.
func hashActionGraph(actions []Action) (string, error) {
	canonical, err := MarshalCanonical(actions)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
