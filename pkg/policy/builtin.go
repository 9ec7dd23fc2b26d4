package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		liveLaunchPolicy(),
		budgetCapPolicy(),
		creativeContentPolicy(),
	}
}

// liveLaunchPolicy restricts live critical actions to admins.
func liveLaunchPolicy() Policy {
	return Policy{
		Name:        "live-launch-guard",
		Description: "Restricts critical actions on live accounts to admin actors",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"live", "safety"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package controlplane.policies.launch

import rego.v1

deny contains violation if {
	input.mode == "live"
	some action in input.actions
	action.risk == "critical"
	input.actor_role != "admin"

	violation := {
		"message": sprintf("action %s is critical on a live account and requires an admin actor", [action.id]),
		"severity": "critical",
		"action_id": action.id,
	}
}

deny contains violation if {
	input.mode == "live"
	not "controlplane:write" in input.actor_scopes
	not "controlplane:admin" in input.actor_scopes

	violation := {
		"message": "live plans require the controlplane:write scope",
		"severity": "critical",
	}
}`,
	}
}

// budgetCapPolicy blocks runaway daily budgets on live accounts.
func budgetCapPolicy() Policy {
	return Policy{
		Name:        "budget-cap",
		Description: "Blocks live daily budgets above the hard cap and warns on large sandbox budgets",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"budget", "spend"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package controlplane.policies.budget

import rego.v1

# Hard cap per campaign per day, in minor currency units
max_live_daily_cents := 100000000

deny contains violation if {
	input.mode == "live"
	some action in input.actions
	action.type == "budget.set"
	action.parameters.dailyBudgetCents > max_live_daily_cents

	violation := {
		"message": sprintf("action %s sets a live daily budget above the cap of %d cents", [action.id, max_live_daily_cents]),
		"severity": "error",
		"action_id": action.id,
	}
}

deny contains violation if {
	some action in input.actions
	action.type == "budget.set"
	action.parameters.dailyBudgetCents > max_live_daily_cents * 10

	violation := {
		"message": sprintf("action %s sets an implausibly large budget - please review", [action.id]),
		"severity": "warning",
		"action_id": action.id,
	}
}`,
	}
}

// creativeContentPolicy requires creatives to carry content.
func creativeContentPolicy() Policy {
	return Policy{
		Name:        "creative-content",
		Description: "Requires uploaded creatives to carry an asset or text content",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"creative"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package controlplane.policies.creative

import rego.v1

deny contains violation if {
	some action in input.actions
	action.type == "creative.upload"
	not action.parameters.assetPath
	not action.parameters.headline
	not action.parameters.body

	violation := {
		"message": sprintf("action %s uploads a creative with no asset or text content", [action.id]),
		"severity": "error",
		"action_id": action.id,
	}
}`,
	}
}
