// Package approval implements the risk-tier approval gate. The mapping from
// risk tier to approval requirement is central and fixed so no caller can
// reclassify an action on its own.
package approval

import (
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub008/pkg/plan"
)

// approvalRequired is the single source of truth for which risk tiers need a
// human approval before execution.
var approvalRequired = map[plan.RiskTier]bool{
	plan.RiskLow:      false,
	plan.RiskMedium:   false,
	plan.RiskHigh:     true,
	plan.RiskCritical: true,
}

// ActionRequiresApproval reports whether an action's risk tier requires a
// recorded approval before it may execute. Unknown tiers require approval.
func ActionRequiresApproval(a plan.Action) bool {
	required, ok := approvalRequired[a.Risk]
	if !ok {
		return true
	}
	return required
}

// RequiredApprovals returns the actions from the list that cannot execute
// without approval, preserving compilation order.
func RequiredApprovals(actions []plan.Action) []plan.Action {
	var gated []plan.Action
	for _, a := range actions {
		if ActionRequiresApproval(a) {
			gated = append(gated, a)
		}
	}
	return gated
}

// PlanRequiresApproval reports whether any action in the list is gated.
func PlanRequiresApproval(actions []plan.Action) bool {
	for _, a := range actions {
		if ActionRequiresApproval(a) {
			return true
		}
	}
	return false
}
