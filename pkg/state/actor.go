package state

// Scopes recognized by the control plane.
const (
	// ScopeRead allows reading control-plane state.
	ScopeRead = "controlplane:read"

	// ScopeWrite allows mutating control-plane state.
	ScopeWrite = "controlplane:write"

	// ScopeAdmin implies every other scope.
	ScopeAdmin = "controlplane:admin"
)

// Actor identifies who is performing a control-plane operation.
type Actor struct {
	// ID is the stable actor identity (username or service account).
	ID string `json:"id"`

	// Role is the actor's role name (e.g. "operator", "admin").
	Role string `json:"role"`

	// Scopes are the granted permission scopes.
	Scopes []string `json:"scopes"`
}

// HasScope reports whether the actor holds the given scope. Admin implies
// all scopes.
func (a Actor) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope || s == ScopeAdmin {
			return true
		}
	}
	return false
}

// CanWrite reports whether the actor may mutate control-plane state.
func (a Actor) CanWrite() bool {
	return a.HasScope(ScopeWrite)
}
