// Package plan implements the control-plane plan compiler: it validates a
// declarative marketing plan, decomposes it into a deterministic, ordered list
// of typed actions, and computes content hashes for the action graph and for
// each individual action.
//
// Compilation is pure: the same plan document always produces the same action
// IDs, the same ordering, and the same graph hash. Nothing in this package
// derives identity from wall-clock time or randomness.
package plan
