// Package state implements the versioned control-plane state document: the
// capability matrix, registered skills and workflows, run records, approvals,
// the execution ledger, drift entries, sync health, and the audit trail.
// State is persisted as a single JSON document with atomic writes, and
// corrupt or missing documents always load as usable defaults.
package state
