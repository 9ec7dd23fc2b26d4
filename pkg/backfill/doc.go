// Package backfill reconciles the live skill and workflow registrations into
// the control-plane state document. It creates missing entries, reports
// bindings that reference nothing live, and maintains the drift list and
// sync-health counters. Mutation is gated on the actor's write scope.
package backfill
