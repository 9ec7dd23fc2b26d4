// Package adapters defines the execution backend contract for the control
// plane. An adapter knows how to probe a vendor session and execute one
// compiled action, reporting structured results with a normalized error
// taxonomy so the orchestrator can treat backends interchangeably.
package adapters
