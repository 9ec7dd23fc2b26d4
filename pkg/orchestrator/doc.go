// Package orchestrator drives compiled plans through the run state machine.
// It compiles a submitted plan, admits it through the policy engine, gates
// high-risk actions behind approval, and executes actions strictly in order
// through one adapter, recording telemetry, a full replay trace, and ledger
// entries in the state document. Execution is sequential within a run;
// the first failed action fails the run, and nothing already recorded is
// rolled back.
package orchestrator
