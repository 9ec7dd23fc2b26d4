package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint computes the stable content hash of one action: its type plus
// normalized parameters. Generated fields (the action ID) and structural
// wiring (dependency references) are excluded, so the fingerprint identifies
// the action's semantic content across plans and over time.
//
// Within one compiled plan, distinct actions carry distinct (type, parameter)
// pairs, so their fingerprints are pairwise distinct. An unchanged action
// recompiled later reproduces the same fingerprint, which is what drives
// idempotent re-execution checks and ledger dedup.
func Fingerprint(a Action) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"type":   a.Type,
		"params": a.Parameters,
	})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize action %s: %w", a.ID, err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintAll computes fingerprints for a compiled action list, keyed by
// action ID.
func FingerprintAll(actions []Action) (map[string]string, error) {
	fps := make(map[string]string, len(actions))
	for _, a := range actions {
		fp, err := Fingerprint(a)
		if err != nil {
			return nil, err
		}
		fps[a.ID] = fp
	}
	return fps, nil
}
