package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeFinishID computes a deterministic finish_id using SHA256.
// Formula: SHA256(race_id|competitor_id)
// Returns hex-encoded hash (64 characters).
func ComputeFinishID(raceID, competitorID string) string {
	data := fmt.Sprintf("%s|%s", raceID, competitorID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeBreakdownID computes a deterministic breakdown_id using SHA256.
// Formula: SHA256(race_id|competitor_id|rules_version)
// Deterministic ids make rescoring idempotent: the same inputs under the
// same rules version always address the same row.
func ComputeBreakdownID(raceID, competitorID string, rulesVersion int) string {
	data := fmt.Sprintf("%s|%s|%d", raceID, competitorID, rulesVersion)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
