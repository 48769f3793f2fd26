package source

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashOf digests the JSON-normalized (query, kind, userID) triple.
// Identical queries from different principals never collide, so cached
// results can never leak across identities.
func hashOf(query any, kind string, userID string) string {
	payload, _ := json.Marshal(struct {
		Query  any    `json:"query"`
		Kind   string `json:"kind"`
		UserID string `json:"userId"`
	}{query, kind, userID})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
