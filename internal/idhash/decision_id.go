package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeDecisionID computes a deterministic decision id using SHA256.
// Formula: SHA256(symbol|strike|expiration|logged_at)
// Returns hex-encoded hash (64 characters).
func ComputeDecisionID(
	symbol string,
	strike float64,
	expiration time.Time,
	loggedAt time.Time,
) string {
	data := fmt.Sprintf("%s|%.2f|%s|%d",
		symbol,
		strike,
		expiration.UTC().Format("2006-01-02"),
		loggedAt.UTC().UnixNano(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeTradeID computes a deterministic open-trade id from the
// decision that spawned it.
// Formula: SHA256(decision_id|entry_date)
func ComputeTradeID(decisionID string, entryDate time.Time) string {
	data := fmt.Sprintf("%s|%d", decisionID, entryDate.UTC().UnixNano())

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
