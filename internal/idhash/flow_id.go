package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeFlowID computes a deterministic whale-flow id using SHA256.
// Formula: SHA256(symbol|option_type|strike|expiration|timestamp|contracts)
// Returns hex-encoded hash (64 characters). The same feed record always
// hashes to the same id, so re-ingesting a feed is idempotent.
func ComputeFlowID(
	symbol string,
	optionType string,
	strike float64,
	expiration time.Time,
	timestamp time.Time,
	contracts int64,
) string {
	data := fmt.Sprintf("%s|%s|%.2f|%s|%d|%d",
		symbol,
		optionType,
		strike,
		expiration.UTC().Format("2006-01-02"),
		timestamp.UTC().UnixNano(),
		contracts,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
