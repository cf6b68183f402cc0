package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic backtest run id using SHA256.
// Formula: SHA256(symbol|strategy_id|start_time|end_time|bar_count|created_at)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	symbol string,
	strategyID string,
	startTime int64,
	endTime int64,
	barCount int,
	createdAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d|%d",
		symbol,
		strategyID,
		startTime,
		endTime,
		barCount,
		createdAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
