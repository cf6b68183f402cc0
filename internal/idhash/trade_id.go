package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(symbol|strategy_id|direction|entry_time|entry_bar_index)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	symbol string,
	strategyID string,
	direction string,
	entryTime int64,
	entryBarIndex int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		symbol,
		strategyID,
		direction,
		entryTime,
		entryBarIndex,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
