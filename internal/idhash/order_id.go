package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeOrderID computes a deterministic order id using SHA256.
// Formula: SHA256(session_id|symbol|timestamp_ms|tag|price)
// Returns hex-encoded hash (64 characters).
//
// The tag disambiguates orders placed in the same bar (grid_buy_1 vs
// grid_buy_2); the price disambiguates re-placements of the same tag
// after a kill-replace.
func ComputeOrderID(sessionID, symbol string, timestampMs int64, tag string, price float64) string {
	data := fmt.Sprintf("%s|%s|%d|%s|%.10f",
		sessionID,
		symbol,
		timestampMs,
		tag,
		price,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeFillID computes a deterministic fill id from the filled
// order and the fill bar.
// Formula: SHA256(order_id|timestamp_ms)
func ComputeFillID(orderID string, timestampMs int64) string {
	data := fmt.Sprintf("%s|%d", orderID, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeEventID computes a deterministic order-event id. orderRef is
// the order id, or the intent tag for skipped intents that never got
// an order id.
// Formula: SHA256(order_ref|action|timestamp_ms)
func ComputeEventID(orderRef, action string, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", orderRef, action, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
