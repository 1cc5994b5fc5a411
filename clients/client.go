// Package clients fetches candidate transfer records from remote Hive
// data providers and normalizes their inconsistent response shapes.
package clients

import (
	"context"
	"encoding/json"
)

// RawRecord is one provider record before normalization. Providers
// disagree on shape, so records travel as raw JSON until
// NormalizeTransfer canonicalizes them.
type RawRecord = json.RawMessage

// ChainClient fetches the most recent operations touching an account.
// Implementations must attempt exactly one fallback method or provider
// before failing; transient unavailability surfaces as a
// CHAIN_DATA_UNAVAILABLE gateway error, never as a crash.
type ChainClient interface {
	FetchRecentTransfers(ctx context.Context, account string, limit int) ([]RawRecord, error)
}
