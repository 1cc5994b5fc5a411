// Package utils holds small helpers shared across the gateway: memo
// generation, amount parsing and config validation.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// MemoLength is the fixed length of generated memo tokens. Twelve
// characters of a random UUID keep the token short enough to share a
// memo field with wallet text while making collisions negligible.
const MemoLength = 12

// GenerateMemo produces the per-order correlation token embedded in the
// transfer memo. Uppercase so matching is never case-sensitive.
func GenerateMemo() string {
	return strings.ToUpper(uuid.NewString()[:MemoLength])
}

// NewOrderID returns a fresh opaque order identifier.
func NewOrderID() string {
	return uuid.NewString()
}
