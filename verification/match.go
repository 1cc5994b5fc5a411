// Package verification decides whether an on-chain transfer satisfies a
// pending order intent.
package verification

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hivepay/hivepay/types"
)

// AmountTolerance is the absolute slack allowed between the expected
// amount and the transferred amount, symmetric in both directions. It
// absorbs string-rounding noise introduced by upstream formatting; an
// underpayment beyond it is rejected.
var AmountTolerance = decimal.NewFromFloat(0.0005)

// ReasonNoMatch is returned when no transfer satisfies the intent.
const ReasonNoMatch = "no matching transfer found"

// Evaluate scans transfers in provider order and returns the first
// record satisfying all of:
//
//  1. destination equals receiveAccount, case-insensitive;
//  2. the transfer memo contains the intent's memo token as a
//     substring, since wallets prepend and append their own text;
//  3. currency equals the expected currency after trimming, case-insensitive;
//  4. amount within AmountTolerance of the expected amount.
//
// Provider order is usually most-recent-first but is not guaranteed;
// "first match" is therefore provider-order-dependent. When the
// provider did not supply a transaction id the result carries a
// synthesized "timestamp:sender" reference for the audit trail. That
// reference is never a uniqueness key here; replay protection lives in
// the settlement store.
func Evaluate(intent *types.OrderIntent, transfers []types.TransferRecord, receiveAccount string) types.MatchResult {
	for _, tr := range transfers {
		if !strings.EqualFold(tr.To, receiveAccount) {
			continue
		}
		if tr.Memo == "" || !strings.Contains(tr.Memo, intent.Memo) {
			continue
		}
		if !currencyEqual(tr.Currency, intent.ExpectedCurrency) {
			continue
		}
		if !withinTolerance(tr.Amount, intent.ExpectedAmount) {
			continue
		}

		txRef := tr.TxRef
		if txRef == "" && !tr.Timestamp.IsZero() {
			txRef = fmt.Sprintf("%s:%s", tr.Timestamp.UTC().Format("2006-01-02T15:04:05"), tr.From)
		}

		return types.MatchResult{
			Matched: true,
			TxRef:   txRef,
			From:    tr.From,
			Amount:  types.AmountString(tr.Amount, tr.Currency),
		}
	}

	return types.MatchResult{Matched: false, Reason: ReasonNoMatch}
}

func currencyEqual(a, b types.Currency) bool {
	return strings.EqualFold(strings.TrimSpace(string(a)), strings.TrimSpace(string(b)))
}

func withinTolerance(actual, expected decimal.Decimal) bool {
	return actual.Sub(expected).Abs().LessThanOrEqual(AmountTolerance)
}
