// Package types defines the domain model shared by the hivepay packages:
// order intents, canonical transfer records, verdicts and gateway errors.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency represents the token symbols accepted for payment.
type Currency string

const (
	CurrencyHive Currency = "HIVE"
	CurrencyHBD  Currency = "HBD"
)

// AmountPlaces is the fixed fractional precision of Hive token amounts.
const AmountPlaces = 3

// IsSupported reports whether the symbol is part of the accepted set.
func (c Currency) IsSupported() bool {
	switch c {
	case CurrencyHive, CurrencyHBD:
		return true
	}
	return false
}

// Token pairs a payment currency with the identifier the price oracle
// knows it by.
type Token struct {
	Symbol   Currency `json:"symbol"`
	OracleID string   `json:"oracleId"`
}

var (
	TokenHive = Token{Symbol: CurrencyHive, OracleID: "hive"}
	TokenHBD  = Token{Symbol: CurrencyHBD, OracleID: "hive_dollar"}
)

// TokenForCurrency resolves a symbol to its oracle mapping.
func TokenForCurrency(c Currency) (Token, bool) {
	switch Currency(strings.ToUpper(string(c))) {
	case CurrencyHive:
		return TokenHive, true
	case CurrencyHBD:
		return TokenHBD, true
	}
	return Token{}, false
}

// OrderStatus is the lifecycle state of an OrderIntent.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderSettled OrderStatus = "settled"
	OrderExpired OrderStatus = "expired"
)

// OrderIntent is the durable record of an expected payment. The memo and
// expected amount are assigned at creation and never change afterwards.
type OrderIntent struct {
	ID               string          `json:"id"`
	CartRef          string          `json:"cartRef"`
	Memo             string          `json:"memo"`
	ExpectedAmount   decimal.Decimal `json:"expectedAmount"`
	ExpectedCurrency Currency        `json:"expectedCurrency"`
	Status           OrderStatus     `json:"status"`
	SettledTxRef     string          `json:"settledTxRef,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	ExpiresAt        time.Time       `json:"expiresAt"`
}

// Expired reports whether the intent's advisory expiry window has passed.
// An expired intent can still settle; the window only drives the UI.
func (o *OrderIntent) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// TransferRecord is the canonical form of one on-chain transfer after
// normalization, independent of the provider response shape.
type TransferRecord struct {
	From      string
	To        string
	Amount    decimal.Decimal
	Currency  Currency
	Memo      string
	TxRef     string
	Timestamp time.Time
}

// MatchResult is the outcome of evaluating one intent against a sequence
// of transfer records.
type MatchResult struct {
	Matched bool
	TxRef   string
	From    string
	Amount  string
	Reason  string
}

// VerdictStatus is the tri-state outcome of a verification attempt.
type VerdictStatus string

const (
	VerdictPaid    VerdictStatus = "paid"
	VerdictNotPaid VerdictStatus = "not paid"
	VerdictError   VerdictStatus = "error"
)

// Verdict is returned by the verification endpoint. NotPaid is a normal,
// repeatable state; Error means the chain could not be consulted and the
// caller should retry later.
type Verdict struct {
	Status  VerdictStatus `json:"status"`
	TxRef   string        `json:"txRef,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
}

// PaymentInstructions is the data the presentation layer needs to show
// the buyer how to pay and where to poll.
type PaymentInstructions struct {
	OrderID        string    `json:"orderId"`
	Memo           string    `json:"memo"`
	Amount         string    `json:"amount"`
	Currency       Currency  `json:"currency"`
	ReceiveAccount string    `json:"receiveAccount"`
	TransferURI    string    `json:"transferUri"`
	SignerURL      string    `json:"signerUrl"`
	PollURL        string    `json:"pollUrl"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Config carries the gateway settings read at payment-start and
// verification time. It is passed explicitly into constructors; nothing
// in this module reads process-wide mutable state.
type Config struct {
	// ReceiveAccount is the Hive account payments must be sent to.
	ReceiveAccount string `validate:"required"`

	// RPCNodeURL is the base URL of the Hive JSON-RPC node.
	RPCNodeURL string `validate:"required,url"`

	// ExplorerURL optionally points at an explorer-style REST provider
	// used as an alternative data source.
	ExplorerURL string `validate:"omitempty,url"`

	// OracleURL is the base URL of the price feed. Required only when
	// storefront currency differs from the payment token.
	OracleURL string `validate:"omitempty,url"`

	// ExpiryMinutes bounds how long payment instructions stay valid.
	// Advisory; defaults to 60.
	ExpiryMinutes int `validate:"omitempty,min=1"`

	// RequestTimeout bounds each outbound provider call.
	RequestTimeout time.Duration

	// HistoryLimit is how many recent account-history operations are
	// scanned per verification. Providers cap this at 1000.
	HistoryLimit int `validate:"omitempty,min=1,max=1000"`
}

// Defaulted returns a copy with unset optional fields filled in.
func (c Config) Defaulted() Config {
	if c.ExpiryMinutes <= 0 {
		c.ExpiryMinutes = 60
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 1000
	}
	return c
}

// ExpiryWindow converts ExpiryMinutes to a duration.
func (c Config) ExpiryWindow() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

// FormatAmount renders a token amount with the fixed three fractional
// digits used on-chain, e.g. "5.000".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

// AmountString renders an amount with its symbol the way Hive encodes
// transfer amounts, e.g. "12.345 HBD".
func AmountString(d decimal.Decimal, c Currency) string {
	return fmt.Sprintf("%s %s", FormatAmount(d), c)
}
