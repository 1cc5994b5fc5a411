// Package hivepay verifies storefront payments made in HIVE or HBD by
// scanning a remote Hive data provider for a transfer carrying a
// per-order memo token. It is a read-only verifier plus a ledger of
// pending expectations: it holds no keys and broadcasts nothing.
package hivepay

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/hivepay/hivepay/clients"
	"github.com/hivepay/hivepay/clock"
	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/oracle"
	"github.com/hivepay/hivepay/settlement"
	"github.com/hivepay/hivepay/types"
	"github.com/hivepay/hivepay/utils"
	"github.com/hivepay/hivepay/verification"
)

// Gateway is the facade tying the gateway together: intent creation at
// payment start, and verification with exactly-once settlement.
type Gateway struct {
	cfg        types.Config
	chain      clients.ChainClient
	verifier   *verification.Service
	settlement *settlement.Service
	oracle     settlement.Converter
	clk        clock.Clock
	log        logger.Logger
	rec        metrics.Recorder
}

// New builds a Gateway over the given intent store. Config is validated
// up front so a missing receive account or RPC node fails at
// construction, not mid-verification.
func New(cfg types.Config, store settlement.Store, opts ...Option) (*Gateway, error) {
	cfg = cfg.Defaulted()
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg: cfg,
		clk: clock.NewSystem(),
		log: logger.NoopLogger{},
		rec: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.chain == nil {
		g.chain = clients.NewHiveRPCClient(cfg.RPCNodeURL, cfg.RequestTimeout, g.log, g.rec)
	}
	if g.oracle == nil {
		g.oracle = oracle.New(cfg.OracleURL, cfg.RequestTimeout, g.rec)
	}

	g.verifier = verification.NewService(g.chain, cfg, g.log, g.rec)
	g.settlement = settlement.NewService(store, g.oracle, cfg, g.clk, g.log, g.rec)
	return g, nil
}

// StartPaymentInput describes the checkout handing over to the gateway.
type StartPaymentInput struct {
	CartRef      string
	Amount       decimal.Decimal
	FromCurrency string         // storefront currency
	PayCurrency  types.Currency // HIVE or HBD
}

// StartPayment creates the order intent and returns the instruction
// data the payment page renders: memo, amount, receive account, a
// wallet-scannable transfer URI and the URL to poll for the verdict.
func (g *Gateway) StartPayment(ctx context.Context, in StartPaymentInput) (*types.PaymentInstructions, error) {
	intent, err := g.settlement.CreateIntent(ctx, settlement.CreateIntentInput{
		CartRef:      in.CartRef,
		Amount:       in.Amount,
		FromCurrency: in.FromCurrency,
		PayCurrency:  in.PayCurrency,
	})
	if err != nil {
		return nil, err
	}

	amount := types.FormatAmount(intent.ExpectedAmount)
	query := fmt.Sprintf("to=%s&amount=%s%%20%s&memo=%s",
		url.QueryEscape(g.cfg.ReceiveAccount), amount, intent.ExpectedCurrency, url.QueryEscape(intent.Memo))

	return &types.PaymentInstructions{
		OrderID:        intent.ID,
		Memo:           intent.Memo,
		Amount:         amount,
		Currency:       intent.ExpectedCurrency,
		ReceiveAccount: g.cfg.ReceiveAccount,
		TransferURI:    "hive://transfer?" + query,
		SignerURL:      "https://hivesigner.com/sign/transfer?" + query,
		PollURL:        "/payments/hive/notify/" + intent.ID,
		ExpiresAt:      intent.ExpiresAt,
	}, nil
}

// Verify runs one verification pass for the order and reports the
// tri-state verdict. Already-settled orders short-circuit to a paid
// verdict without touching the chain. Provider failures come back as an
// error verdict, never as a Go error; the returned error is reserved
// for caller mistakes such as an unknown order id.
func (g *Gateway) Verify(ctx context.Context, orderID string) (types.Verdict, error) {
	if orderID == "" {
		return types.Verdict{}, types.NewGatewayError(types.ErrMissingIdentifier, "missing order identifier")
	}

	intent, err := g.settlement.Find(ctx, orderID)
	if err != nil {
		return types.Verdict{}, err
	}

	if intent.Status == types.OrderSettled {
		return types.Verdict{Status: types.VerdictPaid, TxRef: intent.SettledTxRef}, nil
	}

	result, err := g.verifier.Verify(ctx, intent)
	if err != nil {
		g.log.Error("verification pass failed", map[string]any{"order": orderID, "error": err.Error()})
		return types.Verdict{
			Status:  types.VerdictError,
			Reason:  "chain data unavailable",
			Message: err.Error(),
		}, nil
	}

	if !result.Matched {
		return types.Verdict{Status: types.VerdictNotPaid, Reason: result.Reason}, nil
	}

	if _, err := g.settlement.Settle(ctx, orderID, result.TxRef); err != nil {
		if types.IsCode(err, types.ErrTxRefConsumed) {
			return types.Verdict{Status: types.VerdictNotPaid, Reason: err.Error()}, nil
		}
		return types.Verdict{
			Status:  types.VerdictError,
			Reason:  "settlement failed",
			Message: err.Error(),
		}, nil
	}

	return types.Verdict{Status: types.VerdictPaid, TxRef: result.TxRef}, nil
}

// Order exposes a stored intent, for instruction pages re-rendered
// after a refresh.
func (g *Gateway) Order(ctx context.Context, orderID string) (*types.OrderIntent, error) {
	return g.settlement.Find(ctx, orderID)
}

// Config returns the effective gateway configuration.
func (g *Gateway) Config() types.Config {
	return g.cfg
}
