package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hivepay/hivepay/clock"
	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/oracle"
	"github.com/hivepay/hivepay/types"
	"github.com/hivepay/hivepay/utils"
)

// Converter turns a storefront-currency amount into a token amount.
// Satisfied by oracle.Client.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, fromCurrency string, token types.Token) (decimal.Decimal, error)
}

var _ Converter = (*oracle.Client)(nil)

// Service manages the order intent lifecycle: creation with a fresh
// memo, lookup, expiry marking and the terminal settle transition.
type Service struct {
	store  Store
	oracle Converter
	cfg    types.Config
	clk    clock.Clock
	log    logger.Logger
	rec    metrics.Recorder
}

// NewService wires the intent store and price converter.
func NewService(store Store, conv Converter, cfg types.Config, clk clock.Clock, log logger.Logger, rec metrics.Recorder) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{store: store, oracle: conv, cfg: cfg.Defaulted(), clk: clk, log: log, rec: rec}
}

// CreateIntentInput describes a payment to expect.
type CreateIntentInput struct {
	CartRef      string
	Amount       decimal.Decimal
	FromCurrency string         // storefront currency, e.g. "USD" or "HBD"
	PayCurrency  types.Currency // token the buyer will send
}

// CreateIntent converts the amount if needed, generates the memo and
// persists the pending intent. Configuration problems surface here, at
// payment start, rather than during verification.
func (s *Service) CreateIntent(ctx context.Context, in CreateIntentInput) (*types.OrderIntent, error) {
	if s.cfg.ReceiveAccount == "" {
		return nil, types.NewGatewayError(types.ErrConfigMissing, "receive account not configured")
	}

	payCurrency := types.Currency(strings.ToUpper(string(in.PayCurrency)))
	token, ok := types.TokenForCurrency(payCurrency)
	if !ok {
		return nil, types.NewGatewayError(types.ErrUnsupportedCurrency,
			fmt.Sprintf("unsupported payment currency %q", in.PayCurrency))
	}

	amount, err := s.oracle.Convert(ctx, in.Amount, in.FromCurrency, token)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	intent := &types.OrderIntent{
		ID:               utils.NewOrderID(),
		CartRef:          in.CartRef,
		Memo:             utils.GenerateMemo(),
		ExpectedAmount:   amount,
		ExpectedCurrency: token.Symbol,
		Status:           types.OrderPending,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.cfg.ExpiryWindow()),
	}

	if err := s.store.Create(ctx, intent); err != nil {
		return nil, err
	}

	s.log.Info("order intent created", map[string]any{
		"order":    intent.ID,
		"cart":     intent.CartRef,
		"amount":   types.FormatAmount(intent.ExpectedAmount),
		"currency": intent.ExpectedCurrency,
	})
	return intent, nil
}

// Find looks up an intent, marking it expired in passing when its
// window has lapsed. The expired status is advisory; verification
// continues regardless.
func (s *Service) Find(ctx context.Context, id string) (*types.OrderIntent, error) {
	intent, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if intent.Status == types.OrderPending && intent.Expired(s.clk.Now()) {
		if err := s.store.MarkExpired(ctx, id); err == nil {
			intent.Status = types.OrderExpired
		}
	}
	return intent, nil
}

// Settle records the verified transfer against the order. Idempotent:
// the first caller wins the transition, later callers get won=false and
// no error. A txRef that already settled a different order is refused.
func (s *Service) Settle(ctx context.Context, id, txRef string) (won bool, err error) {
	won, err = s.store.Settle(ctx, id, txRef)
	if err != nil {
		s.rec.IncCounter(metrics.MetricSettle, map[string]string{"outcome": "refused"})
		return false, err
	}

	outcome := "duplicate"
	if won {
		outcome = "settled"
		s.log.Info("order settled", map[string]any{"order": id, "txRef": txRef})
	}
	s.rec.IncCounter(metrics.MetricSettle, map[string]string{"outcome": outcome})
	return won, nil
}
