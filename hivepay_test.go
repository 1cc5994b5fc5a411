package hivepay

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivepay/hivepay/clients"
	"github.com/hivepay/hivepay/settlement"
	"github.com/hivepay/hivepay/types"
)

type stubChain struct {
	records []clients.RawRecord
	err     error
	calls   int
}

func (s *stubChain) FetchRecentTransfers(context.Context, string, int) ([]clients.RawRecord, error) {
	s.calls++
	return s.records, s.err
}

func transferRecord(to, amount, memo, txRef string) clients.RawRecord {
	return clients.RawRecord(`[0, ["transfer", {"from": "buyer", "to": "` + to +
		`", "amount": "` + amount + `", "memo": "` + memo + `"}], "` + txRef + `"]`)
}

func newGateway(t *testing.T, chain *stubChain) (*Gateway, *settlement.MemoryStore) {
	t.Helper()
	store := settlement.NewMemoryStore()
	gw, err := New(types.Config{
		ReceiveAccount: "shop",
		RPCNodeURL:     "https://api.hive.blog",
	}, store, WithChainClient(chain))
	require.NoError(t, err)
	return gw, store
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	_, err := New(types.Config{RPCNodeURL: "https://api.hive.blog"}, settlement.NewMemoryStore())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigMissing))
}

func TestVerifyWithinTolerance(t *testing.T) {
	chain := &stubChain{}
	gw, store := newGateway(t, chain)

	instr, err := gw.StartPayment(context.Background(), StartPaymentInput{
		CartRef:      "cart-9",
		Amount:       decimal.RequireFromString("5"),
		FromCurrency: "HBD",
		PayCurrency:  types.CurrencyHBD,
	})
	require.NoError(t, err)
	require.Equal(t, "5.000", instr.Amount)

	// A transfer 0.0004 over the expected amount, memo wrapped in prose.
	chain.records = []clients.RawRecord{
		transferRecord("shop", "5.0004 HBD", "payment ref "+instr.Memo, "abc123"),
	}

	verdict, err := gw.Verify(context.Background(), instr.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictPaid, verdict.Status)
	assert.Equal(t, "abc123", verdict.TxRef)

	intent, err := store.Get(context.Background(), instr.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderSettled, intent.Status)
	assert.Equal(t, "abc123", intent.SettledTxRef)
}

func TestVerifySettledSkipsChain(t *testing.T) {
	chain := &stubChain{}
	gw, _ := newGateway(t, chain)

	instr, err := gw.StartPayment(context.Background(), StartPaymentInput{
		CartRef:      "cart-1",
		Amount:       decimal.RequireFromString("5"),
		FromCurrency: "HBD",
		PayCurrency:  types.CurrencyHBD,
	})
	require.NoError(t, err)

	chain.records = []clients.RawRecord{
		transferRecord("shop", "5.000 HBD", instr.Memo, "tx1"),
	}

	_, err = gw.Verify(context.Background(), instr.OrderID)
	require.NoError(t, err)
	require.Equal(t, 1, chain.calls)

	// Re-verification of a settled order answers from the store.
	verdict, err := gw.Verify(context.Background(), instr.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictPaid, verdict.Status)
	assert.Equal(t, "tx1", verdict.TxRef)
	assert.Equal(t, 1, chain.calls)
}

func TestVerifyTxRefNotReusableAcrossOrders(t *testing.T) {
	chain := &stubChain{}
	gw, store := newGateway(t, chain)

	start := func(cart string) *types.PaymentInstructions {
		instr, err := gw.StartPayment(context.Background(), StartPaymentInput{
			CartRef:      cart,
			Amount:       decimal.RequireFromString("5"),
			FromCurrency: "HBD",
			PayCurrency:  types.CurrencyHBD,
		})
		require.NoError(t, err)
		return instr
	}
	first := start("cart-a")
	second := start("cart-b")

	chain.records = []clients.RawRecord{
		transferRecord("shop", "5.000 HBD", first.Memo, "tx-shared"),
	}
	verdict, err := gw.Verify(context.Background(), first.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.VerdictPaid, verdict.Status)

	// The same on-chain transfer cannot also pay the second order, even
	// if a provider record happens to carry the second memo.
	chain.records = []clients.RawRecord{
		transferRecord("shop", "5.000 HBD", second.Memo, "tx-shared"),
	}
	verdict, err = gw.Verify(context.Background(), second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictNotPaid, verdict.Status)

	intent, err := store.Get(context.Background(), second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderPending, intent.Status)
}

func TestVerifyChainFailureIsAnErrorVerdict(t *testing.T) {
	chain := &stubChain{err: types.NewGatewayError(types.ErrChainDataUnavailable, "all providers failed")}
	gw, store := newGateway(t, chain)

	instr, err := gw.StartPayment(context.Background(), StartPaymentInput{
		CartRef:      "cart-2",
		Amount:       decimal.RequireFromString("5"),
		FromCurrency: "HBD",
		PayCurrency:  types.CurrencyHBD,
	})
	require.NoError(t, err)

	verdict, err := gw.Verify(context.Background(), instr.OrderID)
	require.NoError(t, err, "a provider outage is reported through the verdict")
	assert.Equal(t, types.VerdictError, verdict.Status)
	assert.Equal(t, "chain data unavailable", verdict.Reason)

	intent, err := store.Get(context.Background(), instr.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderPending, intent.Status)
}

func TestVerifyCallerMistakes(t *testing.T) {
	gw, _ := newGateway(t, &stubChain{})

	_, err := gw.Verify(context.Background(), "")
	assert.True(t, types.IsCode(err, types.ErrMissingIdentifier))

	_, err = gw.Verify(context.Background(), "no-such-order")
	assert.True(t, types.IsCode(err, types.ErrOrderNotFound))
}

func TestStartPaymentUnsupportedCurrency(t *testing.T) {
	gw, _ := newGateway(t, &stubChain{})

	_, err := gw.StartPayment(context.Background(), StartPaymentInput{
		CartRef:     "cart-3",
		Amount:      decimal.RequireFromString("5"),
		PayCurrency: "DOGE",
	})
	assert.True(t, types.IsCode(err, types.ErrUnsupportedCurrency))
}
