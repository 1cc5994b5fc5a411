package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivepay/hivepay"
	"github.com/hivepay/hivepay/clients"
	"github.com/hivepay/hivepay/settlement"
	"github.com/hivepay/hivepay/types"
)

type scriptedChain struct {
	records []clients.RawRecord
	err     error
	calls   int
}

func (s *scriptedChain) FetchRecentTransfers(context.Context, string, int) ([]clients.RawRecord, error) {
	s.calls++
	return s.records, s.err
}

func newTestServer(t *testing.T, chain clients.ChainClient) (*Server, *settlement.MemoryStore) {
	t.Helper()
	store := settlement.NewMemoryStore()
	gw, err := hivepay.New(types.Config{
		ReceiveAccount: "shop",
		RPCNodeURL:     "https://api.hive.blog",
	}, store, hivepay.WithChainClient(chain))
	require.NoError(t, err)
	return New(0, gw, nil), store
}

func startOrder(t *testing.T, srv *Server) types.PaymentInstructions {
	t.Helper()
	body := `{"cartRef": "cart-1", "amount": "5.000", "currency": "HBD"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/hive/start", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var instr types.PaymentInstructions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &instr))
	return instr
}

func notify(t *testing.T, srv *Server, target, body string) (*httptest.ResponseRecorder, types.Verdict) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var verdict types.Verdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	return w, verdict
}

func TestStartPaymentInstructions(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedChain{})

	instr := startOrder(t, srv)
	assert.Equal(t, "5.000", instr.Amount)
	assert.Equal(t, types.CurrencyHBD, instr.Currency)
	assert.Equal(t, "shop", instr.ReceiveAccount)
	assert.Len(t, instr.Memo, 12)
	assert.Contains(t, instr.TransferURI, "hive://transfer?to=shop&amount=5.000%20HBD&memo=")
	assert.Contains(t, instr.SignerURL, "hivesigner.com/sign/transfer")
	assert.Equal(t, "/payments/hive/notify/"+instr.OrderID, instr.PollURL)
}

func TestStartPaymentValidation(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedChain{})

	cases := map[string]string{
		"bad json":        `{`,
		"missing amount":  `{"cartRef": "c", "currency": "HBD"}`,
		"zero amount":     `{"cartRef": "c", "amount": "0", "currency": "HBD"}`,
		"missing cartRef": `{"amount": "5", "currency": "HBD"}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/payments/hive/start", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "case %s", name)
	}
}

func TestNotifyPaid(t *testing.T) {
	chain := &scriptedChain{}
	srv, store := newTestServer(t, chain)

	instr := startOrder(t, srv)
	chain.records = []clients.RawRecord{
		clients.RawRecord(`[1, ["transfer", {"from": "alice", "to": "shop", "amount": "5.000 HBD", "memo": "ref:` + instr.Memo + `"}], "tx77"]`),
	}

	w, verdict := notify(t, srv, instr.PollURL, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.VerdictPaid, verdict.Status)
	assert.Equal(t, "tx77", verdict.TxRef)

	intent, err := store.Get(context.Background(), instr.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderSettled, intent.Status)
}

func TestNotifyNotPaid(t *testing.T) {
	chain := &scriptedChain{records: []clients.RawRecord{
		clients.RawRecord(`[1, ["transfer", {"from": "alice", "to": "other", "amount": "5.000 HBD", "memo": "nope"}]]`),
	}}
	srv, _ := newTestServer(t, chain)

	instr := startOrder(t, srv)

	w, verdict := notify(t, srv, instr.PollURL, "")
	assert.Equal(t, http.StatusOK, w.Code, "not paid is a normal outcome, not an HTTP error")
	assert.Equal(t, types.VerdictNotPaid, verdict.Status)
	assert.Equal(t, "no matching transfer found", verdict.Reason)
}

func TestNotifyOrderIDFromBody(t *testing.T) {
	chain := &scriptedChain{}
	srv, _ := newTestServer(t, chain)
	instr := startOrder(t, srv)

	w, verdict := notify(t, srv, "/payments/hive/notify", `{"payment_id": "`+instr.OrderID+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.VerdictNotPaid, verdict.Status)
}

func TestNotifyMissingID(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedChain{})

	w, verdict := notify(t, srv, "/payments/hive/notify", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, types.VerdictError, verdict.Status)
}

func TestNotifyUnknownOrder(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedChain{})

	w, verdict := notify(t, srv, "/payments/hive/notify/no-such-order", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, types.VerdictError, verdict.Status)
}

func TestNotifyChainDown(t *testing.T) {
	chain := &scriptedChain{err: types.NewGatewayError(types.ErrChainDataUnavailable, "both providers down")}
	srv, store := newTestServer(t, chain)
	instr := startOrder(t, srv)

	w, verdict := notify(t, srv, instr.PollURL, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, types.VerdictError, verdict.Status)

	intent, err := store.Get(context.Background(), instr.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderPending, intent.Status, "provider outage leaves the order pending")
}

func TestNotifyMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedChain{})

	req := httptest.NewRequest(http.MethodGet, "/payments/hive/notify/some-id", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedChain{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
