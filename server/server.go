// Package server exposes the gateway over HTTP: payment start, the
// verification/notify endpoint polled by the payment page, health and
// metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/hivepay/hivepay"
	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/types"
)

// PaymentGateway is the slice of the gateway facade the HTTP layer
// needs.
type PaymentGateway interface {
	StartPayment(ctx context.Context, in hivepay.StartPaymentInput) (*types.PaymentInstructions, error)
	Verify(ctx context.Context, orderID string) (types.Verdict, error)
}

type Server struct {
	gw         PaymentGateway
	log        logger.Logger
	httpServer *http.Server
}

// New builds the HTTP server on the given port.
func New(port int, gw PaymentGateway, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}

	s := &Server{gw: gw, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/payments/hive/start", s.handleStart)
	mux.HandleFunc("/payments/hive/notify", s.handleNotify)
	mux.HandleFunc("/payments/hive/notify/", s.handleNotify)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Info("gateway listening", map[string]any{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type startRequest struct {
	CartRef     string `json:"cartRef"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	PayCurrency string `json:"payCurrency"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload startRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		http.Error(w, "amount must be a positive decimal", http.StatusBadRequest)
		return
	}
	if payload.CartRef == "" {
		http.Error(w, "cartRef is required", http.StatusBadRequest)
		return
	}

	payCurrency := payload.PayCurrency
	if payCurrency == "" {
		payCurrency = payload.Currency
	}

	instructions, err := s.gw.StartPayment(r.Context(), hivepay.StartPaymentInput{
		CartRef:      payload.CartRef,
		Amount:       amount,
		FromCurrency: payload.Currency,
		PayCurrency:  types.Currency(payCurrency),
	})
	if err != nil {
		switch types.ErrorCode(err) {
		case types.ErrUnsupportedCurrency:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case types.ErrConfigMissing:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		case types.ErrPriceUnavailable:
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, "failed to start payment", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, instructions)
}

type notifyRequest struct {
	PaymentID string `json:"payment_id"`
	ID        string `json:"id"`
}

// handleNotify is the verification trigger. The order id arrives as the
// trailing path segment or, failing that, in the body. Paid and
// not-paid are both 200s; only a broken verification pipeline is a 500.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID := notifyOrderID(r)
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, types.Verdict{
			Status: types.VerdictError,
			Reason: "missing payment id",
		})
		return
	}

	verdict, err := s.gw.Verify(r.Context(), orderID)
	if err != nil {
		switch types.ErrorCode(err) {
		case types.ErrOrderNotFound:
			writeJSON(w, http.StatusNotFound, types.Verdict{
				Status: types.VerdictError,
				Reason: "payment not found",
			})
		case types.ErrMissingIdentifier:
			writeJSON(w, http.StatusBadRequest, types.Verdict{
				Status: types.VerdictError,
				Reason: "missing payment id",
			})
		default:
			writeJSON(w, http.StatusInternalServerError, types.Verdict{
				Status:  types.VerdictError,
				Message: err.Error(),
			})
		}
		return
	}

	status := http.StatusOK
	if verdict.Status == types.VerdictError {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, verdict)
}

func notifyOrderID(r *http.Request) string {
	const prefix = "/payments/hive/notify"
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest != "" {
		return rest
	}

	var payload notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return ""
	}
	if payload.PaymentID != "" {
		return payload.PaymentID
	}
	return payload.ID
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
