package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/types"
)

// Method names differ between node deployments; both are live on the
// public Hive API surface, so the client tries the account_history
// namespace first and falls back to the condenser namespace once.
const (
	methodAccountHistory   = "account_history_api.get_account_history"
	methodCondenserHistory = "condenser_api.get_account_history"
)

// HiveRPCClient queries a Hive JSON-RPC node for recent account
// history. Scan-on-demand: one primary attempt, one fallback, no
// retries beyond that.
type HiveRPCClient struct {
	nodeURL string
	http    *http.Client
	log     logger.Logger
	rec     metrics.Recorder
}

// NewHiveRPCClient builds a client for the given node base URL.
func NewHiveRPCClient(nodeURL string, timeout time.Duration, log logger.Logger, rec metrics.Recorder) *HiveRPCClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &HiveRPCClient{
		nodeURL: strings.TrimRight(nodeURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
		rec:     rec,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}

// FetchRecentTransfers returns the last limit operations for account as
// raw records. A start index of -1 asks the node for the newest window.
func (c *HiveRPCClient) FetchRecentTransfers(ctx context.Context, account string, limit int) ([]RawRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	records, primaryErr := c.call(ctx, methodAccountHistory, account, limit)
	if primaryErr == nil {
		return records, nil
	}

	c.log.Warn("primary history method failed, trying condenser fallback", map[string]any{
		"account": account,
		"error":   primaryErr.Error(),
	})

	records, fallbackErr := c.call(ctx, methodCondenserHistory, account, limit)
	if fallbackErr == nil {
		return records, nil
	}

	return nil, types.NewGatewayError(types.ErrChainDataUnavailable,
		fmt.Sprintf("%s: primary %v; fallback %v", ErrAllProvidersFailed, primaryErr, fallbackErr))
}

func (c *HiveRPCClient) call(ctx context.Context, method, account string, limit int) ([]RawRecord, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  []any{account, -1, limit},
		ID:      1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrRPCRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.rec.ObserveLatency(metrics.MetricChainFetch, time.Since(start), map[string]string{"provider": method})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrRPCRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: HTTP %d", ErrRPCBadStatus, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrRPCUnrecognizedBody, err)
	}

	records, err := historyRecords(rpcResp.Result)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// historyRecords pulls the operation list out of the result. Nodes
// either return a bare array or wrap it in {"history": [...]}.
func historyRecords(result json.RawMessage) ([]RawRecord, error) {
	if len(result) == 0 {
		return nil, fmt.Errorf("%s: empty result", ErrRPCUnrecognizedBody)
	}

	var list []RawRecord
	if err := json.Unmarshal(result, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		History []RawRecord `json:"history"`
	}
	if err := json.Unmarshal(result, &wrapped); err == nil && wrapped.History != nil {
		return wrapped.History, nil
	}

	return nil, fmt.Errorf("%s: result is neither a list nor a history object", ErrRPCUnrecognizedBody)
}
