package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/types"
)

// ExplorerClient reads an explorer-style REST provider:
// GET /address/{account} lists recent transaction ids and
// GET /tx/{account}/{txid} returns the transaction with its outputs.
// It satisfies ChainClient so it can stand in for the RPC node when a
// deployment only has an explorer available.
type ExplorerClient struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
	rec     metrics.Recorder
}

// NewExplorerClient builds an explorer-backed chain client.
func NewExplorerClient(baseURL string, timeout time.Duration, log logger.Logger, rec metrics.Recorder) *ExplorerClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &ExplorerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
		rec:     rec,
	}
}

type explorerTx struct {
	TxID      string           `json:"txid"`
	Timestamp string           `json:"timestamp"`
	Outputs   []explorerOutput `json:"outputs"`
}

type explorerOutput struct {
	Address string `json:"address"`
	Value   string `json:"value"`
	Memo    string `json:"memo"`
	From    string `json:"from"`
}

// FetchRecentTransfers lists the account's recent transaction ids and
// flattens each transaction's outputs into flat raw records the
// normalizer recognizes. A transaction that fails to load is skipped;
// only a failing id listing makes the whole call unavailable.
func (c *ExplorerClient) FetchRecentTransfers(ctx context.Context, account string, limit int) ([]RawRecord, error) {
	ids, err := c.listTxIDs(ctx, account)
	if err != nil {
		return nil, types.NewGatewayError(types.ErrChainDataUnavailable, err.Error())
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	var records []RawRecord
	for _, id := range ids {
		tx, err := c.getTx(ctx, account, id)
		if err != nil {
			c.log.Warn("explorer transaction fetch failed", map[string]any{
				"txid":  id,
				"error": err.Error(),
			})
			continue
		}
		for _, out := range tx.Outputs {
			flat := map[string]string{
				"address":   out.Address,
				"value":     out.Value,
				"memo":      out.Memo,
				"from":      out.From,
				"txid":      tx.TxID,
				"timestamp": tx.Timestamp,
			}
			raw, err := json.Marshal(flat)
			if err != nil {
				continue
			}
			records = append(records, raw)
		}
	}
	return records, nil
}

func (c *ExplorerClient) listTxIDs(ctx context.Context, account string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/address/%s", c.baseURL, url.PathEscape(account))

	var ids []string
	if err := c.getJSON(ctx, endpoint, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *ExplorerClient) getTx(ctx context.Context, account, txid string) (*explorerTx, error) {
	endpoint := fmt.Sprintf("%s/tx/%s/%s", c.baseURL, url.PathEscape(account), url.PathEscape(txid))

	var tx explorerTx
	if err := c.getJSON(ctx, endpoint, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *ExplorerClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrExplorerRequestFailed, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.rec.ObserveLatency(metrics.MetricChainFetch, time.Since(start), map[string]string{"provider": "explorer"})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrExplorerRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: HTTP %d", ErrExplorerBadStatus, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
