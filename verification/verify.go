package verification

import (
	"context"

	"github.com/hivepay/hivepay/clients"
	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/types"
)

// Service runs one verification pass: fetch recent account history,
// normalize it, and evaluate the intent against it. It is stateless;
// settlement is the caller's concern.
type Service struct {
	chain clients.ChainClient
	cfg   types.Config
	log   logger.Logger
	rec   metrics.Recorder
}

// NewService builds a verification service over the given chain client.
func NewService(chain clients.ChainClient, cfg types.Config, log logger.Logger, rec metrics.Recorder) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{chain: chain, cfg: cfg.Defaulted(), log: log, rec: rec}
}

// Verify fetches and scans the receive account's history for a transfer
// satisfying the intent. A nil error with Matched=false means the
// payment has not been observed yet; an error means the chain could not
// be consulted at all.
func (s *Service) Verify(ctx context.Context, intent *types.OrderIntent) (types.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	raws, err := s.chain.FetchRecentTransfers(ctx, s.cfg.ReceiveAccount, s.cfg.HistoryLimit)
	if err != nil {
		s.rec.IncCounter(metrics.MetricChainFetch, map[string]string{"outcome": "unavailable"})
		return types.MatchResult{}, err
	}

	transfers := clients.NormalizeAll(raws)
	s.log.Debug("account history scanned", map[string]any{
		"order":     intent.ID,
		"raw":       len(raws),
		"transfers": len(transfers),
	})

	result := Evaluate(intent, transfers, s.cfg.ReceiveAccount)
	outcome := "no_match"
	if result.Matched {
		outcome = "match"
	}
	s.rec.IncCounter(metrics.MetricVerify, map[string]string{"outcome": outcome})

	return result, nil
}
