package hivepay

import (
	"github.com/hivepay/hivepay/clients"
	"github.com/hivepay/hivepay/clock"
	"github.com/hivepay/hivepay/logger"
	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/settlement"
)

type Option func(*Gateway)

func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		g.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) {
		g.rec = r
	}
}

func WithClock(c clock.Clock) Option {
	return func(g *Gateway) {
		g.clk = c
	}
}

// WithChainClient swaps the default RPC-node client, e.g. for the
// explorer-backed client or a test fake.
func WithChainClient(c clients.ChainClient) Option {
	return func(g *Gateway) {
		g.chain = c
	}
}

// WithConverter swaps the price oracle implementation.
func WithConverter(c settlement.Converter) Option {
	return func(g *Gateway) {
		g.oracle = c
	}
}
