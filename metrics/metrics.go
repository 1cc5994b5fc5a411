// Package metrics defines the instrumentation contract for the gateway.
package metrics

import "time"

// Recorder receives counters and latencies from the verification and
// settlement paths.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Well-known metric names emitted by the gateway.
const (
	MetricVerify      = "verify"
	MetricSettle      = "settle"
	MetricChainFetch  = "chain_fetch"
	MetricOracleQuote = "oracle_quote"
)
