package common

const (
	// Redis key prefixes for model inference metrics.
	RedisKeyMetricsPrefix   = "ensemble.metrics"
	RedisKeyModelRequests   = "ensemble.metrics.model.%s.requests"
	RedisKeyModelSuccess    = "ensemble.metrics.model.%s.success"
	RedisKeyModelErrors     = "ensemble.metrics.model.%s.errors"
	RedisKeyModelLatencies  = "ensemble.metrics.model.%s.latencies"
	RedisKeyTotalRequests   = "ensemble.metrics.total_requests"
	RedisKeyDecisionCounter = "ensemble.metrics.decisions.%s"

	// Number of latency samples retained per model.
	MetricsLatencyWindow = 100
)
