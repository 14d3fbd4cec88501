package redissource

import (
	"fmt"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client from a URL (e.g. "redis://localhost:6379")
// with the circuit breaker hook and, when m is non-nil, the metrics hook. It
// does not dial; an unreachable broker at startup is handled by the hub's
// reconnect loop like any other outage.
func NewClient(redisURL string, m *metrics.SourceMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	if m != nil {
		client.AddHook(NewMetricsHook(m))
	}
	client.AddHook(NewCircuitBreakerHook(m))
	return client, nil
}
