package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/common"
	"golang-trading-ensemble/pkg/logger"
	"golang-trading-ensemble/pkg/redis"
	"golang-trading-ensemble/pkg/utils"
)

// ModelStats summarizes the recorded calls of one model.
type ModelStats struct {
	Model        string  `json:"model"`
	Requests     int64   `json:"requests"`
	Success      int64   `json:"success"`
	Errors       int64   `json:"errors"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// EnsembleStats is the full metrics snapshot served by the stats endpoint.
type EnsembleStats struct {
	TotalRequests int64            `json:"total_requests"`
	Models        []ModelStats     `json:"models"`
	Decisions     map[string]int64 `json:"decisions"`
}

// MetricsTracker keeps per-model call counters and a sliding latency window
// in Redis. All writes are fire-and-forget: a Redis outage degrades metrics,
// never inference.
type MetricsTracker struct {
	redis  *redis.Client
	models []string
	log    *logger.Logger
}

func NewMetricsTracker(client *redis.Client, specs []dto.ModelSpec, log *logger.Logger) *MetricsTracker {
	models := make([]string, 0, len(specs))
	for _, spec := range specs {
		models = append(models, spec.Model)
	}
	return &MetricsTracker{
		redis:  client,
		models: models,
		log:    log,
	}
}

// RecordRequest counts one inference call and appends its latency sample.
func (t *MetricsTracker) RecordRequest(ctx context.Context, model string, elapsed time.Duration, success bool) {
	pipe := t.redis.Pipeline()
	pipe.Incr(ctx, common.RedisKeyTotalRequests)
	pipe.Incr(ctx, fmt.Sprintf(common.RedisKeyModelRequests, model))
	if success {
		pipe.Incr(ctx, fmt.Sprintf(common.RedisKeyModelSuccess, model))
		latencyKey := fmt.Sprintf(common.RedisKeyModelLatencies, model)
		pipe.LPush(ctx, latencyKey, elapsed.Milliseconds())
		pipe.LTrim(ctx, latencyKey, 0, common.MetricsLatencyWindow-1)
	} else {
		pipe.Incr(ctx, fmt.Sprintf(common.RedisKeyModelErrors, model))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		t.log.Debug("metrics write skipped", logger.ErrorField(err))
	}
}

// RecordDecision counts one served recommendation.
func (t *MetricsTracker) RecordDecision(ctx context.Context, recommendation dto.Recommendation) {
	key := fmt.Sprintf(common.RedisKeyDecisionCounter, strings.ToLower(string(recommendation)))
	if err := t.redis.Incr(ctx, key).Err(); err != nil {
		t.log.Debug("metrics write skipped", logger.ErrorField(err))
	}
}

// Stats reads back the full metrics snapshot.
func (t *MetricsTracker) Stats(ctx context.Context) (*EnsembleStats, error) {
	stats := &EnsembleStats{
		Decisions: make(map[string]int64, 3),
	}

	total, err := t.getCounter(ctx, common.RedisKeyTotalRequests)
	if err != nil {
		return nil, err
	}
	stats.TotalRequests = total

	for _, rec := range []dto.Recommendation{dto.RecommendationBuy, dto.RecommendationSell, dto.RecommendationHold} {
		name := strings.ToLower(string(rec))
		count, err := t.getCounter(ctx, fmt.Sprintf(common.RedisKeyDecisionCounter, name))
		if err != nil {
			return nil, err
		}
		stats.Decisions[name] = count
	}

	for _, model := range t.models {
		ms, err := t.modelStats(ctx, model)
		if err != nil {
			return nil, err
		}
		stats.Models = append(stats.Models, ms)
	}
	return stats, nil
}

func (t *MetricsTracker) modelStats(ctx context.Context, model string) (ModelStats, error) {
	ms := ModelStats{Model: model}

	var err error
	if ms.Requests, err = t.getCounter(ctx, fmt.Sprintf(common.RedisKeyModelRequests, model)); err != nil {
		return ms, err
	}
	if ms.Success, err = t.getCounter(ctx, fmt.Sprintf(common.RedisKeyModelSuccess, model)); err != nil {
		return ms, err
	}
	if ms.Errors, err = t.getCounter(ctx, fmt.Sprintf(common.RedisKeyModelErrors, model)); err != nil {
		return ms, err
	}
	if ms.Requests > 0 {
		ms.SuccessRate = utils.Round2(float64(ms.Success) / float64(ms.Requests))
	}

	samples, err := t.redis.LRange(ctx, fmt.Sprintf(common.RedisKeyModelLatencies, model), 0, -1).Result()
	if err != nil {
		return ms, err
	}
	if len(samples) > 0 {
		var sum float64
		for _, s := range samples {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				continue
			}
			sum += v
		}
		ms.AvgLatencyMs = utils.Round2(sum / float64(len(samples)))
	}
	return ms, nil
}

func (t *MetricsTracker) getCounter(ctx context.Context, key string) (int64, error) {
	v, err := t.redis.Get(ctx, key).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}
