package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/internal/engine/repository"
	"golang-trading-ensemble/pkg/logger"
	"golang-trading-ensemble/pkg/utils"
)

// BatchService analyzes a list of symbols with bounded concurrency. One bad
// symbol never aborts the batch; its entry carries the error instead.
type BatchService struct {
	ensemble *EnsembleService
	market   repository.MarketDataRepository
	cfg      config.Batch
	log      *logger.Logger
}

// NewBatchService wires batch analysis. market is optional; without it every
// symbol must arrive with price data attached.
func NewBatchService(cfg *config.Config, ensemble *EnsembleService, market repository.MarketDataRepository, log *logger.Logger) *BatchService {
	return &BatchService{
		ensemble: ensemble,
		market:   market,
		cfg:      cfg.Batch,
		log:      log,
	}
}

// Analyze runs the ensemble for each request, preserving input order in the
// result. Requests beyond the configured maximum are rejected up front.
func (s *BatchService) Analyze(ctx context.Context, requests []dto.AnalysisRequest) (*dto.BatchResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidRequest)
	}
	if len(requests) > s.cfg.MaxSymbols {
		return nil, fmt.Errorf("%w: batch of %d exceeds maximum of %d", ErrInvalidRequest, len(requests), s.cfg.MaxSymbols)
	}

	start := time.Now()
	entries := make([]dto.BatchEntry, len(requests))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, req := range requests {
		g.Go(func() error {
			entries[i] = s.analyzeOne(ctx, req)
			return nil
		})
	}
	// Workers never return errors; failures live in the entries.
	_ = g.Wait()

	result := summarize(entries)
	result.TotalElapsedMs = time.Since(start).Milliseconds()

	s.log.Info("batch analysis finished",
		logger.IntField("symbols", len(requests)),
		logger.IntField("succeeded", result.SuccessCount),
		logger.IntField("buy", result.Counts.Buy),
		logger.IntField("sell", result.Counts.Sell),
		logger.IntField("hold", result.Counts.Hold),
		logger.DurationField("elapsed", time.Since(start)))
	return result, nil
}

// AnalyzeSymbols resolves bare symbols through the market data repository
// before running the batch.
func (s *BatchService) AnalyzeSymbols(ctx context.Context, symbols []string) (*dto.BatchResult, error) {
	requests := make([]dto.AnalysisRequest, 0, len(symbols))
	for _, symbol := range symbols {
		requests = append(requests, dto.AnalysisRequest{Symbol: strings.ToUpper(strings.TrimSpace(symbol))})
	}
	return s.Analyze(ctx, requests)
}

func (s *BatchService) analyzeOne(ctx context.Context, req dto.AnalysisRequest) dto.BatchEntry {
	entry := dto.BatchEntry{Symbol: strings.ToUpper(strings.TrimSpace(req.Symbol))}

	if req.Price == 0 && req.ChangePercent == 0 && s.market != nil && entry.Symbol != "" {
		snapshot, err := s.market.GetSnapshot(ctx, entry.Symbol)
		if err != nil {
			s.log.Warn("market snapshot failed",
				logger.StringField("symbol", entry.Symbol),
				logger.ErrorField(err))
			entry.Error = fmt.Sprintf("market data: %v", err)
			return entry
		}
		req.Price = snapshot.Price
		req.ChangePercent = snapshot.ChangePercent
		req.Volume = snapshot.Volume
	}

	result, err := s.ensemble.Decide(ctx, req)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Result = result
	return entry
}

func summarize(entries []dto.BatchEntry) *dto.BatchResult {
	result := &dto.BatchResult{
		Entries:   entries,
		Timestamp: time.Now().UTC(),
	}
	var confidenceSum float64
	for _, e := range entries {
		if e.Result == nil {
			continue
		}
		result.SuccessCount++
		confidenceSum += e.Result.Confidence
		switch e.Result.Recommendation {
		case dto.RecommendationBuy:
			result.Counts.Buy++
		case dto.RecommendationSell:
			result.Counts.Sell++
		case dto.RecommendationHold:
			result.Counts.Hold++
		}
	}
	if result.SuccessCount > 0 {
		result.AverageConfidence = utils.Round2(confidenceSum / float64(result.SuccessCount))
	}
	return result
}
