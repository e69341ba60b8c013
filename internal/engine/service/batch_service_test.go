package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/logger"
)

type stubMarket struct {
	snapshots map[string]*dto.MarketSnapshot
	err       error
}

func (s *stubMarket) GetSnapshot(ctx context.Context, symbol string) (*dto.MarketSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	snap, ok := s.snapshots[symbol]
	if !ok {
		return nil, errors.New("symbol not found")
	}
	return snap, nil
}

func bullishInference() *stubInference {
	inference := newStubInference()
	inference.responses["tech-model"] = `{"trend": "bullish", "confidence": 0.8}`
	inference.responses["risk-model"] = `{"risk_level": "low", "confidence": 0.7}`
	inference.responses["sentiment-model"] = `{"sentiment": "bullish", "confidence": 0.6}`
	inference.responses["strategy-model"] = `{"action": "buy", "confidence": 0.7}`
	return inference
}

func newTestBatch(cfg *config.Config, inference *stubInference, market *stubMarket) *BatchService {
	ensemble := newTestEnsemble(cfg, inference, nil)
	if market == nil {
		return NewBatchService(cfg, ensemble, nil, logger.NewNop())
	}
	return NewBatchService(cfg, ensemble, market, logger.NewNop())
}

func TestBatchService_Analyze(t *testing.T) {
	cfg := testConfig()
	cfg.Batch = config.Batch{MaxSymbols: 5, MaxConcurrent: 2}

	t.Run("Order preserved and failures isolated", func(t *testing.T) {
		svc := newTestBatch(cfg, bullishInference(), nil)

		requests := []dto.AnalysisRequest{
			{Symbol: "AAPL", Price: 150, ChangePercent: 1},
			{Symbol: "MSFT", Price: 420, ChangePercent: -0.5},
			{Symbol: "", Price: 10, ChangePercent: 0},
			{Symbol: "NVDA", Price: 900, ChangePercent: 3},
		}
		result, err := svc.Analyze(context.Background(), requests)
		require.NoError(t, err)
		require.Len(t, result.Entries, 4)

		assert.Equal(t, "AAPL", result.Entries[0].Symbol)
		assert.Equal(t, "MSFT", result.Entries[1].Symbol)
		assert.Equal(t, "NVDA", result.Entries[3].Symbol)

		assert.NotNil(t, result.Entries[0].Result)
		assert.Nil(t, result.Entries[2].Result)
		assert.NotEmpty(t, result.Entries[2].Error)

		assert.Equal(t, 3, result.SuccessCount)
		assert.Equal(t, 3, result.Counts.Buy)
		assert.Equal(t, 0, result.Counts.Sell)
		assert.Greater(t, result.AverageConfidence, 0.0)
	})

	t.Run("Empty batch rejected", func(t *testing.T) {
		svc := newTestBatch(cfg, bullishInference(), nil)
		_, err := svc.Analyze(context.Background(), nil)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("Oversized batch rejected", func(t *testing.T) {
		svc := newTestBatch(cfg, bullishInference(), nil)
		requests := make([]dto.AnalysisRequest, 6)
		for i := range requests {
			requests[i] = dto.AnalysisRequest{Symbol: "AAPL", Price: 150, ChangePercent: 1}
		}
		_, err := svc.Analyze(context.Background(), requests)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestBatchService_AnalyzeSymbols(t *testing.T) {
	cfg := testConfig()
	cfg.Batch = config.Batch{MaxSymbols: 5, MaxConcurrent: 2}

	t.Run("Symbols resolved through market data", func(t *testing.T) {
		market := &stubMarket{snapshots: map[string]*dto.MarketSnapshot{
			"AAPL": {Symbol: "AAPL", Price: 150.25, ChangePercent: 2.5},
		}}
		svc := newTestBatch(cfg, bullishInference(), market)

		result, err := svc.AnalyzeSymbols(context.Background(), []string{"aapl"})
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
		require.NotNil(t, result.Entries[0].Result)
		assert.Equal(t, "AAPL", result.Entries[0].Symbol)
		assert.Equal(t, 150.25, result.Entries[0].Result.Price)
	})

	t.Run("Snapshot failure recorded on the entry", func(t *testing.T) {
		market := &stubMarket{err: errors.New("brokerage down")}
		svc := newTestBatch(cfg, bullishInference(), market)

		result, err := svc.AnalyzeSymbols(context.Background(), []string{"AAPL"})
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
		assert.Nil(t, result.Entries[0].Result)
		assert.Contains(t, result.Entries[0].Error, "market data")
		assert.Equal(t, 0, result.SuccessCount)
	})
}
