package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"golang-trading-ensemble/internal/engine/dto"
)

func TestValidateRequest(t *testing.T) {
	valid := dto.AnalysisRequest{Symbol: "AAPL", Price: 150.25, ChangePercent: 2.5}
	assert.NoError(t, ValidateRequest(valid))

	t.Run("Empty symbol", func(t *testing.T) {
		req := valid
		req.Symbol = "   "
		err := ValidateRequest(req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("NaN price", func(t *testing.T) {
		req := valid
		req.Price = math.NaN()
		assert.ErrorIs(t, ValidateRequest(req), ErrInvalidRequest)
	})

	t.Run("Infinite change percent", func(t *testing.T) {
		req := valid
		req.ChangePercent = math.Inf(1)
		assert.ErrorIs(t, ValidateRequest(req), ErrInvalidRequest)
	})
}

func TestBuildPrompt(t *testing.T) {
	volume := 1_250_000.0
	req := dto.AnalysisRequest{
		Symbol:        "AAPL",
		Price:         150.25,
		ChangePercent: -2.5,
		Volume:        &volume,
	}

	t.Run("Technical", func(t *testing.T) {
		p := BuildPrompt(dto.DimensionTechnical, req)
		assert.Contains(t, p, "AAPL")
		assert.Contains(t, p, "$150.25")
		assert.Contains(t, p, "-2.50%")
		assert.Contains(t, p, "1250000")
		assert.Contains(t, p, `"trend"`)
	})

	t.Run("Risk reports absolute volatility", func(t *testing.T) {
		p := BuildPrompt(dto.DimensionRisk, req)
		assert.Contains(t, p, "Volatility: 2.50%")
		assert.Contains(t, p, `"risk_level"`)
	})

	t.Run("Sentiment includes momentum direction", func(t *testing.T) {
		p := BuildPrompt(dto.DimensionSentiment, req)
		assert.Contains(t, p, "negative momentum")
		assert.Contains(t, p, `"sentiment"`)
	})

	t.Run("Sentiment includes extra context when present", func(t *testing.T) {
		withNews := req
		withNews.ExtraContext = "- Apple beats earnings estimates\n"
		p := BuildPrompt(dto.DimensionSentiment, withNews)
		assert.Contains(t, p, "Apple beats earnings estimates")
	})

	t.Run("Strategy", func(t *testing.T) {
		p := BuildPrompt(dto.DimensionStrategy, req)
		assert.Contains(t, p, `"action"`)
	})

	t.Run("Unknown dimension", func(t *testing.T) {
		assert.Empty(t, BuildPrompt(dto.Dimension("unknown"), req))
	})
}
