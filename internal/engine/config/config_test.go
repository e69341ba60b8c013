package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	t.Run("Empty config gets full defaults", func(t *testing.T) {
		cfg := &Config{}
		cfg.applyDefaults()

		assert.Equal(t, 0.35, cfg.Ensemble.DecisionThreshold)
		assert.Equal(t, 1.2, cfg.Ensemble.AgreementBoost)
		assert.Equal(t, 3, cfg.Ensemble.AgreementMinResponses)
		assert.Equal(t, 0.95, cfg.Ensemble.MaxConfidence)
		assert.Equal(t, 90*time.Second, cfg.Ensemble.OverallTimeout)
		assert.Equal(t, time.Minute, cfg.Ensemble.CacheTTL)
		assert.Equal(t, 2*time.Second, cfg.Ensemble.Warmup.Timeout)
		assert.Equal(t, 20, cfg.Batch.MaxSymbols)
		assert.Equal(t, 5, cfg.Batch.MaxConcurrent)
		assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)

		assert.Equal(t, "llama3.1:8b", cfg.Models.Technical.Model)
		assert.Equal(t, "mistral:7b", cfg.Models.Risk.Model)
		assert.Equal(t, "phi3:mini", cfg.Models.Sentiment.Model)
		assert.Equal(t, "codellama:13b", cfg.Models.Strategy.Model)

		weightSum := cfg.Models.Technical.Weight + cfg.Models.Risk.Weight +
			cfg.Models.Sentiment.Weight + cfg.Models.Strategy.Weight
		assert.InDelta(t, 1.0, weightSum, 1e-9)

		assert.Equal(t, 30*time.Second, cfg.Models.Sentiment.Timeout)
		assert.Equal(t, 90*time.Second, cfg.Models.Strategy.Timeout)
	})

	t.Run("Explicit values are kept", func(t *testing.T) {
		cfg := &Config{}
		cfg.Ensemble.DecisionThreshold = 0.5
		cfg.Models.Technical.Model = "custom:latest"
		cfg.Models.Technical.Weight = 0.4
		cfg.applyDefaults()

		assert.Equal(t, 0.5, cfg.Ensemble.DecisionThreshold)
		assert.Equal(t, "custom:latest", cfg.Models.Technical.Model)
		assert.Equal(t, 0.4, cfg.Models.Technical.Weight)
		// untouched fields are still defaulted
		assert.Equal(t, 0.1, cfg.Models.Technical.Temperature)
		assert.Equal(t, "mistral:7b", cfg.Models.Risk.Model)
	})
}
