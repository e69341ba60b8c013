package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"golang-trading-ensemble/internal/engine/dto"
)

func TestInterpreter_JSONResponses(t *testing.T) {
	i := NewInterpreter()

	t.Run("Plain JSON", func(t *testing.T) {
		v := i.Interpret(dto.DimensionTechnical, `{"trend": "bullish", "confidence": 0.8, "analysis": "strong uptrend"}`)
		assert.True(t, v.Responded)
		assert.Equal(t, dto.TrendBullish, v.Label)
		assert.Equal(t, 0.8, v.Confidence)
		assert.Equal(t, 1.0, v.Signal)
		assert.Equal(t, "strong uptrend", v.Rationale)
	})

	t.Run("Fenced JSON", func(t *testing.T) {
		raw := "```json\n{\"risk_level\": \"low\", \"confidence\": 0.7, \"analysis\": \"stable\"}\n```"
		v := i.Interpret(dto.DimensionRisk, raw)
		assert.Equal(t, dto.RiskLow, v.Label)
		assert.Equal(t, 0.7, v.Confidence)
		assert.Equal(t, 0.5, v.Signal)
	})

	t.Run("JSON embedded in prose", func(t *testing.T) {
		raw := `Sure, here is my assessment: {"action": "buy", "confidence": 0.9, "analysis": "momentum entry"} hope that helps`
		v := i.Interpret(dto.DimensionStrategy, raw)
		assert.Equal(t, dto.ActionBuy, v.Label)
		assert.Equal(t, 0.9, v.Confidence)
		assert.Equal(t, 1.0, v.Signal)
	})

	t.Run("Sentiment with space in label", func(t *testing.T) {
		v := i.Interpret(dto.DimensionSentiment, `{"sentiment": "very bullish", "confidence": 0.85}`)
		assert.Equal(t, dto.SentimentVeryBullish, v.Label)
		assert.Equal(t, 1.0, v.Signal)
	})

	t.Run("Confidence clamped into unit interval", func(t *testing.T) {
		v := i.Interpret(dto.DimensionTechnical, `{"trend": "bearish", "confidence": 1.7}`)
		assert.Equal(t, 1.0, v.Confidence)

		v = i.Interpret(dto.DimensionTechnical, `{"trend": "bearish", "confidence": -0.3}`)
		assert.Equal(t, 0.0, v.Confidence)
	})

	t.Run("Missing confidence falls back to dimension default", func(t *testing.T) {
		v := i.Interpret(dto.DimensionSentiment, `{"sentiment": "bearish", "analysis": "weak tape"}`)
		assert.Equal(t, 0.6, v.Confidence)
		assert.Equal(t, -0.7, v.Signal)
	})
}

func TestInterpreter_KeywordFallback(t *testing.T) {
	i := NewInterpreter()

	t.Run("Technical bearish free text", func(t *testing.T) {
		v := i.Interpret(dto.DimensionTechnical, "The chart looks quite bearish to me here.")
		assert.True(t, v.Responded)
		assert.Equal(t, dto.TrendBearish, v.Label)
		assert.Equal(t, 0.8, v.Confidence)
		assert.Equal(t, -1.0, v.Signal)
		assert.Greater(t, v.Confidence, 0.0)
	})

	t.Run("Sentiment very bullish beats bullish", func(t *testing.T) {
		v := i.Interpret(dto.DimensionSentiment, "Sentiment is very bullish across retail and institutions")
		assert.Equal(t, dto.SentimentVeryBullish, v.Label)
		assert.Equal(t, 0.6, v.Confidence)
	})

	t.Run("Sentiment bearish in malformed text", func(t *testing.T) {
		v := i.Interpret(dto.DimensionSentiment, `{"sentiment": broken json... market feels bearish`)
		assert.Equal(t, dto.SentimentBearish, v.Label)
		assert.Greater(t, v.Confidence, 0.0)
	})

	t.Run("Risk keywords", func(t *testing.T) {
		v := i.Interpret(dto.DimensionRisk, "This is a high risk setup given the volatility")
		assert.Equal(t, dto.RiskHigh, v.Label)
		assert.Equal(t, 0.7, v.Confidence)
		assert.Equal(t, -0.5, v.Signal)
	})

	t.Run("Bare risk tokens", func(t *testing.T) {
		v := i.Interpret(dto.DimensionRisk, "Risk is high given current volatility.")
		assert.Equal(t, dto.RiskHigh, v.Label)
		assert.Equal(t, 0.7, v.Confidence)
		assert.Equal(t, -0.5, v.Signal)

		v = i.Interpret(dto.DimensionRisk, "Downside exposure looks low for now")
		assert.Equal(t, dto.RiskLow, v.Label)
		assert.Equal(t, 0.5, v.Signal)
	})

	t.Run("Strategy keywords", func(t *testing.T) {
		v := i.Interpret(dto.DimensionStrategy, "I would sell into this rally")
		assert.Equal(t, dto.ActionSell, v.Label)
		assert.Equal(t, 0.7, v.Confidence)
	})

	t.Run("Unknown JSON label falls through to keywords", func(t *testing.T) {
		v := i.Interpret(dto.DimensionTechnical, `{"trend": "sideways-ish", "confidence": 0.9} but overall bullish`)
		assert.Equal(t, dto.TrendBullish, v.Label)
		assert.Equal(t, 0.8, v.Confidence)
	})
}

func TestInterpreter_UnparsableResponse(t *testing.T) {
	i := NewInterpreter()

	v := i.Interpret(dto.DimensionTechnical, "I cannot determine anything from this data.")
	assert.True(t, v.Responded)
	assert.Equal(t, dto.TrendNeutral, v.Label)
	assert.Equal(t, 0.5, v.Confidence)
	assert.Equal(t, 0.0, v.Signal)
	assert.Contains(t, v.Rationale, "cannot determine")
}

func TestInterpreter_RationaleTruncated(t *testing.T) {
	i := NewInterpreter()

	long := strings.Repeat("x", 400)
	v := i.Interpret(dto.DimensionStrategy, long)
	assert.LessOrEqual(t, len(v.Rationale), rationaleMaxLen+3)
	assert.True(t, strings.HasSuffix(v.Rationale, "..."))
}

func TestInterpreter_Absent(t *testing.T) {
	i := NewInterpreter()

	t.Run("With reason", func(t *testing.T) {
		v := i.Absent(dto.DimensionRisk, "model timed out")
		assert.False(t, v.Responded)
		assert.Equal(t, dto.RiskMedium, v.Label)
		assert.Equal(t, 0.0, v.Confidence)
		assert.Equal(t, 0.0, v.Signal)
		assert.Equal(t, "model timed out", v.Rationale)
	})

	t.Run("Default reason", func(t *testing.T) {
		v := i.Absent(dto.DimensionStrategy, "")
		assert.Equal(t, dto.ActionHold, v.Label)
		assert.Equal(t, "model unavailable", v.Rationale)
	})
}
