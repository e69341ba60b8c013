package service

import (
	"encoding/json"
	"strings"

	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/utils"
)

// modelReply is the superset of JSON shapes the dimension prompts ask for.
// Each dimension only fills the fields it cares about.
type modelReply struct {
	Trend      string   `json:"trend"`
	RiskLevel  string   `json:"risk_level"`
	Sentiment  string   `json:"sentiment"`
	Action     string   `json:"action"`
	Confidence *float64 `json:"confidence"`
	Analysis   string   `json:"analysis"`
}

// Interpreter turns raw model text into a PartialVerdict. Parsing is
// best-effort: structured JSON first, keyword scan second, neutral fallback
// last. A response never fails to interpret.
type Interpreter struct {
	keywordConfidence map[dto.Dimension]float64
}

func NewInterpreter() *Interpreter {
	return &Interpreter{
		keywordConfidence: map[dto.Dimension]float64{
			dto.DimensionTechnical: 0.8,
			dto.DimensionRisk:      0.7,
			dto.DimensionSentiment: 0.6,
			dto.DimensionStrategy:  0.7,
		},
	}
}

const rationaleMaxLen = 150

// Interpret parses one model response for the given dimension.
func (i *Interpreter) Interpret(dimension dto.Dimension, raw string) dto.PartialVerdict {
	verdict := dto.PartialVerdict{
		Dimension: dimension,
		Responded: true,
	}

	if reply, ok := parseReplyJSON(raw); ok {
		label := labelFromReply(dimension, reply)
		if label != "" {
			verdict.Label = label
			verdict.Confidence = confidenceOrDefault(reply.Confidence, i.keywordConfidence[dimension])
			verdict.Signal = dto.SignalFor(dimension, label)
			verdict.Rationale = rationaleOrDefault(reply.Analysis, raw)
			return verdict
		}
	}

	if label, ok := i.scanKeywords(dimension, raw); ok {
		verdict.Label = label
		verdict.Confidence = i.keywordConfidence[dimension]
		verdict.Signal = dto.SignalFor(dimension, label)
		verdict.Rationale = rationaleOrDefault("", raw)
		return verdict
	}

	verdict.Label = dto.NeutralLabel(dimension)
	verdict.Confidence = 0.5
	verdict.Signal = 0
	verdict.Rationale = rationaleOrDefault("", raw)
	return verdict
}

// Absent builds the verdict recorded for a model that never answered.
func (i *Interpreter) Absent(dimension dto.Dimension, reason string) dto.PartialVerdict {
	if reason == "" {
		reason = "model unavailable"
	}
	return dto.PartialVerdict{
		Dimension:  dimension,
		Label:      dto.NeutralLabel(dimension),
		Confidence: 0,
		Signal:     0,
		Rationale:  reason,
		Responded:  false,
	}
}

// parseReplyJSON strips markdown fences, extracts the outermost JSON object
// and unmarshals it. Models frequently wrap JSON in ```json fences or prose.
func parseReplyJSON(raw string) (modelReply, bool) {
	var reply modelReply

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return reply, false
	}

	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &reply); err != nil {
		return reply, false
	}
	return reply, true
}

func labelFromReply(dimension dto.Dimension, reply modelReply) string {
	var candidate string
	switch dimension {
	case dto.DimensionTechnical:
		candidate = reply.Trend
	case dto.DimensionRisk:
		candidate = reply.RiskLevel
	case dto.DimensionSentiment:
		candidate = reply.Sentiment
	case dto.DimensionStrategy:
		candidate = reply.Action
	}
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if !isKnownLabel(dimension, candidate) {
		return ""
	}
	return candidate
}

func isKnownLabel(dimension dto.Dimension, label string) bool {
	switch dimension {
	case dto.DimensionTechnical:
		return label == dto.TrendBullish || label == dto.TrendBearish || label == dto.TrendNeutral
	case dto.DimensionRisk:
		return label == dto.RiskLow || label == dto.RiskMedium || label == dto.RiskHigh
	case dto.DimensionSentiment:
		return label == dto.SentimentVeryBullish || label == dto.SentimentBullish ||
			label == dto.SentimentNeutral || label == dto.SentimentBearish || label == dto.SentimentVeryBearish
	case dto.DimensionStrategy:
		return label == dto.ActionBuy || label == dto.ActionSell || label == dto.ActionHold
	}
	return false
}

// scanKeywords is the fallback for free-text responses. Order matters: the
// more specific phrase is checked first ("very bullish" before "bullish").
func (i *Interpreter) scanKeywords(dimension dto.Dimension, raw string) (string, bool) {
	text := strings.ToLower(raw)
	switch dimension {
	case dto.DimensionTechnical:
		if strings.Contains(text, "bearish") {
			return dto.TrendBearish, true
		}
		if strings.Contains(text, "bullish") {
			return dto.TrendBullish, true
		}
		if strings.Contains(text, "neutral") {
			return dto.TrendNeutral, true
		}
	case dto.DimensionRisk:
		if strings.Contains(text, "high") || strings.Contains(text, "risky") {
			return dto.RiskHigh, true
		}
		if strings.Contains(text, "low") {
			return dto.RiskLow, true
		}
		if strings.Contains(text, "medium") || strings.Contains(text, "moderate") {
			return dto.RiskMedium, true
		}
	case dto.DimensionSentiment:
		if strings.Contains(text, "very bullish") || strings.Contains(text, "very_bullish") {
			return dto.SentimentVeryBullish, true
		}
		if strings.Contains(text, "very bearish") || strings.Contains(text, "very_bearish") {
			return dto.SentimentVeryBearish, true
		}
		if strings.Contains(text, "bearish") {
			return dto.SentimentBearish, true
		}
		if strings.Contains(text, "bullish") {
			return dto.SentimentBullish, true
		}
		if strings.Contains(text, "neutral") {
			return dto.SentimentNeutral, true
		}
	case dto.DimensionStrategy:
		if strings.Contains(text, "sell") {
			return dto.ActionSell, true
		}
		if strings.Contains(text, "buy") {
			return dto.ActionBuy, true
		}
		if strings.Contains(text, "hold") {
			return dto.ActionHold, true
		}
	}
	return "", false
}

func confidenceOrDefault(c *float64, fallback float64) float64 {
	if c == nil || !utils.IsFinite(*c) {
		return fallback
	}
	return utils.Clamp(*c, 0, 1)
}

func rationaleOrDefault(analysis, raw string) string {
	analysis = strings.TrimSpace(analysis)
	if analysis != "" {
		return utils.Truncate(analysis, rationaleMaxLen)
	}
	return utils.Truncate(strings.TrimSpace(raw), rationaleMaxLen)
}
