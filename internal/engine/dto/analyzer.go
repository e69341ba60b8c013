package dto

import "time"

// Dimension is one independent axis of ensemble analysis.
type Dimension string

const (
	DimensionTechnical Dimension = "technical"
	DimensionRisk      Dimension = "risk"
	DimensionSentiment Dimension = "sentiment"
	DimensionStrategy  Dimension = "strategy"
)

// AllDimensions lists the dimensions in their reporting order.
var AllDimensions = []Dimension{DimensionTechnical, DimensionRisk, DimensionSentiment, DimensionStrategy}

// Recommendation is the final ensemble trading recommendation.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationHold Recommendation = "HOLD"
)

// Per-dimension verdict labels.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	SentimentVeryBullish = "very_bullish"
	SentimentBullish     = "bullish"
	SentimentNeutral     = "neutral"
	SentimentBearish     = "bearish"
	SentimentVeryBearish = "very_bearish"

	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// AnalysisRequest is the immutable input to one ensemble run.
type AnalysisRequest struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	ChangePercent float64  `json:"change_percent"`
	Volume        *float64 `json:"volume,omitempty"`
	ExtraContext  string   `json:"extra_context,omitempty"`
}

// ModelSpec binds one analysis dimension to a model and its call settings.
type ModelSpec struct {
	Dimension   Dimension     `json:"dimension"`
	Model       string        `json:"model"`
	Weight      float64       `json:"weight"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// PartialVerdict is one dimension's normalized opinion. Label holds the
// dimension-specific enum value (trend, risk level, sentiment or action);
// Signal is its direction mapped into [-1, 1] for aggregation. Responded is
// false when the verdict is a neutral default standing in for an absent or
// failed model call.
type PartialVerdict struct {
	Dimension  Dimension `json:"dimension"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Signal     float64   `json:"signal"`
	Rationale  string    `json:"rationale"`
	Responded  bool      `json:"responded"`
}

// EnsembleResult is the aggregated decision for one symbol. It is created
// fresh per run and never mutated afterwards.
type EnsembleResult struct {
	Symbol         string                       `json:"symbol"`
	Price          float64                      `json:"price"`
	ChangePercent  float64                      `json:"change_percent"`
	Recommendation Recommendation               `json:"recommendation"`
	Confidence     float64                      `json:"confidence"`
	DecisionScore  float64                      `json:"decision_score"`
	Verdicts       map[Dimension]PartialVerdict `json:"verdicts"`
	RespondedCount int                          `json:"responded_count"`
	TotalCount     int                          `json:"total_count"`
	ElapsedMs      int64                        `json:"elapsed_ms"`
	Timestamp      time.Time                    `json:"timestamp"`
}

// BatchEntry is the outcome for one symbol inside a batch run.
type BatchEntry struct {
	Symbol string          `json:"symbol"`
	Result *EnsembleResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchCounts aggregates recommendations across a batch.
type BatchCounts struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
	Hold int `json:"hold"`
}

// BatchResult collects per-symbol outcomes of a batch run in input order.
type BatchResult struct {
	Entries           []BatchEntry `json:"entries"`
	Counts            BatchCounts  `json:"counts"`
	SuccessCount      int          `json:"success_count"`
	AverageConfidence float64      `json:"average_confidence"`
	TotalElapsedMs    int64        `json:"total_elapsed_ms"`
	Timestamp         time.Time    `json:"timestamp"`
}

// SignalFor maps a dimension label onto its aggregation signal in [-1, 1].
func SignalFor(dimension Dimension, label string) float64 {
	switch dimension {
	case DimensionTechnical:
		switch label {
		case TrendBullish:
			return 1
		case TrendBearish:
			return -1
		}
	case DimensionRisk:
		switch label {
		case RiskLow:
			return 0.5
		case RiskHigh:
			return -0.5
		}
	case DimensionSentiment:
		switch label {
		case SentimentVeryBullish:
			return 1
		case SentimentBullish:
			return 0.7
		case SentimentBearish:
			return -0.7
		case SentimentVeryBearish:
			return -1
		}
	case DimensionStrategy:
		switch label {
		case ActionBuy:
			return 1
		case ActionSell:
			return -1
		}
	}
	return 0
}

// NeutralLabel returns the dimension's neutral enum value.
func NeutralLabel(dimension Dimension) string {
	switch dimension {
	case DimensionRisk:
		return RiskMedium
	case DimensionStrategy:
		return ActionHold
	default:
		return TrendNeutral
	}
}
