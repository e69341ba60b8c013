package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/utils"
)

// ErrInvalidRequest marks a caller-supplied request that fails validation.
// It is the only error Decide surfaces.
var ErrInvalidRequest = errors.New("invalid analysis request")

// ValidateRequest checks the basic invariants of an AnalysisRequest.
func ValidateRequest(req dto.AnalysisRequest) error {
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
	}
	if !utils.IsFinite(req.Price) {
		return fmt.Errorf("%w: non-finite price", ErrInvalidRequest)
	}
	if !utils.IsFinite(req.ChangePercent) {
		return fmt.Errorf("%w: non-finite change percent", ErrInvalidRequest)
	}
	return nil
}

// BuildPrompt renders the prompt for one analysis dimension. Prompts are kept
// deliberately short and request a single small JSON object so model output
// stays cheap to generate and cheap to parse.
func BuildPrompt(dimension dto.Dimension, req dto.AnalysisRequest) string {
	switch dimension {
	case dto.DimensionTechnical:
		return buildTechnicalPrompt(req)
	case dto.DimensionRisk:
		return buildRiskPrompt(req)
	case dto.DimensionSentiment:
		return buildSentimentPrompt(req)
	case dto.DimensionStrategy:
		return buildStrategyPrompt(req)
	default:
		return ""
	}
}

func buildTechnicalPrompt(req dto.AnalysisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s technical analysis:\n", req.Symbol)
	fmt.Fprintf(&b, "Price: $%.2f, Change: %+.2f%%\n", req.Price, req.ChangePercent)
	if req.Volume != nil {
		fmt.Fprintf(&b, "Volume: %.0f\n", *req.Volume)
	}
	b.WriteString("\nRespond with one JSON object only:\n")
	b.WriteString(`{"trend": "bullish|bearish|neutral", "confidence": 0.0-1.0, "analysis": "one short sentence"}`)
	return b.String()
}

func buildRiskPrompt(req dto.AnalysisRequest) string {
	volatility := math.Abs(req.ChangePercent)
	var b strings.Builder
	fmt.Fprintf(&b, "%s risk assessment:\n", req.Symbol)
	fmt.Fprintf(&b, "Price: $%.2f, Volatility: %.2f%%\n", req.Price, volatility)
	b.WriteString("\nRespond with one JSON object only:\n")
	b.WriteString(`{"risk_level": "low|medium|high", "confidence": 0.0-1.0, "analysis": "one short sentence"}`)
	return b.String()
}

func buildSentimentPrompt(req dto.AnalysisRequest) string {
	momentum := "neutral"
	if req.ChangePercent > 0 {
		momentum = "positive"
	} else if req.ChangePercent < 0 {
		momentum = "negative"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s market sentiment:\n", req.Symbol)
	fmt.Fprintf(&b, "Price: $%.2f, Change: %+.2f%% (%s momentum)\n", req.Price, req.ChangePercent, momentum)
	if ctx := strings.TrimSpace(req.ExtraContext); ctx != "" {
		fmt.Fprintf(&b, "Recent headlines:\n%s\n", ctx)
	}
	b.WriteString("\nRespond with one JSON object only:\n")
	b.WriteString(`{"sentiment": "very_bullish|bullish|neutral|bearish|very_bearish", "confidence": 0.0-1.0, "analysis": "one short sentence"}`)
	return b.String()
}

func buildStrategyPrompt(req dto.AnalysisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s trading strategy:\n", req.Symbol)
	fmt.Fprintf(&b, "Price: $%.2f, Change: %+.2f%%\n", req.Price, req.ChangePercent)
	b.WriteString("\nRespond with one JSON object only:\n")
	b.WriteString(`{"action": "buy|sell|hold", "confidence": 0.0-1.0, "analysis": "one short sentence"}`)
	return b.String()
}

// WarmupPrompt returns the cheap placeholder prompt used to pre-load a model.
func WarmupPrompt(dimension dto.Dimension) string {
	switch dimension {
	case dto.DimensionTechnical:
		return "AAPL technical test"
	case dto.DimensionRisk:
		return "Risk assessment test"
	case dto.DimensionSentiment:
		return "Market sentiment test"
	case dto.DimensionStrategy:
		return "Strategy test"
	default:
		return "Test"
	}
}

// StopSequences are appended to every generation request to cut model output
// short once the answer is complete.
var StopSequences = []string{"\n\n", "---", "END"}
