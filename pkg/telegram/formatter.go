package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-trading-ensemble/internal/engine/dto"
)

func recommendationEmoji(rec dto.Recommendation) string {
	switch rec {
	case dto.RecommendationBuy:
		return "🟢"
	case dto.RecommendationSell:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatDecisionMessage renders one ensemble decision as a Telegram message.
func FormatDecisionMessage(result *dto.EnsembleResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s — %s*\n", recommendationEmoji(result.Recommendation), result.Symbol, result.Recommendation)
	fmt.Fprintf(&b, "Price: $%.2f (%+.2f%%)\n", result.Price, result.ChangePercent)
	fmt.Fprintf(&b, "Confidence: %.0f%% | Score: %.2f\n", result.Confidence*100, result.DecisionScore)
	fmt.Fprintf(&b, "Models responded: %d/%d\n", result.RespondedCount, result.TotalCount)

	for _, dim := range dto.AllDimensions {
		v, ok := result.Verdicts[dim]
		if !ok || !v.Responded {
			continue
		}
		fmt.Fprintf(&b, "• %s: %s (%.0f%%)\n", dim, v.Label, v.Confidence*100)
	}

	fmt.Fprintf(&b, "_%s_", result.Timestamp.Format(time.RFC1123))
	return b.String()
}

// FormatBatchSummaryMessage renders a batch run summary.
func FormatBatchSummaryMessage(result *dto.BatchResult) string {
	var b strings.Builder
	b.WriteString("📊 *Watchlist summary*\n")
	fmt.Fprintf(&b, "Analyzed: %d | Succeeded: %d\n", len(result.Entries), result.SuccessCount)
	fmt.Fprintf(&b, "🟢 Buy: %d | 🔴 Sell: %d | ⚪ Hold: %d\n", result.Counts.Buy, result.Counts.Sell, result.Counts.Hold)
	if result.SuccessCount > 0 {
		fmt.Fprintf(&b, "Avg confidence: %.0f%%\n", result.AverageConfidence*100)
	}
	fmt.Fprintf(&b, "_%s_", result.Timestamp.Format(time.RFC1123))
	return b.String()
}

// FormatErrorAlertMessage renders an operational failure alert.
func FormatErrorAlertMessage(subject string, err error) string {
	return fmt.Sprintf("⚠️ *%s*\n`%v`", subject, err)
}
