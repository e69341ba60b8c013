package dto

// AnalyzeRequest is the HTTP payload for a single-symbol analysis. Price and
// ChangePercent may be omitted when a market data provider is configured, in
// which case the server fills them from a live snapshot.
type AnalyzeRequest struct {
	Symbol        string   `json:"symbol"`
	Price         *float64 `json:"price,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
}

// BatchAnalyzeRequest is the HTTP payload for a batch analysis.
type BatchAnalyzeRequest struct {
	Stocks []AnalyzeRequest `json:"stocks"`
}

// AvailabilityResponse reports whether the configured models are reachable.
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// MarketSnapshot is the market data boundary's view of one symbol.
type MarketSnapshot struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	ChangePercent float64  `json:"change_percent"`
	Volume        *float64 `json:"volume,omitempty"`
}
