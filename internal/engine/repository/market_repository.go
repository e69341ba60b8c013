package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/logger"
)

// alpacaMarketRepository fetches market snapshots from the Alpaca data API.
type alpacaMarketRepository struct {
	client *http.Client
	cfg    *config.Config
	logger *logger.Logger
}

// NewAlpacaMarketRepository creates a new instance of alpacaMarketRepository.
func NewAlpacaMarketRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	return &alpacaMarketRepository{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cfg:    cfg,
		logger: log,
	}
}

// alpacaSnapshotResponse is the subset of the Alpaca snapshot payload the
// engine needs.
type alpacaSnapshotResponse struct {
	LatestTrade struct {
		Price float64 `json:"p"`
	} `json:"latestTrade"`
	DailyBar struct {
		Open   float64 `json:"o"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
	} `json:"dailyBar"`
	PrevDailyBar struct {
		Close float64 `json:"c"`
	} `json:"prevDailyBar"`
}

// GetSnapshot returns the latest price, daily change percent and volume for
// one symbol.
func (r *alpacaMarketRepository) GetSnapshot(ctx context.Context, symbol string) (*dto.MarketSnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	apiURL := fmt.Sprintf("%s/v2/stocks/%s/snapshot", strings.TrimRight(r.cfg.Alpaca.BaseURL, "/"), symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", r.cfg.Alpaca.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", r.cfg.Alpaca.SecretKey)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Failed to fetch snapshot from Alpaca", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("failed to fetch snapshot from Alpaca: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Received non-OK response from Alpaca", logger.IntField("status_code", resp.StatusCode), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("received non-OK response from Alpaca: %d", resp.StatusCode)
	}

	var snapshot alpacaSnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode Alpaca snapshot: %w", err)
	}

	price := snapshot.LatestTrade.Price
	if price == 0 {
		price = snapshot.DailyBar.Close
	}
	changePercent := 0.0
	if snapshot.PrevDailyBar.Close > 0 {
		changePercent = (price - snapshot.PrevDailyBar.Close) / snapshot.PrevDailyBar.Close * 100
	}

	volume := snapshot.DailyBar.Volume
	return &dto.MarketSnapshot{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: changePercent,
		Volume:        &volume,
	}, nil
}
