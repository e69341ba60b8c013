package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/logger"
	"golang-trading-ensemble/pkg/telegram"
)

// WatchlistMonitor periodically re-analyzes a fixed symbol list and pushes
// high-confidence non-HOLD decisions to the notifier.
type WatchlistMonitor struct {
	batch    *BatchService
	notifier telegram.Notifier
	cfg      config.Watchlist
	log      *logger.Logger

	cron *cron.Cron
}

// NewWatchlistMonitor wires the periodic watchlist run. notifier is optional;
// without it decisions are only logged.
func NewWatchlistMonitor(cfg *config.Config, batch *BatchService, notifier telegram.Notifier, log *logger.Logger) *WatchlistMonitor {
	return &WatchlistMonitor{
		batch:    batch,
		notifier: notifier,
		cfg:      cfg.Watchlist,
		log:      log,
		cron:     cron.New(),
	}
}

// Start registers the cron entry and begins the schedule.
func (m *WatchlistMonitor) Start(ctx context.Context) error {
	if !m.cfg.Enabled || len(m.cfg.Symbols) == 0 {
		m.log.Info("watchlist monitor disabled")
		return nil
	}
	spec := m.cfg.Cron
	if spec == "" {
		spec = "0 * * * *"
	}
	if _, err := m.cron.AddFunc(spec, func() { m.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule watchlist run: %w", err)
	}
	m.cron.Start()
	m.log.Info("watchlist monitor started",
		logger.StringField("cron", spec),
		logger.IntField("symbols", len(m.cfg.Symbols)))
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (m *WatchlistMonitor) Stop() {
	<-m.cron.Stop().Done()
}

// Run executes one watchlist pass.
func (m *WatchlistMonitor) Run(ctx context.Context) {
	result, err := m.batch.AnalyzeSymbols(ctx, m.cfg.Symbols)
	if err != nil {
		m.log.Error("watchlist run failed", logger.ErrorField(err))
		m.notify(ctx, telegram.FormatErrorAlertMessage("Watchlist run failed", err))
		return
	}

	for _, entry := range result.Entries {
		if entry.Result == nil {
			continue
		}
		r := entry.Result
		if r.Recommendation == dto.RecommendationHold || r.Confidence < m.cfg.NotifyMinConfidence {
			continue
		}
		m.log.Info("watchlist signal",
			logger.StringField("symbol", r.Symbol),
			logger.StringField("recommendation", string(r.Recommendation)),
			logger.Float64Field("confidence", r.Confidence))
		m.notify(ctx, telegram.FormatDecisionMessage(r))
	}
	m.notify(ctx, telegram.FormatBatchSummaryMessage(result))
}

func (m *WatchlistMonitor) notify(ctx context.Context, text string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.SendMessage(ctx, text); err != nil {
		m.log.Warn("telegram notification failed", logger.ErrorField(err))
	}
}
