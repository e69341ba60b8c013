package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/internal/engine/repository"
	"golang-trading-ensemble/internal/engine/service"
	"golang-trading-ensemble/internal/entity"
	"golang-trading-ensemble/pkg/logger"
)

// AnalysisHandler handles HTTP requests for ensemble analysis.
type AnalysisHandler struct {
	ensemble *service.EnsembleService
	batch    *service.BatchService
	metrics  *service.MetricsTracker
	market   repository.MarketDataRepository
	signals  repository.EnsembleSignalRepository
	logger   *logger.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler. metrics, market and
// signals are optional; the matching endpoints degrade when they are nil.
func NewAnalysisHandler(
	ensemble *service.EnsembleService,
	batch *service.BatchService,
	metrics *service.MetricsTracker,
	market repository.MarketDataRepository,
	signals repository.EnsembleSignalRepository,
	logger *logger.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		ensemble: ensemble,
		batch:    batch,
		metrics:  metrics,
		market:   market,
		signals:  signals,
		logger:   logger,
	}
}

// RegisterRoutes registers the analysis routes to the Echo group.
func (h *AnalysisHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Analyze)
	g.POST("/batch", h.AnalyzeBatch)
	g.GET("/availability", h.Availability)
	g.GET("/stats", h.Stats)
	g.GET("/signals/:symbol", h.Signals)
}

// Analyze runs the ensemble for one symbol.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	var req dto.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	ctx := c.Request().Context()
	analysisReq, err := h.toAnalysisRequest(ctx, req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	result, err := h.ensemble.Decide(ctx, analysisReq)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.logger.Error("ensemble analysis failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Analysis failed"})
	}

	h.persistSignal(ctx, result)
	return c.JSON(http.StatusOK, result)
}

// AnalyzeBatch runs the ensemble for a list of symbols.
func (h *AnalysisHandler) AnalyzeBatch(c echo.Context) error {
	var req dto.BatchAnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	ctx := c.Request().Context()
	requests := make([]dto.AnalysisRequest, 0, len(req.Stocks))
	for _, stock := range req.Stocks {
		requests = append(requests, dto.AnalysisRequest{
			Symbol:        stock.Symbol,
			Price:         derefOrZero(stock.Price),
			ChangePercent: derefOrZero(stock.ChangePercent),
			Volume:        stock.Volume,
		})
	}

	result, err := h.batch.Analyze(ctx, requests)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.logger.Error("batch analysis failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Batch analysis failed"})
	}
	for _, entry := range result.Entries {
		if entry.Result != nil {
			h.persistSignal(ctx, entry.Result)
		}
	}
	return c.JSON(http.StatusOK, result)
}

// Availability reports whether the inference backend serves the ensemble.
func (h *AnalysisHandler) Availability(c echo.Context) error {
	available, models, err := h.ensemble.Available(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"available": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"available": available, "models": models})
}

// Stats returns the recorded inference and decision metrics.
func (h *AnalysisHandler) Stats(c echo.Context) error {
	if h.metrics == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Metrics tracking is not configured"})
	}
	stats, err := h.metrics.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to read metrics", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to read metrics"})
	}
	return c.JSON(http.StatusOK, stats)
}

// Signals returns the recent persisted decisions for one symbol.
func (h *AnalysisHandler) Signals(c echo.Context) error {
	if h.signals == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Signal persistence is not configured"})
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid symbol"})
	}
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		limit = v
	}

	signals, err := h.signals.FindBySymbol(c.Request().Context(), symbol, limit)
	if err != nil {
		h.logger.Error("failed to load signals", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load signals"})
	}
	return c.JSON(http.StatusOK, signals)
}

// toAnalysisRequest fills missing price data from a live market snapshot.
func (h *AnalysisHandler) toAnalysisRequest(ctx context.Context, req dto.AnalyzeRequest) (dto.AnalysisRequest, error) {
	out := dto.AnalysisRequest{
		Symbol:        req.Symbol,
		Price:         derefOrZero(req.Price),
		ChangePercent: derefOrZero(req.ChangePercent),
		Volume:        req.Volume,
	}
	if req.Price != nil {
		return out, nil
	}
	if h.market == nil {
		return out, errors.New("price is required when no market data provider is configured")
	}
	snapshot, err := h.market.GetSnapshot(ctx, req.Symbol)
	if err != nil {
		return out, errors.New("failed to fetch market snapshot for symbol")
	}
	out.Price = snapshot.Price
	out.ChangePercent = snapshot.ChangePercent
	out.Volume = snapshot.Volume
	return out, nil
}

// persistSignal stores one served decision. Persistence is best-effort.
func (h *AnalysisHandler) persistSignal(ctx context.Context, result *dto.EnsembleResult) {
	if h.signals == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		h.logger.Warn("failed to encode signal", logger.ErrorField(err))
		return
	}
	signal := &entity.EnsembleSignal{
		Symbol:          result.Symbol,
		Recommendation:  string(result.Recommendation),
		Confidence:      result.Confidence,
		DecisionScore:   result.DecisionScore,
		RespondedModels: result.RespondedCount,
		TotalModels:     result.TotalCount,
		Data:            datatypes.JSON(data),
	}
	if err := h.signals.Create(ctx, signal); err != nil {
		h.logger.Warn("failed to persist signal",
			logger.StringField("symbol", result.Symbol),
			logger.ErrorField(err))
	}
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
