package repository

import (
	"context"
	"errors"
	"time"

	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/internal/entity"
)

var (
	// ErrInferenceTimeout marks a model call that exceeded its deadline.
	ErrInferenceTimeout = errors.New("inference timeout")
	// ErrInferenceUnavailable marks a transport or service failure.
	ErrInferenceUnavailable = errors.New("inference unavailable")
)

// GenerateOptions tunes one inference call. Timeout, when positive, bounds
// the call independently of any transport-level default.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Stop        []string
	Timeout     time.Duration
}

// InferenceRepository is the boundary to the external model inference
// service. Implementations never retry; retry policy, if any, belongs to
// the caller.
type InferenceRepository interface {
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// MetricsRecorder receives per-call observations from inference adapters.
// Recording is best-effort and must never fail a call.
type MetricsRecorder interface {
	RecordRequest(ctx context.Context, model string, elapsed time.Duration, success bool)
}

// MarketDataRepository is the brokerage boundary used to fill analysis
// inputs when the caller supplies only a symbol.
type MarketDataRepository interface {
	GetSnapshot(ctx context.Context, symbol string) (*dto.MarketSnapshot, error)
}

// NewsRepository fetches recent headlines used as extra context for the
// sentiment dimension.
type NewsRepository interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]string, error)
}

// EnsembleSignalRepository persists served decisions.
type EnsembleSignalRepository interface {
	Create(ctx context.Context, signal *entity.EnsembleSignal) error
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]entity.EnsembleSignal, error)
}
