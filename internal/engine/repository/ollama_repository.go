package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/logger"

	"golang.org/x/time/rate"
)

// ollamaRepository is an implementation of InferenceRepository that uses the
// Ollama HTTP API.
type ollamaRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	metrics        MetricsRecorder
}

// NewOllamaRepository creates a new instance of ollamaRepository. metrics may
// be nil when no tracker is configured.
func NewOllamaRepository(cfg *config.Config, log *logger.Logger, metrics MetricsRecorder) InferenceRepository {
	var requestLimiter *rate.Limiter
	if cfg.Ollama.MaxRequestPerMinute > 0 {
		secondsPerRequest := time.Minute / time.Duration(cfg.Ollama.MaxRequestPerMinute)
		requestLimiter = rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	}

	return &ollamaRepository{
		client: &http.Client{
			// Generous transport ceiling; the effective deadline is the
			// per-call timeout applied through the request context.
			Timeout: 120 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		metrics:        metrics,
	}
}

// Generate sends a single non-streaming generation request to Ollama.
func (r *ollamaRepository) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if r.requestLimiter != nil {
		if err := r.requestLimiter.Wait(ctx); err != nil {
			return "", r.classify(model, err)
		}
	}

	payload := dto.OllamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: dto.OllamaOptions{
			Temperature: opts.Temperature,
			TopP:        0.9,
			NumPredict:  opts.MaxTokens,
			Stop:        opts.Stop,
		},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := strings.TrimRight(r.cfg.Ollama.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.record(ctx, model, time.Since(start), false)
		cerr := r.classify(model, err)
		r.logger.Warn("Ollama generate failed",
			logger.StringField("model", model),
			logger.DurationField("elapsed", time.Since(start)),
			logger.ErrorField(cerr),
		)
		return "", cerr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.record(ctx, model, time.Since(start), false)
		r.logger.Warn("Received non-OK response from Ollama",
			logger.StringField("model", model),
			logger.IntField("status_code", resp.StatusCode),
		)
		return "", fmt.Errorf("%w: status %d", ErrInferenceUnavailable, resp.StatusCode)
	}

	var generateResp dto.OllamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generateResp); err != nil {
		r.record(ctx, model, time.Since(start), false)
		return "", fmt.Errorf("%w: decode response: %v", ErrInferenceUnavailable, err)
	}

	elapsed := time.Since(start)
	r.record(ctx, model, elapsed, true)
	r.logger.Debug("Ollama generate completed",
		logger.StringField("model", model),
		logger.DurationField("elapsed", elapsed),
	)

	return strings.TrimSpace(generateResp.Response), nil
}

// ListModels returns the names of the models installed on the Ollama host.
func (r *ollamaRepository) ListModels(ctx context.Context) ([]string, error) {
	apiURL := strings.TrimRight(r.cfg.Ollama.BaseURL, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, r.classify("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInferenceUnavailable, resp.StatusCode)
	}

	var tagsResp dto.OllamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrInferenceUnavailable, err)
	}

	names := make([]string, 0, len(tagsResp.Models))
	for _, m := range tagsResp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// classify maps transport errors onto the repository's sentinel errors.
func (r *ollamaRepository) classify(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: model %s: %v", ErrInferenceTimeout, model, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: model %s: %v", ErrInferenceTimeout, model, err)
	}
	return fmt.Errorf("%w: model %s: %v", ErrInferenceUnavailable, model, err)
}

func (r *ollamaRepository) record(ctx context.Context, model string, elapsed time.Duration, success bool) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRequest(ctx, model, elapsed, success)
}
