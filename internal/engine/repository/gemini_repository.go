package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiRepository is an implementation of InferenceRepository that uses the
// Google Gemini API. The model identifier configured per dimension is ignored
// here; Gemini serves every dimension with the single configured model.
type geminiRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
	metrics        MetricsRecorder
}

// NewGeminiRepository creates a new instance of geminiRepository.
func NewGeminiRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client, metrics MetricsRecorder) (InferenceRepository, error) {
	var requestLimiter *rate.Limiter
	if cfg.Gemini.MaxRequestPerMinute > 0 {
		secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
		requestLimiter = rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	}

	return &geminiRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		genAiClient:    genAiClient,
		metrics:        metrics,
	}, nil
}

// Generate sends one generation request to the Gemini API.
func (r *geminiRepository) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if r.requestLimiter != nil {
		if err := r.requestLimiter.Wait(ctx); err != nil {
			return "", r.classify(err)
		}
	}

	if r.genAiClient != nil {
		contents := []*genai.Content{genai.NewContentFromText(prompt, "user")}
		if tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil); err == nil {
			r.logger.Debug("Gemini token count", logger.IntField("total_tokens", int(tokenResp.TotalTokens)))
		}
	}

	payload := dto.GeminiAPIRequest{
		Contents: []dto.GeminiContent{{Parts: []dto.GeminiPart{{Text: prompt}}}},
		GenerationConfig: &dto.GeminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
			StopSequences:   opts.Stop,
		},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := fmt.Sprintf("%s/%s:generateContent?key=%s", r.cfg.Gemini.BaseURL, r.cfg.Gemini.Model, r.cfg.Gemini.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.record(ctx, time.Since(start), false)
		return "", r.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.record(ctx, time.Since(start), false)
		body, _ := io.ReadAll(resp.Body)
		r.logger.Warn("Received non-OK response from Gemini API",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(body)),
		)
		return "", fmt.Errorf("%w: status %d", ErrInferenceUnavailable, resp.StatusCode)
	}

	var geminiResp dto.GeminiAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		r.record(ctx, time.Since(start), false)
		return "", fmt.Errorf("%w: decode response: %v", ErrInferenceUnavailable, err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		r.record(ctx, time.Since(start), false)
		return "", fmt.Errorf("%w: no content in Gemini response", ErrInferenceUnavailable)
	}

	r.record(ctx, time.Since(start), true)
	return strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text), nil
}

// ListModels reports the single configured Gemini model. The Gemini API has
// no installed-model listing comparable to a local runtime, so availability
// reduces to having a key and a model configured.
func (r *geminiRepository) ListModels(ctx context.Context) ([]string, error) {
	if r.cfg.Gemini.APIKey == "" || r.cfg.Gemini.Model == "" {
		return nil, fmt.Errorf("%w: gemini not configured", ErrInferenceUnavailable)
	}
	return []string{r.cfg.Gemini.Model}, nil
}

func (r *geminiRepository) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrInferenceUnavailable, err)
}

func (r *geminiRepository) record(ctx context.Context, elapsed time.Duration, success bool) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRequest(ctx, r.cfg.Gemini.Model, elapsed, success)
}
