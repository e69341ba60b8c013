package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/internal/engine/repository"
	"golang-trading-ensemble/pkg/logger"
	"golang-trading-ensemble/pkg/utils"
)

// DecisionRecorder receives one observation per served decision.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, recommendation dto.Recommendation)
}

// EnsembleService fans one analysis request out to every specialized model,
// joins whatever answered within the overall deadline, and aggregates the
// partial verdicts into a single weighted recommendation.
type EnsembleService struct {
	inference   repository.InferenceRepository
	news        repository.NewsRepository
	cache       *ResponseCache
	interpreter *Interpreter
	warmup      *Warmup
	decisions   DecisionRecorder
	log         *logger.Logger

	specs        []dto.ModelSpec
	ensembleCfg  config.Ensemble
	maxHeadlines int
}

// NewEnsembleService wires the decision pipeline. news, warmup and decisions
// are optional; pass nil to disable the corresponding step.
func NewEnsembleService(
	cfg *config.Config,
	inference repository.InferenceRepository,
	news repository.NewsRepository,
	cache *ResponseCache,
	interpreter *Interpreter,
	warmup *Warmup,
	decisions DecisionRecorder,
	log *logger.Logger,
) *EnsembleService {
	return &EnsembleService{
		inference:    inference,
		news:         news,
		cache:        cache,
		interpreter:  interpreter,
		warmup:       warmup,
		decisions:    decisions,
		log:          log,
		specs:        ModelSpecsFromConfig(cfg.Models),
		ensembleCfg:  cfg.Ensemble,
		maxHeadlines: cfg.News.MaxHeadlines,
	}
}

// ModelSpecsFromConfig flattens the per-dimension model configuration into
// the fan-out order used by the ensemble.
func ModelSpecsFromConfig(models config.Models) []dto.ModelSpec {
	toSpec := func(d dto.Dimension, m config.Model) dto.ModelSpec {
		return dto.ModelSpec{
			Dimension:   d,
			Model:       m.Model,
			Weight:      m.Weight,
			Temperature: m.Temperature,
			MaxTokens:   m.MaxTokens,
			Timeout:     m.Timeout,
		}
	}
	return []dto.ModelSpec{
		toSpec(dto.DimensionTechnical, models.Technical),
		toSpec(dto.DimensionRisk, models.Risk),
		toSpec(dto.DimensionSentiment, models.Sentiment),
		toSpec(dto.DimensionStrategy, models.Strategy),
	}
}

// Specs exposes the configured fan-out, used by warmup wiring and handlers.
func (s *EnsembleService) Specs() []dto.ModelSpec {
	return s.specs
}

type dimensionOutcome struct {
	verdict dto.PartialVerdict
	model   string
	cached  bool
	elapsed time.Duration
}

// Decide runs the full ensemble for one symbol. The only error it returns is
// ErrInvalidRequest; every inference failure degrades into an absent verdict
// instead.
func (s *EnsembleService) Decide(ctx context.Context, req dto.AnalysisRequest) (*dto.EnsembleResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))

	if s.warmup != nil {
		s.warmup.Ensure(ctx)
	}
	s.attachNewsContext(ctx, &req)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.ensembleCfg.OverallTimeout)
	defer cancel()

	outcomes := make(chan dimensionOutcome, len(s.specs))
	for _, spec := range s.specs {
		go s.analyzeDimension(ctx, spec, req, outcomes)
	}

	verdicts := make(map[dto.Dimension]dto.PartialVerdict, len(s.specs))
collect:
	for range s.specs {
		select {
		case o := <-outcomes:
			verdicts[o.verdict.Dimension] = o.verdict
			s.log.Debug("dimension verdict",
				logger.StringField("symbol", req.Symbol),
				logger.StringField("dimension", string(o.verdict.Dimension)),
				logger.StringField("model", o.model),
				logger.StringField("label", o.verdict.Label),
				logger.Field("responded", o.verdict.Responded),
				logger.Field("cached", o.cached),
				logger.DurationField("elapsed", o.elapsed))
		case <-ctx.Done():
			break collect
		}
	}
	for _, spec := range s.specs {
		if _, ok := verdicts[spec.Dimension]; !ok {
			verdicts[spec.Dimension] = s.interpreter.Absent(spec.Dimension, "overall deadline exceeded")
		}
	}

	result := s.aggregate(req, verdicts)
	result.ElapsedMs = time.Since(start).Milliseconds()

	if s.decisions != nil {
		// The overall deadline may already be spent by now; record on a
		// fresh context so the counter write still lands.
		recordCtx, recordCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		s.decisions.RecordDecision(recordCtx, result.Recommendation)
		recordCancel()
	}
	s.log.Info("ensemble decision",
		logger.StringField("symbol", result.Symbol),
		logger.StringField("recommendation", string(result.Recommendation)),
		logger.Float64Field("confidence", result.Confidence),
		logger.Float64Field("score", result.DecisionScore),
		logger.IntField("responded", result.RespondedCount),
		logger.IntField("total", result.TotalCount))
	return result, nil
}

func (s *EnsembleService) analyzeDimension(ctx context.Context, spec dto.ModelSpec, req dto.AnalysisRequest, out chan<- dimensionOutcome) {
	start := time.Now()
	prompt := BuildPrompt(spec.Dimension, req)

	raw, cached, err := s.cache.GetOrCompute(spec.Model, prompt, s.ensembleCfg.CacheTTL, func() (string, error) {
		return s.inference.Generate(ctx, spec.Model, prompt, repository.GenerateOptions{
			Temperature: spec.Temperature,
			MaxTokens:   spec.MaxTokens,
			Stop:        StopSequences,
			Timeout:     spec.Timeout,
		})
	})

	o := dimensionOutcome{model: spec.Model, cached: cached, elapsed: time.Since(start)}
	if err != nil {
		o.verdict = s.interpreter.Absent(spec.Dimension, absenceReason(err))
	} else {
		o.verdict = s.interpreter.Interpret(spec.Dimension, raw)
	}
	out <- o
}

func absenceReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrInferenceTimeout):
		return "model timed out"
	case errors.Is(err, repository.ErrInferenceUnavailable):
		return "model unavailable"
	default:
		return fmt.Sprintf("model error: %v", err)
	}
}

// aggregate folds the partial verdicts into a decision. The score is the
// weight-normalized sum of signal*confidence over responding models only, so
// a missing model never drags the decision toward neutral by itself.
func (s *EnsembleService) aggregate(req dto.AnalysisRequest, verdicts map[dto.Dimension]dto.PartialVerdict) *dto.EnsembleResult {
	var score, respondedWeight float64
	responded := 0
	for _, spec := range s.specs {
		v := verdicts[spec.Dimension]
		if !v.Responded {
			continue
		}
		responded++
		respondedWeight += spec.Weight
		score += v.Signal * v.Confidence * spec.Weight
	}
	if respondedWeight > 0 {
		score /= respondedWeight
	}

	recommendation := dto.RecommendationHold
	switch {
	case score > s.ensembleCfg.DecisionThreshold:
		recommendation = dto.RecommendationBuy
	case score < -s.ensembleCfg.DecisionThreshold:
		recommendation = dto.RecommendationSell
	}

	confidence := math.Abs(score)
	if responded >= s.ensembleCfg.AgreementMinResponses {
		confidence = math.Min(confidence*s.ensembleCfg.AgreementBoost, s.ensembleCfg.MaxConfidence)
	}

	return &dto.EnsembleResult{
		Symbol:         req.Symbol,
		Price:          req.Price,
		ChangePercent:  req.ChangePercent,
		Recommendation: recommendation,
		Confidence:     utils.Round2(confidence),
		DecisionScore:  utils.Round2(score),
		Verdicts:       verdicts,
		RespondedCount: responded,
		TotalCount:     len(s.specs),
		Timestamp:      time.Now().UTC(),
	}
}

// attachNewsContext fills ExtraContext with recent headlines when a news
// feed is configured and the caller supplied none.
func (s *EnsembleService) attachNewsContext(ctx context.Context, req *dto.AnalysisRequest) {
	if s.news == nil || strings.TrimSpace(req.ExtraContext) != "" {
		return
	}
	headlines, err := s.news.Headlines(ctx, req.Symbol, s.maxHeadlines)
	if err != nil {
		s.log.Debug("news context skipped",
			logger.StringField("symbol", req.Symbol),
			logger.ErrorField(err))
		return
	}
	if len(headlines) == 0 {
		return
	}
	var b strings.Builder
	for _, h := range headlines {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	req.ExtraContext = b.String()
}

// Available reports whether the inference backend answers and serves every
// configured model. The returned list holds the configured models that are
// present, so callers can tell which ones are missing.
func (s *EnsembleService) Available(ctx context.Context) (bool, []string, error) {
	served, err := s.inference.ListModels(ctx)
	if err != nil {
		return false, nil, err
	}
	index := make(map[string]struct{}, len(served))
	for _, m := range served {
		index[m] = struct{}{}
	}
	var present []string
	for _, spec := range s.specs {
		if _, ok := index[spec.Model]; ok {
			present = append(present, spec.Model)
		}
	}
	return len(s.specs) > 0 && len(present) == len(s.specs), present, nil
}
