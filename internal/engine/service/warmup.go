package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang-trading-ensemble/internal/engine/dto"
	"golang-trading-ensemble/internal/engine/repository"
	"golang-trading-ensemble/pkg/logger"
)

// Warmup pre-loads every ensemble model with a trivial prompt so the first
// real analysis does not pay model load time. It runs at most once per
// process; outcomes are logged and otherwise ignored.
type Warmup struct {
	inference repository.InferenceRepository
	specs     []dto.ModelSpec
	timeout   time.Duration
	log       *logger.Logger

	once sync.Once
	done atomic.Bool
}

func NewWarmup(inference repository.InferenceRepository, specs []dto.ModelSpec, timeout time.Duration, log *logger.Logger) *Warmup {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Warmup{
		inference: inference,
		specs:     specs,
		timeout:   timeout,
		log:       log,
	}
}

// Ensure triggers the one-time warmup. Safe for concurrent callers; all of
// them block until the single run finishes.
func (w *Warmup) Ensure(ctx context.Context) {
	w.once.Do(func() {
		defer w.done.Store(true)
		w.run(ctx)
	})
}

// Done reports whether warmup has completed.
func (w *Warmup) Done() bool {
	return w.done.Load()
}

func (w *Warmup) run(ctx context.Context) {
	start := time.Now()
	w.log.Info("warming up ensemble models", logger.IntField("models", len(w.specs)))

	var wg sync.WaitGroup
	for _, spec := range w.specs {
		wg.Add(1)
		go func(spec dto.ModelSpec) {
			defer wg.Done()
			_, err := w.inference.Generate(ctx, spec.Model, WarmupPrompt(spec.Dimension), repository.GenerateOptions{
				Temperature: spec.Temperature,
				MaxTokens:   10,
				Stop:        StopSequences,
				Timeout:     w.timeout,
			})
			if err != nil {
				w.log.Debug("model warmup skipped",
					logger.StringField("model", spec.Model),
					logger.ErrorField(err))
				return
			}
			w.log.Debug("model warmed up", logger.StringField("model", spec.Model))
		}(spec)
	}
	wg.Wait()

	w.log.Info("ensemble warmup finished", logger.DurationField("elapsed", time.Since(start)))
}
