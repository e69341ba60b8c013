package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"golang-trading-ensemble/internal/engine/repository"
	"golang-trading-ensemble/pkg/logger"
)

func TestWarmup_Ensure(t *testing.T) {
	specs := ModelSpecsFromConfig(testConfig().Models)

	t.Run("Touches every model once", func(t *testing.T) {
		inference := newStubInference()
		w := NewWarmup(inference, specs, time.Second, logger.NewNop())

		assert.False(t, w.Done())
		w.Ensure(context.Background())
		assert.True(t, w.Done())

		for _, spec := range specs {
			assert.Equal(t, 1, inference.callCount(spec.Model))
		}
	})

	t.Run("Concurrent callers run warmup once", func(t *testing.T) {
		inference := newStubInference()
		inference.delays["tech-model"] = 20 * time.Millisecond
		w := NewWarmup(inference, specs, time.Second, logger.NewNop())

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Ensure(context.Background())
			}()
		}
		wg.Wait()

		for _, spec := range specs {
			assert.Equal(t, 1, inference.callCount(spec.Model))
		}
	})

	t.Run("Failures are ignored", func(t *testing.T) {
		inference := newStubInference()
		for _, spec := range specs {
			inference.errs[spec.Model] = repository.ErrInferenceUnavailable
		}
		w := NewWarmup(inference, specs, time.Second, logger.NewNop())

		w.Ensure(context.Background())
		assert.True(t, w.Done())
	})
}
