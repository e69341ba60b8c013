package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCache_GetOrCompute(t *testing.T) {
	t.Run("Miss then hit", func(t *testing.T) {
		cache := NewResponseCache(time.Minute)
		calls := 0
		compute := func() (string, error) {
			calls++
			return "bullish", nil
		}

		v, hit, err := cache.GetOrCompute("model-a", "prompt", time.Minute, compute)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "bullish", v)

		v, hit, err = cache.GetOrCompute("model-a", "prompt", time.Minute, compute)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, "bullish", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("Distinct models do not collide", func(t *testing.T) {
		cache := NewResponseCache(time.Minute)
		_, _, err := cache.GetOrCompute("model-a", "prompt", time.Minute, func() (string, error) { return "a", nil })
		require.NoError(t, err)

		v, hit, err := cache.GetOrCompute("model-b", "prompt", time.Minute, func() (string, error) { return "b", nil })
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "b", v)
	})

	t.Run("Colon in model name does not alias another pair", func(t *testing.T) {
		cache := NewResponseCache(time.Minute)
		_, _, err := cache.GetOrCompute("llama3.1", "8b:prompt", time.Minute, func() (string, error) { return "short", nil })
		require.NoError(t, err)

		v, hit, err := cache.GetOrCompute("llama3.1:8b", "prompt", time.Minute, func() (string, error) { return "tagged", nil })
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "tagged", v)
	})

	t.Run("Errors are not cached", func(t *testing.T) {
		cache := NewResponseCache(time.Minute)
		boom := errors.New("boom")

		_, _, err := cache.GetOrCompute("model-a", "prompt", time.Minute, func() (string, error) { return "", boom })
		assert.ErrorIs(t, err, boom)

		v, hit, err := cache.GetOrCompute("model-a", "prompt", time.Minute, func() (string, error) { return "recovered", nil })
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "recovered", v)
	})

	t.Run("Expired entry is recomputed", func(t *testing.T) {
		cache := NewResponseCache(time.Minute)
		_, _, err := cache.GetOrCompute("model-a", "prompt", 10*time.Millisecond, func() (string, error) { return "old", nil })
		require.NoError(t, err)

		time.Sleep(30 * time.Millisecond)

		v, hit, err := cache.GetOrCompute("model-a", "prompt", time.Minute, func() (string, error) { return "fresh", nil })
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "fresh", v)
	})

	t.Run("Concurrent callers share one computation", func(t *testing.T) {
		cache := NewResponseCache(time.Minute)
		var computations atomic.Int32
		compute := func() (string, error) {
			computations.Add(1)
			time.Sleep(50 * time.Millisecond)
			return "shared", nil
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, _, err := cache.GetOrCompute("model-a", "prompt", time.Minute, compute)
				assert.NoError(t, err)
				assert.Equal(t, "shared", v)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), computations.Load())
	})

	t.Run("Flush drops entries", func(t *testing.T) {
		cache := NewResponseCache(time.Minute)
		_, _, err := cache.GetOrCompute("model-a", "prompt", time.Minute, func() (string, error) { return "v", nil })
		require.NoError(t, err)
		assert.Equal(t, 1, cache.ItemCount())

		cache.Flush()
		assert.Equal(t, 0, cache.ItemCount())
	})
}
