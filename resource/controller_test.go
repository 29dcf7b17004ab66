package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController(t *testing.T) {
	t.Run("NilControllerIsUnlimited", func(t *testing.T) {
		var c *Controller
		assert.True(t, c.TryAcquireMemory(1<<40))
		c.ReleaseMemory(1 << 40)
		require.NoError(t, c.AcquireRun(context.Background()))
		c.ReleaseRun()
		assert.Greater(t, c.Workers(), 0)
	})

	t.Run("MemoryAccounting", func(t *testing.T) {
		c := NewController(Config{MemoryLimitBytes: 1024})
		require.NoError(t, c.AcquireMemory(context.Background(), 512))
		assert.Equal(t, int64(512), c.MemoryUsage())

		assert.False(t, c.TryAcquireMemory(1024))
		assert.True(t, c.TryAcquireMemory(512))
		assert.Equal(t, int64(1024), c.MemoryUsage())

		c.ReleaseMemory(1024)
		assert.Equal(t, int64(0), c.MemoryUsage())
	})

	t.Run("TrackingWithoutLimit", func(t *testing.T) {
		c := NewController(Config{})
		assert.True(t, c.TryAcquireMemory(1 << 40))
		assert.Equal(t, int64(1<<40), c.MemoryUsage())
		c.ReleaseMemory(1 << 40)
	})

	t.Run("Workers", func(t *testing.T) {
		c := NewController(Config{MaxWorkers: 3})
		assert.Equal(t, 3, c.Workers())
	})
}
