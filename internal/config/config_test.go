package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 7.0, cfg.Quality.PassThreshold)
	assert.Equal(t, 5.0, cfg.Quality.ReviseThreshold)
	assert.Equal(t, 0.75, cfg.Similarity.Threshold)
	assert.Equal(t, 0.6, cfg.Similarity.EditWeight)
	assert.Equal(t, 0.4, cfg.Similarity.ShingleWeight)
	assert.Equal(t, 3, cfg.Pipeline.MaxRevisionCycles)
	assert.Len(t, cfg.Generation.Categories, 5)

	tier2, ok := cfg.Distribution.Levels["tier2"]
	require.True(t, ok)
	assert.Equal(t, 0.60, tier2.Min)
	assert.Equal(t, 0.70, tier2.Max)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("revise above pass rejected", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Quality.ReviseThreshold = 9.0
		assert.Error(t, cfg.Validate())
	})

	t.Run("similarity threshold out of range", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Similarity.Threshold = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative revision cap rejected", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Pipeline.MaxRevisionCycles = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty categories rejected", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		cfg.Generation.Categories = nil
		assert.Error(t, cfg.Validate())
	})
}
