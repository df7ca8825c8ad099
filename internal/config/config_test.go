package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 27.0, cfg.SceneThreshold)
	assert.Equal(t, "duration", cfg.Ranking)
	assert.Equal(t, 1, cfg.Processing.TargetRatioW)
	assert.Equal(t, 6, cfg.Processing.SceneLimit)
	assert.Equal(t, 3, cfg.Processing.MaxRetries)
	assert.Equal(t, 15, cfg.Processing.MinShortLength)
	assert.Equal(t, 179, cfg.Processing.MaxShortLength)
	assert.Equal(t, "log", cfg.Render.FailPolicy)
}

func TestMiddleShortLength(t *testing.T) {
	p := ProcessingConfig{MinShortLength: 15, MaxShortLength: 179}
	assert.Equal(t, 97.0, p.MiddleShortLength())

	p = ProcessingConfig{MinShortLength: 10, MaxShortLength: 21}
	assert.Equal(t, 15.5, p.MiddleShortLength())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ratio width", func(c *Config) { c.Processing.TargetRatioW = 0 }},
		{"negative ratio height", func(c *Config) { c.Processing.TargetRatioH = -1 }},
		{"zero scene limit", func(c *Config) { c.Processing.SceneLimit = 0 }},
		{"x center above one", func(c *Config) { c.Processing.XCenter = 1.5 }},
		{"negative y center", func(c *Config) { c.Processing.YCenter = -0.1 }},
		{"negative retries", func(c *Config) { c.Processing.MaxRetries = -1 }},
		{"zero min length", func(c *Config) { c.Processing.MinShortLength = 0 }},
		{"min above max", func(c *Config) { c.Processing.MinShortLength = 200 }},
		{"zero combined length", func(c *Config) { c.Processing.MaxCombinedSceneLength = 0 }},
		{"zero scene threshold", func(c *Config) { c.SceneThreshold = 0 }},
		{"unknown ranking", func(c *Config) { c.Ranking = "chaos" }},
		{"unknown fail policy", func(c *Config) { c.Render.FailPolicy = "panic" }},
		{"negative attempt timeout", func(c *Config) { c.Render.AttemptTimeoutSec = -5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
scene_threshold: 35
ranking: action
processing:
  scene_limit: 3
  min_short_length: 20
render:
  fail_policy: propagate
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 35.0, cfg.SceneThreshold)
	assert.Equal(t, "action", cfg.Ranking)
	assert.Equal(t, 3, cfg.Processing.SceneLimit)
	assert.Equal(t, 20, cfg.Processing.MinShortLength)
	assert.Equal(t, "propagate", cfg.Render.FailPolicy)

	// Untouched keys keep their defaults
	assert.Equal(t, 179, cfg.Processing.MaxShortLength)
	assert.Equal(t, "medium", cfg.FFmpeg.Preset)
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := defaultConfig()
	cfg.Ranking = "action"
	cfg.Processing.SceneLimit = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFromContextRoundTrip(t *testing.T) {
	cfg := defaultConfig()
	cfg.Ranking = "action"

	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))

	// No stored config falls back to defaults
	assert.Equal(t, defaultConfig(), FromContext(context.Background()))
}
