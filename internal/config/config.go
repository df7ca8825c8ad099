package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Directories
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`

	// Content-change sensitivity handed to the scene detector. Expressed on
	// the 0-100 content scale; the ffmpeg scene filter wants 0-1, so the
	// detector divides by 100.
	SceneThreshold float64 `yaml:"scene_threshold"`

	// Ranking strategy for combined scenes: "duration" or "action"
	Ranking string `yaml:"ranking"`

	// Seed for the start-point random source; 0 seeds from the clock
	Seed int64 `yaml:"seed"`

	// Write a composed keyframe preview next to each rendered short
	Previews bool `yaml:"previews"`

	Processing ProcessingConfig `yaml:"processing"`
	FFmpeg     FFmpegConfig     `yaml:"ffmpeg"`
	Render     RenderConfig     `yaml:"render"`
}

// ProcessingConfig is the tunable core of the clip pipeline. It is created
// once per run and never mutated.
type ProcessingConfig struct {
	TargetRatioW int     `yaml:"target_ratio_w"`
	TargetRatioH int     `yaml:"target_ratio_h"`
	SceneLimit   int     `yaml:"scene_limit"`
	XCenter      float64 `yaml:"x_center"`
	YCenter      float64 `yaml:"y_center"`
	MaxRetries   int     `yaml:"max_retries"`

	// Short length bounds, in seconds
	MinShortLength         int `yaml:"min_short_length"`
	MaxShortLength         int `yaml:"max_short_length"`
	MaxCombinedSceneLength int `yaml:"max_combined_scene_length"`
}

// MiddleShortLength returns the midpoint between the min and max short
// lengths. Merged scenes below this duration are discarded.
func (p ProcessingConfig) MiddleShortLength() float64 {
	return float64(p.MinShortLength+p.MaxShortLength) / 2
}

type FFmpegConfig struct {
	Threads int    `yaml:"threads"`
	Preset  string `yaml:"preset"`
	CRF     int    `yaml:"crf"`
}

type RenderConfig struct {
	// FailPolicy controls what happens after retries are exhausted:
	// "log" keeps going with the remaining clips, "propagate" surfaces the
	// failure in the process exit status. Sibling clips render either way.
	FailPolicy string `yaml:"fail_policy"`

	// AttemptTimeoutSec bounds a single encode attempt; 0 disables
	AttemptTimeoutSec int `yaml:"attempt_timeout_sec"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations that would fail midway through a run.
// It runs before any detection or rendering work begins.
func (c *Config) Validate() error {
	p := c.Processing

	if p.TargetRatioW <= 0 || p.TargetRatioH <= 0 {
		return fmt.Errorf("target ratio must use positive integers, got %d:%d", p.TargetRatioW, p.TargetRatioH)
	}
	if p.SceneLimit <= 0 {
		return fmt.Errorf("scene limit must be positive, got %d", p.SceneLimit)
	}
	if p.XCenter < 0 || p.XCenter > 1 || p.YCenter < 0 || p.YCenter > 1 {
		return fmt.Errorf("crop center must be fractions in [0,1], got (%g, %g)", p.XCenter, p.YCenter)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", p.MaxRetries)
	}
	if p.MinShortLength <= 0 || p.MinShortLength > p.MaxShortLength {
		return fmt.Errorf("short length bounds must satisfy 0 < min <= max, got min=%d max=%d", p.MinShortLength, p.MaxShortLength)
	}
	if p.MaxCombinedSceneLength <= 0 {
		return fmt.Errorf("max combined scene length must be positive, got %d", p.MaxCombinedSceneLength)
	}
	if c.SceneThreshold <= 0 {
		return fmt.Errorf("scene threshold must be positive, got %g", c.SceneThreshold)
	}
	switch c.Ranking {
	case "duration", "action":
	default:
		return fmt.Errorf("unknown ranking strategy %q (want \"duration\" or \"action\")", c.Ranking)
	}
	switch c.Render.FailPolicy {
	case "log", "propagate":
	default:
		return fmt.Errorf("unknown fail policy %q (want \"log\" or \"propagate\")", c.Render.FailPolicy)
	}
	if c.Render.AttemptTimeoutSec < 0 {
		return fmt.Errorf("attempt timeout cannot be negative, got %d", c.Render.AttemptTimeoutSec)
	}

	return nil
}

func defaultConfig() *Config {
	return &Config{
		InputDir:       "./gameplay",
		OutputDir:      "./generated",
		SceneThreshold: 27.0,
		Ranking:        "duration",
		Processing: ProcessingConfig{
			TargetRatioW:           1,
			TargetRatioH:           1,
			SceneLimit:             6,
			XCenter:                0.5,
			YCenter:                0.5,
			MaxRetries:             3,
			MinShortLength:         15,
			MaxShortLength:         179,
			MaxCombinedSceneLength: 300,
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
			Preset:  "medium",
			CRF:     23,
		},
		Render: RenderConfig{
			FailPolicy:        "log",
			AttemptTimeoutSec: 0,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".clipforge", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
