package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/clipforge/internal/compose"
	"github.com/keagan/clipforge/internal/config"
	"github.com/keagan/clipforge/internal/ffmpeg"
	"github.com/keagan/clipforge/internal/rank"
	"github.com/keagan/clipforge/internal/render"
	"github.com/keagan/clipforge/internal/timeline"
	"github.com/keagan/clipforge/pkg/util"
	"github.com/rs/zerolog"
)

// Pipeline turns long gameplay recordings into vertically-framed shorts.
// Videos are processed one at a time; all per-video state (clip handles,
// merged interval lists) is local to one processing pass. The random
// source is owned by the pipeline, so anyone parallelizing per-interval
// work must give each worker its own seeded source.
type Pipeline struct {
	logger     zerolog.Logger
	cfg        *config.Config
	exec       *ffmpeg.Executor
	detector   Detector
	ranker     rank.Strategy
	supervisor *render.Supervisor
	policy     render.FailPolicy
	rng        *rand.Rand
}

// Selection is the outcome of analysis for one video: the raw detected
// scenes, the merged intervals, and the ranked, truncated candidates that
// would be rendered.
type Selection struct {
	Source   string
	Info     *ffmpeg.VideoInfo
	Raw      []timeline.SceneInterval
	Combined []timeline.SceneInterval
	Ranked   []timeline.SceneInterval
}

// New creates a pipeline from validated configuration
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	exec, err := ffmpeg.New(logger, cfg.FFmpeg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	var ranker rank.Strategy = rank.ByDuration{}
	if cfg.Ranking == "action" {
		ranker = rank.NewByActionScore(logger, exec)
	}

	policy, err := render.ParsePolicy(cfg.Render.FailPolicy)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	supervisor := render.NewSupervisor(
		logger,
		ffmpegEncoder{exec: exec},
		cfg.Processing.MaxRetries,
		time.Duration(cfg.Render.AttemptTimeoutSec)*time.Second,
	)

	return &Pipeline{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		cfg:        cfg,
		exec:       exec,
		detector:   &sceneDetector{exec: exec},
		ranker:     ranker,
		supervisor: supervisor,
		policy:     policy,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// ProcessDirectory runs the pipeline over every regular file in inputDir.
// A failing video never aborts its siblings; under the propagate policy
// the collected failures surface after the last video finishes.
func (p *Pipeline) ProcessDirectory(ctx context.Context, inputDir, outputDir string) error {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(inputDir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no video files found in %s", inputDir)
	}

	if err := util.EnsureDir(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var failures []error
	for _, file := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.ProcessVideo(ctx, file, outputDir); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error().Err(err).Str("video", file).Msg("video processing failed")
			failures = append(failures, fmt.Errorf("%s: %w", filepath.Base(file), err))
		}
	}

	if p.policy == render.Propagate && len(failures) > 0 {
		return fmt.Errorf("%d of %d videos had failures: %w", len(failures), len(files), errors.Join(failures...))
	}
	return nil
}

// Analyze detects, merges, and ranks scenes for one video without
// rendering anything. All selection diagnostics are emitted here, before
// and independent of any encode work.
func (p *Pipeline) Analyze(ctx context.Context, videoPath string) (*Selection, error) {
	if !util.FileExists(videoPath) {
		return nil, fmt.Errorf("source file not found: %s", videoPath)
	}

	p.logger.Info().Str("video", filepath.Base(videoPath)).Msg("processing video")

	info, err := p.exec.ProbeVideo(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	p.logger.Info().Msg("detecting scenes...")
	raw, err := p.detector.Detect(ctx, videoPath, p.cfg.SceneThreshold)
	if err != nil {
		return nil, err
	}
	p.logScenes(zerolog.DebugLevel, "scene", raw)

	combined := timeline.CombineScenes(raw, p.cfg.Processing)
	p.logScenes(zerolog.InfoLevel, "combined scene", combined)

	ranked, err := p.ranker.Rank(ctx, videoPath, combined)
	if err != nil {
		return nil, fmt.Errorf("ranking failed: %w", err)
	}
	if len(ranked) > p.cfg.Processing.SceneLimit {
		ranked = ranked[:p.cfg.Processing.SceneLimit]
	}
	p.logScenes(zerolog.InfoLevel, "selected scene", ranked)

	return &Selection{
		Source:   videoPath,
		Info:     info,
		Raw:      raw,
		Combined: combined,
		Ranked:   ranked,
	}, nil
}

// ProcessVideo analyzes one video and renders a short for each selected
// interval. A failed clip never aborts its siblings.
func (p *Pipeline) ProcessVideo(ctx context.Context, videoPath, outputDir string) error {
	runID := uuid.NewString()[:8]
	logger := p.logger.With().Str("run", runID).Logger()

	selection, err := p.Analyze(ctx, videoPath)
	if err != nil {
		return err
	}

	src := compose.FromInfo(selection.Info)
	stem := util.Stem(videoPath)
	ext := filepath.Ext(videoPath)

	if len(selection.Ranked) == 0 {
		logger.Info().Msg("no interval survived merging, taking one window from the whole video")
		start, length, err := p.fallbackWindow(selection.Info)
		if err != nil {
			return err
		}
		return p.renderShort(ctx, logger, src, start, length, filepath.Join(outputDir, filepath.Base(videoPath)))
	}

	var failures []error
	for i, scene := range selection.Ranked {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		start, length := p.pickWindow(scene)
		outPath := filepath.Join(outputDir, fmt.Sprintf("%s scene-%d%s", stem, i, ext))

		if err := p.renderShort(ctx, logger, src, start, length, outPath); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures = append(failures, err)
		}
	}

	if p.policy == render.Propagate && len(failures) > 0 {
		return errors.Join(failures...)
	}
	return nil
}

// renderShort composes and renders one clip, optionally with a preview
func (p *Pipeline) renderShort(ctx context.Context, logger zerolog.Logger, src compose.Clip, start, length float64, outPath string) error {
	comp, err := compose.Compose(src, start, length, p.cfg.Processing)
	if err != nil {
		return fmt.Errorf("composition failed: %w", err)
	}

	logger.Info().
		Str("output", filepath.Base(outPath)).
		Float64("start", start).
		Float64("length", length).
		Bool("background_fill", comp.Background != nil).
		Msg("rendering short")

	if p.cfg.Previews {
		previewPath := outPath[:len(outPath)-len(filepath.Ext(outPath))] + ".jpg"
		if err := compose.RenderPreview(ctx, p.exec, comp, previewPath); err != nil {
			logger.Warn().Err(err).Msg("preview generation failed")
		}
	}

	return p.supervisor.Render(ctx, comp, outPath)
}

// pickWindow chooses a random short length within the configured bounds
// and a random start point inside the interval.
func (p *Pipeline) pickWindow(scene timeline.SceneInterval) (start, length float64) {
	cfg := p.cfg.Processing
	duration := int(math.Floor(scene.Duration()))

	maxLen := cfg.MaxShortLength
	if duration < maxLen {
		maxLen = duration
	}
	shortLen := p.randRange(cfg.MinShortLength, maxLen)

	minStart := int(math.Floor(scene.Start.Seconds))
	maxStart := int(math.Floor(scene.End.Seconds)) - shortLen
	return float64(p.randRange(minStart, maxStart)), float64(shortLen)
}

// fallbackWindow picks one window from the whole video when merging
// produced nothing usable.
func (p *Pipeline) fallbackWindow(info *ffmpeg.VideoInfo) (start, length float64, err error) {
	cfg := p.cfg.Processing
	duration := int(math.Floor(info.Duration.Seconds()))
	if duration <= 0 {
		return 0, 0, fmt.Errorf("video %s has no usable duration", info.FilePath)
	}

	shortLen := p.randRange(cfg.MinShortLength, cfg.MaxShortLength)
	if duration < cfg.MaxShortLength && duration < shortLen {
		shortLen = duration
	}

	minStart := duration - shortLen
	if minStart > 10 {
		minStart = 10
	}
	maxStart := duration - shortLen
	return float64(p.randRange(minStart, maxStart)), float64(shortLen), nil
}

// randRange returns a uniform value in [lo, hi]; a degenerate range
// collapses to lo.
func (p *Pipeline) randRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + p.rng.Intn(hi-lo+1)
}

// logScenes reports an interval list with index, duration, and start/end
// timecodes and frame numbers.
func (p *Pipeline) logScenes(level zerolog.Level, label string, scenes []timeline.SceneInterval) {
	p.logger.WithLevel(level).Int("count", len(scenes)).Msgf("%s list", label)
	for i, scene := range scenes {
		p.logger.WithLevel(level).
			Int("index", i+1).
			Float64("duration", scene.Duration()).
			Str("start", scene.Start.Timecode()).
			Int("start_frame", scene.Start.Frame).
			Str("end", scene.End.Timecode()).
			Int("end_frame", scene.End.Frame).
			Msg(label)
	}
}
