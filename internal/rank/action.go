package rank

import (
	"context"
	"sort"

	"github.com/keagan/clipforge/internal/ffmpeg"
	"github.com/keagan/clipforge/internal/timeline"
	"github.com/rs/zerolog"
)

// AudioAnalyzer is the slice of the ffmpeg executor the action ranker
// needs, kept narrow so tests can fake it.
type AudioAnalyzer interface {
	DetectSilence(ctx context.Context, input string, noiseThreshold, minDuration float64) ([]ffmpeg.SilenceSegment, error)
	AnalyzeVolumeRange(ctx context.Context, input string, start, length float64) (*ffmpeg.VolumeStats, error)
}

// ByActionScore ranks scenes by audio energy instead of duration: the
// share of non-silent audio in the interval weighted with its volume
// dynamics. Sources without usable audio fall back to duration ranking.
type ByActionScore struct {
	logger zerolog.Logger
	audio  AudioAnalyzer

	// NoiseThreshold is the silencedetect floor in dB
	NoiseThreshold float64
	// MinSilence is the shortest pause counted as silence, in seconds
	MinSilence float64
}

func NewByActionScore(logger zerolog.Logger, audio AudioAnalyzer) *ByActionScore {
	return &ByActionScore{
		logger:         logger.With().Str("component", "action-ranker").Logger(),
		audio:          audio,
		NoiseThreshold: -30.0,
		MinSilence:     1.0,
	}
}

func (r *ByActionScore) Rank(ctx context.Context, source string, scenes []timeline.SceneInterval) ([]timeline.SceneInterval, error) {
	ranked := positive(scenes)
	if len(ranked) == 0 {
		return ranked, nil
	}

	silences, err := r.audio.DetectSilence(ctx, source, r.NoiseThreshold, r.MinSilence)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn().Err(err).Msg("audio analysis unavailable, ranking by duration")
		return ByDuration{}.Rank(ctx, source, ranked)
	}

	scores := make(map[timeline.SceneInterval]float64, len(ranked))
	for _, scene := range ranked {
		scores[scene] = r.score(ctx, source, scene, silences)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	return ranked, nil
}

// score combines the interval's non-silent share with its volume dynamics
func (r *ByActionScore) score(ctx context.Context, source string, scene timeline.SceneInterval, silences []ffmpeg.SilenceSegment) float64 {
	activity := 1 - silenceRatio(scene, silences)

	dynamics := 0.0
	if stats, err := r.audio.AnalyzeVolumeRange(ctx, source, scene.Start.Seconds, scene.Duration()); err == nil {
		dynamics = stats.MaxVolume - stats.MeanVolume
	} else {
		r.logger.Debug().Err(err).
			Str("start", scene.Start.Timecode()).
			Msg("volume analysis failed for interval")
	}

	norm := dynamics / 30.0
	if norm > 1 {
		norm = 1
	}
	if norm < 0 {
		norm = 0
	}

	score := 0.6*activity + 0.4*norm
	r.logger.Debug().
		Str("start", scene.Start.Timecode()).
		Str("end", scene.End.Timecode()).
		Float64("activity", activity).
		Float64("dynamics", dynamics).
		Float64("score", score).
		Msg("scored interval")
	return score
}

// silenceRatio is the fraction of the interval covered by silence
func silenceRatio(scene timeline.SceneInterval, silences []ffmpeg.SilenceSegment) float64 {
	duration := scene.Duration()
	if duration <= 0 {
		return 1
	}

	silent := 0.0
	for _, s := range silences {
		start := s.Start
		if start < scene.Start.Seconds {
			start = scene.Start.Seconds
		}
		end := s.End
		if end > scene.End.Seconds {
			end = scene.End.Seconds
		}
		if end > start {
			silent += end - start
		}
	}

	ratio := silent / duration
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}
