package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/keagan/clipforge/internal/ffmpeg"
	"github.com/keagan/clipforge/internal/timeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interval(start, end float64) timeline.SceneInterval {
	return timeline.SceneInterval{
		Start: timeline.PointAt(start, 30),
		End:   timeline.PointAt(end, 30),
	}
}

func TestByDurationLongestFirst(t *testing.T) {
	scenes := []timeline.SceneInterval{
		interval(0, 10),
		interval(10, 40),
		interval(40, 55),
	}

	ranked, err := ByDuration{}.Rank(context.Background(), "in.mp4", scenes)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, 30.0, ranked[0].Duration())
	assert.Equal(t, 15.0, ranked[1].Duration())
	assert.Equal(t, 10.0, ranked[2].Duration())
}

func TestByDurationDropsDegenerateIntervals(t *testing.T) {
	scenes := []timeline.SceneInterval{
		interval(5, 5),
		interval(0, 20),
		interval(30, 25),
	}

	ranked, err := ByDuration{}.Rank(context.Background(), "in.mp4", scenes)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, interval(0, 20), ranked[0])
}

func TestByDurationDoesNotMutateInput(t *testing.T) {
	scenes := []timeline.SceneInterval{
		interval(0, 5),
		interval(5, 30),
	}

	_, err := ByDuration{}.Rank(context.Background(), "in.mp4", scenes)
	require.NoError(t, err)
	assert.Equal(t, interval(0, 5), scenes[0])
}

// fakeAudio serves canned silence segments and per-range volume stats
type fakeAudio struct {
	silences   []ffmpeg.SilenceSegment
	silenceErr error
	stats      map[float64]*ffmpeg.VolumeStats // keyed by range start
	statsErr   error
}

func (f *fakeAudio) DetectSilence(_ context.Context, _ string, _, _ float64) ([]ffmpeg.SilenceSegment, error) {
	return f.silences, f.silenceErr
}

func (f *fakeAudio) AnalyzeVolumeRange(_ context.Context, _ string, start, _ float64) (*ffmpeg.VolumeStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if stats, ok := f.stats[start]; ok {
		return stats, nil
	}
	return &ffmpeg.VolumeStats{MeanVolume: -30, MaxVolume: -30}, nil
}

func TestByActionScorePrefersLoudBusyScenes(t *testing.T) {
	// First interval is half silence, second is fully active with wide
	// dynamics. Duration ranking would pick the first; action ranking
	// must pick the second.
	audio := &fakeAudio{
		silences: []ffmpeg.SilenceSegment{{Start: 0, End: 20, Duration: 20}},
		stats: map[float64]*ffmpeg.VolumeStats{
			0:  {MeanVolume: -25, MaxVolume: -20},
			40: {MeanVolume: -30, MaxVolume: -5},
		},
	}

	scenes := []timeline.SceneInterval{
		interval(0, 40),
		interval(40, 60),
	}

	ranked, err := NewByActionScore(zerolog.Nop(), audio).Rank(context.Background(), "in.mp4", scenes)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, interval(40, 60), ranked[0])
	assert.Equal(t, interval(0, 40), ranked[1])
}

func TestByActionScoreFallsBackToDuration(t *testing.T) {
	audio := &fakeAudio{silenceErr: errors.New("no audio stream")}

	scenes := []timeline.SceneInterval{
		interval(0, 10),
		interval(10, 40),
	}

	ranked, err := NewByActionScore(zerolog.Nop(), audio).Rank(context.Background(), "in.mp4", scenes)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, 30.0, ranked[0].Duration())
}

func TestByActionScorePropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	audio := &fakeAudio{silenceErr: ctx.Err()}
	scenes := []timeline.SceneInterval{interval(0, 10)}

	_, err := NewByActionScore(zerolog.Nop(), audio).Rank(ctx, "in.mp4", scenes)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSilenceRatioClipsToInterval(t *testing.T) {
	scene := interval(10, 20)

	// Silence overlapping both edges covers the whole interval
	ratio := silenceRatio(scene, []ffmpeg.SilenceSegment{{Start: 0, End: 30}})
	assert.Equal(t, 1.0, ratio)

	// Partially overlapping silence counts only the overlap
	ratio = silenceRatio(scene, []ffmpeg.SilenceSegment{{Start: 5, End: 15}})
	assert.Equal(t, 0.5, ratio)

	// Disjoint silence contributes nothing
	ratio = silenceRatio(scene, []ffmpeg.SilenceSegment{{Start: 30, End: 40}})
	assert.Equal(t, 0.0, ratio)
}
