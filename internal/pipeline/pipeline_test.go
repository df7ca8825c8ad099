package pipeline

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/keagan/clipforge/internal/config"
	"github.com/keagan/clipforge/internal/ffmpeg"
	"github.com/keagan/clipforge/internal/timeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPipeline builds a pipeline with a fixed seed and no ffmpeg binary,
// enough for the selection logic under test.
func testPipeline(t *testing.T, mutate func(*config.Config)) *Pipeline {
	t.Helper()

	cfg := &config.Config{
		SceneThreshold: 27.0,
		Ranking:        "duration",
		Processing: config.ProcessingConfig{
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
		Render: config.RenderConfig{FailPolicy: "log"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	return &Pipeline{
		logger: zerolog.Nop(),
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(42)),
	}
}

func sceneAt(start, end float64) timeline.SceneInterval {
	return timeline.SceneInterval{
		Start: timeline.PointAt(start, 30),
		End:   timeline.PointAt(end, 30),
	}
}

func TestPickWindowStaysInsideInterval(t *testing.T) {
	p := testPipeline(t, nil)
	scene := sceneAt(100, 250)

	for i := 0; i < 200; i++ {
		start, length := p.pickWindow(scene)

		assert.GreaterOrEqual(t, length, 15.0)
		assert.LessOrEqual(t, length, 150.0, "length cannot exceed the interval")
		assert.GreaterOrEqual(t, start, 100.0)
		assert.LessOrEqual(t, start+length, 250.0)
	}
}

func TestPickWindowRespectsMaxShortLength(t *testing.T) {
	p := testPipeline(t, func(c *config.Config) {
		c.Processing.MaxShortLength = 60
	})
	scene := sceneAt(0, 500)

	for i := 0; i < 200; i++ {
		_, length := p.pickWindow(scene)
		assert.LessOrEqual(t, length, 60.0)
	}
}

func TestPickWindowIntervalShorterThanMinCollapses(t *testing.T) {
	// A 10s interval cannot fit the 15s minimum; the degenerate range
	// collapses to the minimum and the window starts at the interval start.
	p := testPipeline(t, nil)
	start, length := p.pickWindow(sceneAt(20, 30))

	assert.Equal(t, 15.0, length)
	assert.Equal(t, 20.0, start)
}

func TestPickWindowIsDeterministicPerSeed(t *testing.T) {
	scene := sceneAt(0, 400)

	a := testPipeline(t, nil)
	b := testPipeline(t, nil)
	for i := 0; i < 50; i++ {
		aStart, aLen := a.pickWindow(scene)
		bStart, bLen := b.pickWindow(scene)
		assert.Equal(t, aStart, bStart)
		assert.Equal(t, aLen, bLen)
	}
}

func TestFallbackWindowShortVideo(t *testing.T) {
	// A video shorter than the minimum short length yields the whole video
	p := testPipeline(t, nil)
	info := &ffmpeg.VideoInfo{FilePath: "short.mp4", Duration: 12 * time.Second}

	start, length, err := p.fallbackWindow(info)
	require.NoError(t, err)
	assert.Equal(t, 12.0, length)
	assert.Equal(t, 0.0, start)
}

func TestFallbackWindowLongVideoStartsNearHead(t *testing.T) {
	p := testPipeline(t, nil)
	info := &ffmpeg.VideoInfo{FilePath: "long.mp4", Duration: 3600 * time.Second}

	for i := 0; i < 100; i++ {
		start, length, err := p.fallbackWindow(info)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, length, 15.0)
		assert.LessOrEqual(t, length, 179.0)
		assert.GreaterOrEqual(t, start, 10.0)
		assert.LessOrEqual(t, start+length, 3600.0)
	}
}

func TestFallbackWindowZeroDuration(t *testing.T) {
	p := testPipeline(t, nil)
	info := &ffmpeg.VideoInfo{FilePath: "empty.mp4", Duration: 0}

	_, _, err := p.fallbackWindow(info)
	assert.Error(t, err)
}

func TestRandRange(t *testing.T) {
	p := testPipeline(t, nil)

	assert.Equal(t, 5, p.randRange(5, 5))
	assert.Equal(t, 5, p.randRange(5, 3))

	for i := 0; i < 100; i++ {
		v := p.randRange(10, 20)
		assert.GreaterOrEqual(t, v, 10)
		assert.LessOrEqual(t, v, 20)
	}
}

func TestProcessDirectoryMissingInput(t *testing.T) {
	p := testPipeline(t, nil)
	err := p.ProcessDirectory(context.Background(), "/does/not/exist", t.TempDir())
	assert.Error(t, err)
}

func TestProcessDirectoryEmptyInput(t *testing.T) {
	p := testPipeline(t, nil)
	err := p.ProcessDirectory(context.Background(), t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video files")
}
