package pipeline

import (
	"context"
	"fmt"

	"github.com/keagan/clipforge/internal/ffmpeg"
	"github.com/keagan/clipforge/internal/timeline"
)

// Detector produces the ordered scene intervals of a video file. The core
// pipeline only consumes this sequence; how boundaries are found is the
// collaborator's business.
type Detector interface {
	Detect(ctx context.Context, path string, threshold float64) ([]timeline.SceneInterval, error)
}

// sceneDetector backs Detector with ffmpeg content-change detection
type sceneDetector struct {
	exec *ffmpeg.Executor
}

// Detect maps boundary timestamps onto contiguous intervals covering the
// whole video. The threshold arrives on the 0-100 content scale and is
// normalized to the scene filter's 0-1 range.
func (d *sceneDetector) Detect(ctx context.Context, path string, threshold float64) ([]timeline.SceneInterval, error) {
	info, err := d.exec.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	boundaries, err := d.exec.DetectScenes(ctx, path, threshold/100)
	if err != nil {
		return nil, fmt.Errorf("scene detection failed: %w", err)
	}

	return timeline.FromBoundaries(boundaries, info.Duration.Seconds(), info.FPS), nil
}
