package pipeline

import (
	"context"

	"github.com/keagan/clipforge/internal/compose"
	"github.com/keagan/clipforge/internal/ffmpeg"
)

// ffmpegEncoder adapts the executor to the render supervisor's Encoder
type ffmpegEncoder struct {
	exec *ffmpeg.Executor
}

func (f ffmpegEncoder) Encode(ctx context.Context, comp compose.Composition, output string, fps float64) error {
	fg := comp.Foreground
	return f.exec.EncodeComposition(ctx, ffmpeg.EncodeSpec{
		Input:       fg.Source,
		Start:       fg.Start,
		Length:      fg.Length,
		FilterGraph: comp.FilterGraph(),
		FPS:         fps,
		Output:      output,
	})
}
