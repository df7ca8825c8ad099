package ffmpeg

import (
	"context"
	"fmt"

	"github.com/keagan/clipforge/pkg/util"
)

// EncodeComposition writes one composed clip to disk. The spec's sub-range
// is seeked at the input so both layers of the filter graph see the same
// frames; audio from the sub-range passes through untouched when present.
func (e *Executor) EncodeComposition(ctx context.Context, spec EncodeSpec) error {
	if err := validateEncodeSpec(spec); err != nil {
		return fmt.Errorf("invalid encode spec: %w", err)
	}

	e.logger.Info().
		Str("input", spec.Input).
		Str("output", spec.Output).
		Float64("start", spec.Start).
		Float64("length", spec.Length).
		Msg("encoding composition")

	args := []string{
		"-ss", util.FormatSeconds(spec.Start),
		"-t", util.FormatSeconds(spec.Length),
		"-i", spec.Input,
		"-filter_complex", spec.FilterGraph,
		"-map", "[outv]",
		"-map", "0:a?",
		"-c:v", DefaultVideoCodec,
		"-c:a", DefaultAudioCodec,
		"-crf", fmt.Sprintf("%d", e.crf),
		"-preset", e.preset,
	}

	if spec.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%.2f", spec.FPS))
	}

	args = append(args, spec.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: spec.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("encode output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	e.logger.Info().Str("output", spec.Output).Msg("encode completed")
	return nil
}

func validateEncodeSpec(spec EncodeSpec) error {
	if spec.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if spec.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if spec.Length <= 0 {
		return fmt.Errorf("length must be positive, got %g", spec.Length)
	}
	if spec.Start < 0 {
		return fmt.Errorf("start cannot be negative, got %g", spec.Start)
	}
	if spec.FilterGraph == "" {
		return fmt.Errorf("filter graph is required")
	}
	return nil
}
