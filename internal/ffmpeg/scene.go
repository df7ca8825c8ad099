package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/keagan/clipforge/pkg/util"
)

// DetectScenes finds content-change boundaries using ffmpeg scene
// detection. The threshold is on the filter's 0-1 scale; returned values
// are boundary positions in seconds, in timeline order.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error) {
	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting scene changes")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-vf", fmt.Sprintf("select='gt(scene,%f)',showinfo", threshold),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isNullOutputError(err) {
			return nil, fmt.Errorf("scene detection failed: %w", err)
		}
	}

	boundaries := parseSceneOutput(output)
	e.logger.Info().Int("boundaries", len(boundaries)).Msg("scene detection complete")
	return boundaries, nil
}

// parseSceneOutput extracts scene change timestamps from showinfo output
func parseSceneOutput(output string) []float64 {
	var boundaries []float64

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "pts_time:") {
			continue
		}
		parts := strings.Split(line, "pts_time:")
		if len(parts) != 2 {
			continue
		}
		timeStr := strings.Fields(strings.TrimSpace(parts[1]))[0]
		if seconds, err := strconv.ParseFloat(timeStr, 64); err == nil {
			boundaries = append(boundaries, seconds)
		}
	}

	return boundaries
}

// ExtractFrame grabs a single frame at the given position as a JPEG
func (e *Executor) ExtractFrame(ctx context.Context, input string, seconds float64, output string) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Float64("at", seconds).
		Msg("extracting frame")

	args := []string{
		"-ss", util.FormatSeconds(seconds),
		"-i", input,
		"-vframes", "1",
		"-q:v", "2", // high quality JPEG
		output,
	}

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	return e.Run(ctx, opts)
}
