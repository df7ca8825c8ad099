package render

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/clipforge/internal/compose"
	"github.com/rs/zerolog"
)

// Output frame rates above this are clamped
const maxOutputFPS = 60.0

// FailPolicy controls what the caller does with a terminal render failure.
type FailPolicy int

const (
	// LogAndContinue records the failure and moves on to the next clip
	LogAndContinue FailPolicy = iota
	// Propagate surfaces the failure to the caller after siblings finish
	Propagate
)

// ParsePolicy maps the config strings "log" and "propagate"
func ParsePolicy(s string) (FailPolicy, error) {
	switch s {
	case "log":
		return LogAndContinue, nil
	case "propagate":
		return Propagate, nil
	default:
		return LogAndContinue, fmt.Errorf("unknown fail policy %q", s)
	}
}

// Encoder writes a composed clip to disk
type Encoder interface {
	Encode(ctx context.Context, comp compose.Composition, output string, fps float64) error
}

// Supervisor drives encoding with bounded retry. Retries are a plain loop
// with an attempt counter; maxRetries bounds the retries, so a clip gets
// at most maxRetries+1 attempts before the failure is terminal.
type Supervisor struct {
	logger         zerolog.Logger
	encoder        Encoder
	maxRetries     int
	attemptTimeout time.Duration
}

// NewSupervisor creates a supervisor. attemptTimeout bounds a single
// encode attempt; zero disables the bound.
func NewSupervisor(logger zerolog.Logger, encoder Encoder, maxRetries int, attemptTimeout time.Duration) *Supervisor {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Supervisor{
		logger:         logger.With().Str("component", "render").Logger(),
		encoder:        encoder,
		maxRetries:     maxRetries,
		attemptTimeout: attemptTimeout,
	}
}

// Render encodes comp to outputPath, retrying failed attempts up to the
// configured bound. The output frame rate is the source rate clamped
// to 60. The terminal error is always returned; the caller decides per
// its FailPolicy whether that aborts anything.
func (s *Supervisor) Render(ctx context.Context, comp compose.Composition, outputPath string) error {
	fps := comp.Foreground.FPS
	if fps <= 0 || fps > maxOutputFPS {
		fps = maxOutputFPS
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if s.attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
		}

		err := s.encoder.Encode(attemptCtx, comp, outputPath, fps)
		cancel()

		if err == nil {
			if attempt > 0 {
				s.logger.Info().
					Str("output", outputPath).
					Int("attempt", attempt+1).
					Msg("rendering recovered after retry")
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < s.maxRetries {
			s.logger.Warn().Err(err).
				Str("output", outputPath).
				Int("attempt", attempt+1).
				Msg("rendering failed, retrying...")
		}
	}

	s.logger.Error().Err(lastErr).
		Str("output", outputPath).
		Int("attempts", s.maxRetries+1).
		Msg("rendering failed after multiple attempts")
	return fmt.Errorf("render %s: %w", outputPath, lastErr)
}
