package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keagan/clipforge/internal/compose"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoder fails a set number of times before succeeding
type fakeEncoder struct {
	failures int
	attempts int
	lastFPS  float64
}

func (f *fakeEncoder) Encode(ctx context.Context, comp compose.Composition, output string, fps float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.attempts++
	f.lastFPS = fps
	if f.attempts <= f.failures {
		return errors.New("encoder exploded")
	}
	return nil
}

func testComposition(fps float64) compose.Composition {
	return compose.Composition{
		Foreground: compose.Clip{Source: "in.mp4", Length: 30, FPS: fps},
	}
}

func newTestSupervisor(enc Encoder, maxRetries int) *Supervisor {
	return NewSupervisor(zerolog.Nop(), enc, maxRetries, 0)
}

func TestRenderSucceedsFirstAttempt(t *testing.T) {
	enc := &fakeEncoder{}
	s := newTestSupervisor(enc, 3)

	err := s.Render(context.Background(), testComposition(30), "out.mp4")

	require.NoError(t, err)
	assert.Equal(t, 1, enc.attempts)
}

func TestRenderRetriesUntilSuccess(t *testing.T) {
	enc := &fakeEncoder{failures: 2}
	s := newTestSupervisor(enc, 3)

	err := s.Render(context.Background(), testComposition(30), "out.mp4")

	require.NoError(t, err)
	assert.Equal(t, 3, enc.attempts)
}

func TestRenderExhaustsRetries(t *testing.T) {
	// maxRetries+1 total attempts, then the terminal failure is returned
	enc := &fakeEncoder{failures: 100}
	s := newTestSupervisor(enc, 3)

	err := s.Render(context.Background(), testComposition(30), "out.mp4")

	require.Error(t, err)
	assert.Equal(t, 4, enc.attempts)
	assert.Contains(t, err.Error(), "out.mp4")
}

func TestRenderZeroRetriesMeansSingleAttempt(t *testing.T) {
	enc := &fakeEncoder{failures: 100}
	s := newTestSupervisor(enc, 0)

	err := s.Render(context.Background(), testComposition(30), "out.mp4")

	require.Error(t, err)
	assert.Equal(t, 1, enc.attempts)
}

func TestRenderClampsFrameRate(t *testing.T) {
	cases := []struct {
		source float64
		want   float64
	}{
		{30, 30},
		{59.94, 59.94},
		{120, 60},
		{0, 60},
	}

	for _, tc := range cases {
		enc := &fakeEncoder{}
		s := newTestSupervisor(enc, 0)

		err := s.Render(context.Background(), testComposition(tc.source), "out.mp4")

		require.NoError(t, err)
		assert.Equal(t, tc.want, enc.lastFPS, "source fps %v", tc.source)
	}
}

func TestRenderStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc := &fakeEncoder{failures: 100}
	s := newTestSupervisor(enc, 5)

	err := s.Render(ctx, testComposition(30), "out.mp4")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, enc.attempts)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("log")
	require.NoError(t, err)
	assert.Equal(t, LogAndContinue, p)

	p, err = ParsePolicy("propagate")
	require.NoError(t, err)
	assert.Equal(t, Propagate, p)

	_, err = ParsePolicy("shrug")
	assert.Error(t, err)
}

func TestAttemptTimeoutBoundsEncode(t *testing.T) {
	slow := encoderFunc(func(ctx context.Context, _ compose.Composition, _ string, _ float64) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	s := NewSupervisor(zerolog.Nop(), slow, 0, 10*time.Millisecond)

	err := s.Render(context.Background(), testComposition(30), "out.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type encoderFunc func(ctx context.Context, comp compose.Composition, output string, fps float64) error

func (f encoderFunc) Encode(ctx context.Context, comp compose.Composition, output string, fps float64) error {
	return f(ctx, comp, output, fps)
}
