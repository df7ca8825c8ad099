package timeline

import (
	"math"

	"github.com/keagan/clipforge/pkg/util"
)

// TimePoint is an instant on a video's timeline. Immutable once produced
// by detection or merging.
type TimePoint struct {
	Seconds float64
	Frame   int
}

// PointAt builds a TimePoint from a position in seconds at the given
// frame rate.
func PointAt(seconds, fps float64) TimePoint {
	frame := 0
	if fps > 0 && seconds > 0 {
		frame = int(math.Round(seconds * fps))
	}
	return TimePoint{Seconds: seconds, Frame: frame}
}

// Timecode renders the point as HH:MM:SS.mmm for diagnostics.
func (t TimePoint) Timecode() string {
	return util.FormatSeconds(t.Seconds)
}

// SceneInterval is an ordered pair of time points with End after Start.
type SceneInterval struct {
	Start TimePoint
	End   TimePoint
}

// Duration returns the interval length in seconds.
func (s SceneInterval) Duration() float64 {
	return s.End.Seconds - s.Start.Seconds
}

// FromBoundaries converts detector boundary timestamps into the contiguous
// scene intervals they delimit, covering [0, total). Boundaries outside the
// video and zero-length intervals are dropped.
func FromBoundaries(boundaries []float64, total, fps float64) []SceneInterval {
	var scenes []SceneInterval

	last := 0.0
	for _, b := range boundaries {
		if b <= last || b >= total {
			continue
		}
		scenes = append(scenes, SceneInterval{
			Start: PointAt(last, fps),
			End:   PointAt(b, fps),
		})
		last = b
	}

	if total > last {
		scenes = append(scenes, SceneInterval{
			Start: PointAt(last, fps),
			End:   PointAt(total, fps),
		})
	}

	return scenes
}
