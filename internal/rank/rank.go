package rank

import (
	"context"
	"sort"

	"github.com/keagan/clipforge/internal/timeline"
)

// Strategy orders combined scenes from most to least promising. Degenerate
// intervals (non-positive duration) never survive ranking.
type Strategy interface {
	Rank(ctx context.Context, source string, scenes []timeline.SceneInterval) ([]timeline.SceneInterval, error)
}

// ByDuration ranks longest-first, biasing output toward the longest
// coherent action segments. This is the default strategy.
type ByDuration struct{}

func (ByDuration) Rank(_ context.Context, _ string, scenes []timeline.SceneInterval) ([]timeline.SceneInterval, error) {
	ranked := positive(scenes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Duration() > ranked[j].Duration()
	})
	return ranked, nil
}

// positive copies scenes, excluding non-positive durations
func positive(scenes []timeline.SceneInterval) []timeline.SceneInterval {
	out := make([]timeline.SceneInterval, 0, len(scenes))
	for _, s := range scenes {
		if s.Duration() > 0 {
			out = append(out, s)
		}
	}
	return out
}
