package timeline

import "github.com/keagan/clipforge/internal/config"

// CombineScenes merges raw detected scenes into intervals long enough to
// carry a short. It is a single left-to-right pass over the input with two
// running accumulators: one collecting consecutive scenes shorter than the
// minimum short length, one collecting consecutive longer scenes. A scene
// of one kind closes the other kind's accumulator, which is kept only if
// it has reached the min/max midpoint. The first and last raw scenes are
// skipped entirely when they are short and more than one scene exists;
// those are assumed to be fade-in/fade-out noise.
//
// The output is disjoint and ordered by original scene order. A single
// merged interval is a fixed point of the pass; adjacent intervals from a
// multi-interval output would coalesce on a second pass.
func CombineScenes(scenes []SceneInterval, cfg config.ProcessingConfig) []SceneInterval {
	var combined []SceneInterval
	var small, large *SceneInterval

	minLen := float64(cfg.MinShortLength)
	maxCombined := float64(cfg.MaxCombinedSceneLength)
	midpoint := cfg.MiddleShortLength()

	for i, scene := range scenes {
		duration := scene.Duration()

		if len(scenes) > 1 && (i == 0 || i == len(scenes)-1) && duration < minLen {
			continue
		}

		if duration < minLen {
			if small == nil {
				s := scene
				small = &s
			} else {
				small.End = scene.End
				if small.Duration() >= maxCombined {
					combined = append(combined, *small)
					small = nil
				}
			}

			// A short scene interrupts an in-progress large run.
			if large != nil {
				if large.Duration() >= midpoint {
					combined = append(combined, *large)
				}
				large = nil
			}
		} else {
			if large == nil {
				l := scene
				large = &l
			} else {
				large.End = scene.End
			}

			if small != nil {
				if small.Duration() >= midpoint {
					combined = append(combined, *small)
				}
				small = nil
			}
		}
	}

	// Partial runs below the midpoint are dropped, not force-kept.
	if small != nil && small.Duration() >= midpoint {
		combined = append(combined, *small)
	}
	if large != nil && large.Duration() >= midpoint {
		combined = append(combined, *large)
	}

	return combined
}
