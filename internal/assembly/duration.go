package assembly

import "github.com/reelforge/reelforge/internal/job"

// Pacing policy constants. The positional values are deliberate: a short
// punchy hook followed by a longer payoff frame, then steady pacing.
const (
	simplifiedDuration = 15.0
	hookMinDuration    = 1.5
	payoffDuration     = 3.0
	defaultDuration    = 2.0
	fallbackDuration   = 4.0
)

// ClipDuration returns the display duration in seconds for the frame at the
// given 1-based position. For the simplified single-frame layout only frame 1
// exists and holds for a fixed long duration. For the standard layout the
// duration is positional, with a per-frame override from the content payload
// honored when it exceeds the positional floor for the hook frame. A zero
// result on the standard layout falls back to a safe default so no clip ever
// renders with no duration.
func ClipDuration(frame int, c *job.Content, layout string) float64 {
	if layout == job.LayoutSimplified {
		if frame == 1 {
			return simplifiedDuration
		}
		return 0
	}

	var hint float64
	if c != nil && frame >= 1 && frame <= len(c.Frames) {
		hint = c.Frames[frame-1].Seconds
	}

	var d float64
	switch frame {
	case 1:
		d = hookMinDuration
	case 2:
		d = payoffDuration
	default:
		d = defaultDuration
	}
	if hint > d {
		d = hint
	}
	if d == 0 {
		return fallbackDuration
	}
	return d
}
