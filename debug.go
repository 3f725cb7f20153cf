package keyframe

import (
	"fmt"
	"os"
	"time"
)

// debugLog prints cache rebuild stats to stderr.
func (s *Store) debugLog(tracks, frames int, elapsed time.Duration) {
	if !s.debug {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr,
		"[keyframe] precompute: tracks: %d | frames: %d | samples: %d | time: %v\n",
		tracks, frames, tracks*frames, elapsed)
}

// debugCapacityRatio is the fill level at which a track warns that it is
// approaching its hard cap.
const debugCapacityRatio = 0.9

// debugCheckCapacity warns on stderr once a store-owned track crosses
// debugCapacityRatio of its capacity. Only active in debug mode.
func debugCheckCapacity(t *Track) {
	if t.owner == nil || !t.owner.debug {
		return
	}
	threshold := int(float64(len(t.times)) * debugCapacityRatio)
	if t.count == threshold {
		_, _ = fmt.Fprintf(os.Stderr, "[keyframe] warning: track %s/%s holds %d of %d keyframes\n",
			t.objectID, t.property, t.count, len(t.times))
	}
}
