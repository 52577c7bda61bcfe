package surface

import (
	"time"

	"github.com/banshee-data/livepanels/internal/placement"
)

// TrackingState is the tracker's cross-frame memory for one session. The
// session controller owns it, passes it to every Update, and resets it when
// the session ends so the next session starts cold.
type TrackingState struct {
	LastLockedWall   *placement.Placement
	LastLockedWallAt time.Time

	LastSelectedKind placement.Kind
	LastSelectedAt   time.Time

	// PlaneSeen is set once any detected plane has been delivered.
	PlaneSeen bool

	LastStatus   Status
	LastStatusAt time.Time
}

// NewTrackingState returns an empty state.
func NewTrackingState() *TrackingState {
	return &TrackingState{}
}

// Reset clears all memory.
func (s *TrackingState) Reset() {
	*s = TrackingState{}
}

// lockedWallFresh reports whether the locked wall may still be used at now.
func (s *TrackingState) lockedWallFresh(now time.Time, maxAge time.Duration) bool {
	return s.LastLockedWall != nil && now.Sub(s.LastLockedWallAt) < maxAge
}
