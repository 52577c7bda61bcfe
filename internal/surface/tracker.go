package surface

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/geom"
	"github.com/banshee-data/livepanels/internal/placement"
)

// Tracker selects one placement per frame. It holds no per-session memory;
// pass the session's TrackingState to every Update.
type Tracker struct {
	cfg Config
}

// NewTracker creates a tracker with the given thresholds.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Config returns the tracker thresholds.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Update consumes one frame, mutates state, and returns the selected
// placement (if any) together with the throttled status.
func (t *Tracker) Update(state *TrackingState, frame Frame) Result {
	now := frame.Time
	res := Result{FloorScore: -1, WallScore: -1}

	if len(frame.Planes) > 0 {
		state.PlaneSeen = true
	}

	v, ok := newView(frame.Camera)
	if !ok {
		opsf("degenerate camera pose %+v, skipping frame", frame.Camera)
		res.Status, res.StatusChanged = t.emitStatus(state, now, t.observedStatus(state, frame, res))
		return res
	}

	var b best
	t.planeCandidates(v, frame.Planes, &b, &res.Diagnostics)
	t.rayCandidates(v, frame.Hits, &b, &res.Diagnostics)
	t.axisCandidates(v, frame.Hits, &b, &res.Diagnostics)
	if b.hasFloor {
		res.FloorScore = b.floor.score
	}
	if b.hasWall {
		res.WallScore = b.wall.score
	}

	if c, ok := t.choose(state, v, now, &b, &res.Diagnostics); ok {
		if p, err := t.build(c, v); err == nil {
			res.Placement, res.HasPlacement = p, true
		} else {
			diagf("dropping %s candidate: %v", c.kind, err)
		}
	}
	if !res.HasPlacement {
		if p, ok := t.fallback(state, v, now); ok {
			res.Placement, res.HasPlacement = p, true
		}
	}

	if res.HasPlacement {
		p := res.Placement
		if p.Kind != state.LastSelectedKind {
			diagf("selected %s", p)
		}
		state.LastSelectedKind = p.Kind
		state.LastSelectedAt = now
		if p.Kind == placement.KindWall && p.Source != placement.SourceEstimated {
			state.LastLockedWall = &p
			state.LastLockedWallAt = now
		}
	}

	res.Status, res.StatusChanged = t.emitStatus(state, now, t.observedStatus(state, frame, res))
	tracef("floor=%.3f wall=%.3f placed=%v status=%s", res.FloorScore, res.WallScore, res.HasPlacement, res.Status)
	return res
}

// choose applies the pitch biases and the hysteresis window to the best
// floor and wall candidates.
func (t *Tracker) choose(state *TrackingState, v view, now time.Time, b *best, d *Diagnostics) (candidate, bool) {
	cfg := t.cfg
	switch {
	case b.hasFloor && b.hasWall:
	case b.hasFloor:
		return b.floor, true
	case b.hasWall:
		return b.wall, true
	default:
		return candidate{}, false
	}

	floorScore, wallScore := b.floor.score, b.wall.score
	if math.Abs(v.pitch()) < cfg.LevelPitchLimit {
		wallScore += cfg.LevelWallBias
	}
	if v.pitch() < -cfg.DownPitch {
		floorScore += cfg.DownFloorBias
	}
	if b.wall.source == placement.SourceDetectedPlane {
		wallScore += cfg.PlaneWallBias
	}

	pick := b.floor
	if wallScore >= floorScore {
		pick = b.wall
	}
	if state.LastSelectedKind != placement.KindNone &&
		now.Sub(state.LastSelectedAt) < cfg.StickyWindow &&
		math.Abs(wallScore-floorScore) < cfg.StickyGap {
		d.Sticky = true
		if state.LastSelectedKind == placement.KindFloor {
			pick = b.floor
		} else {
			pick = b.wall
		}
	}
	return pick, true
}

func (t *Tracker) build(c candidate, v view) (placement.Placement, error) {
	if c.kind == placement.KindFloor {
		away := v.flat
		if !v.hasFlat {
			away = geom.CameraForward
		}
		return placement.NewFloor(c.source, c.position, away, c.score)
	}
	return placement.NewWall(c.source, c.position, c.normal, c.score)
}

// fallback re-projects the forward ray onto the remembered wall, or else
// places an estimated wall straight ahead. Neither applies when the camera
// is pitched steeply down.
func (t *Tracker) fallback(state *TrackingState, v view, now time.Time) (placement.Placement, bool) {
	cfg := t.cfg
	if v.pitch() < -cfg.SteepDownPitch {
		return placement.Placement{}, false
	}

	if state.lockedWallFresh(now, cfg.LockedWallMaxAge) {
		locked := state.LastLockedWall
		n := geom.FaceToward(locked.Normal, locked.Position, v.origin)
		if dist, ok := geom.IntersectRayPlane(v.origin, v.forward, locked.Position, n, cfg.PlaneParallelMin); ok {
			hit := r3.Add(v.origin, r3.Scale(dist, v.forward))
			if p, err := placement.NewWall(placement.SourceLockedWall, hit, n, locked.Score); err == nil {
				return p, true
			}
		}
		diagf("locked wall not reachable from current pose")
	}

	normal, ok := geom.Flatten(r3.Scale(-1, v.forward))
	if !ok {
		return placement.Placement{}, false
	}
	pos := r3.Add(v.origin, r3.Scale(cfg.EstimatedDistance, v.forward))
	p, err := placement.NewWall(placement.SourceEstimated, pos, normal, 0)
	if err != nil {
		return placement.Placement{}, false
	}
	return p, true
}

// observedStatus maps the frame outcome to a status before throttling.
func (t *Tracker) observedStatus(state *TrackingState, frame Frame, res Result) Status {
	weak := (frame.PlaneDetectionSupported && !state.PlaneSeen) ||
		(!frame.PlaneDetectionSupported && !frame.HitTestSupported)
	if !res.HasPlacement {
		if weak {
			return StatusTrackingWeak
		}
		return StatusScanning
	}
	switch {
	case res.Placement.Kind == placement.KindFloor:
		return StatusFloorReady
	case res.Placement.Source == placement.SourceEstimated:
		if weak {
			return StatusTrackingWeak
		}
		return StatusWallEstimated
	default:
		return StatusWallReady
	}
}

// emitStatus throttles status changes: a new status is emitted only if it
// differs from the last one and the cooldown has elapsed since the last
// emission. It returns the status now on display.
func (t *Tracker) emitStatus(state *TrackingState, now time.Time, s Status) (Status, bool) {
	if s == state.LastStatus {
		return state.LastStatus, false
	}
	if state.LastStatus != StatusNone && now.Sub(state.LastStatusAt) < t.cfg.StatusCooldown {
		return state.LastStatus, false
	}
	state.LastStatus = s
	state.LastStatusAt = now
	diagf("status %s", s)
	return s, true
}
