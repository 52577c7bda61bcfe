package surface

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/geom"
	"github.com/banshee-data/livepanels/internal/placement"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func facing(t *testing.T, normal r3.Vec) r3.Rotation {
	t.Helper()
	q, ok := geom.LookRotation(normal, geom.Up, geom.CameraForward)
	require.True(t, ok)
	return q
}

func unit(t *testing.T, v r3.Vec) r3.Vec {
	t.Helper()
	u, ok := geom.Unit(v)
	require.True(t, ok)
	return u
}

func assertVec(t *testing.T, want, got r3.Vec, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func levelFrame(at time.Time) Frame {
	return Frame{
		Time:             at,
		Camera:           Camera{Forward: r3.Vec{Z: -1}},
		HitTestSupported: true,
	}
}

// ---- Fallback -------------------------------------------------------------

func TestUpdate_EstimatedWallAhead(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	state := NewTrackingState()

	res := tr.Update(state, levelFrame(t0))

	require.True(t, res.HasPlacement)
	p := res.Placement
	assert.Equal(t, placement.KindWall, p.Kind)
	assert.Equal(t, placement.SourceEstimated, p.Source)
	assertVec(t, r3.Vec{Z: -1.2}, p.Position, 1e-9)
	assertVec(t, r3.Vec{Z: 1}, p.Normal, 1e-9)
	assert.Equal(t, StatusWallEstimated, res.Status)
	assert.True(t, res.StatusChanged)

	// An estimated wall is never remembered as a lock.
	assert.Nil(t, state.LastLockedWall)
	assert.Equal(t, placement.KindWall, state.LastSelectedKind)
}

func TestUpdate_EstimatedWallFollowsCamera(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	fwd := unit(t, r3.Vec{X: 1, Y: 0.2})
	frame := Frame{Time: t0, Camera: Camera{Position: r3.Vec{X: 1, Y: 1.6, Z: 2}, Forward: fwd}}

	res := tr.Update(NewTrackingState(), frame)

	require.True(t, res.HasPlacement)
	assertVec(t, r3.Add(frame.Camera.Position, r3.Scale(1.2, fwd)), res.Placement.Position, 1e-9)
	// flattened to a vertical plane facing the camera
	assertVec(t, r3.Vec{X: -1}, res.Placement.Normal, 1e-9)
}

func TestUpdate_SteepDownHasNoFallback(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	state := NewTrackingState()
	locked, err := placement.NewWall(placement.SourceRaySample, r3.Vec{Z: -2}, r3.Vec{Z: 1}, 0.8)
	require.NoError(t, err)
	state.LastLockedWall = &locked
	state.LastLockedWallAt = t0

	frame := Frame{
		Time:             t0.Add(time.Second),
		Camera:           Camera{Forward: unit(t, r3.Vec{Y: -0.8, Z: -0.6})},
		HitTestSupported: true,
	}
	res := tr.Update(state, frame)

	assert.False(t, res.HasPlacement)
	assert.Equal(t, StatusScanning, res.Status)
}

func TestUpdate_LockedWallAge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		age        time.Duration
		wantSource placement.Source
	}{
		{"fresh", time.Second, placement.SourceLockedWall},
		{"just inside", 13999 * time.Millisecond, placement.SourceLockedWall},
		{"exactly max age", 14000 * time.Millisecond, placement.SourceEstimated},
		{"just past", 14001 * time.Millisecond, placement.SourceEstimated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := NewTracker(DefaultConfig())
			state := NewTrackingState()
			locked, err := placement.NewWall(placement.SourceRaySample, r3.Vec{X: 0.3, Y: 1, Z: -2.5}, r3.Vec{Z: 1}, 0.8)
			require.NoError(t, err)
			state.LastLockedWall = &locked
			state.LastLockedWallAt = t0

			res := tr.Update(state, levelFrame(t0.Add(tt.age)))

			require.True(t, res.HasPlacement)
			assert.Equal(t, tt.wantSource, res.Placement.Source)
			if tt.wantSource == placement.SourceLockedWall {
				// re-projected onto the forward ray
				assertVec(t, r3.Vec{Z: -2.5}, res.Placement.Position, 1e-9)
				assertVec(t, r3.Vec{Z: 1}, res.Placement.Normal, 1e-9)
				assert.Equal(t, t0.Add(tt.age), state.LastLockedWallAt, "locked selection refreshes the lock")
			}
		})
	}
}

func TestUpdate_LockedWallParallelFallsThrough(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	state := NewTrackingState()
	// A side wall the forward ray never meets.
	locked, err := placement.NewWall(placement.SourceRaySample, r3.Vec{X: -1.5, Z: -1}, r3.Vec{X: 1}, 0.8)
	require.NoError(t, err)
	state.LastLockedWall = &locked
	state.LastLockedWallAt = t0

	res := tr.Update(state, levelFrame(t0.Add(time.Second)))

	require.True(t, res.HasPlacement)
	assert.Equal(t, placement.SourceEstimated, res.Placement.Source)
}

// ---- Candidates -----------------------------------------------------------

func TestUpdate_PlaneBeatsSample(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	normal := r3.Vec{Y: 0.1, Z: math.Sqrt(0.99)}
	dist := 10.0 / 3 // 0.9 + 1/dist == 1.2

	frame := levelFrame(t0)
	frame.PlaneDetectionSupported = true
	frame.Planes = []DetectedPlane{{
		ID:          "p1",
		Position:    r3.Vec{Z: -dist},
		Orientation: facing(t, normal),
	}}
	frame.Hits = []RayHit{{
		Tag:         RayWallRight,
		Position:    r3.Vec{X: 1.5, Z: -1.5},
		Orientation: facing(t, r3.Vec{X: -1}),
	}}

	res := tr.Update(NewTrackingState(), frame)

	require.True(t, res.HasPlacement)
	p := res.Placement
	assert.Equal(t, placement.KindWall, p.Kind)
	assert.Equal(t, placement.SourceDetectedPlane, p.Source)
	assert.InDelta(t, 1.2, p.Score, 1e-9)
	assert.InDelta(t, 0.9, geom.Verticality(p.Normal), 1e-9)
	assertVec(t, r3.Vec{Z: -dist}, p.Position, 1e-9)
	assert.Equal(t, 1, res.Diagnostics.PlaneCandidates)
	assert.Equal(t, StatusWallReady, res.Status)
}

func TestUpdate_PlaneRejections(t *testing.T) {
	t.Parallel()

	square := func(x0, y0, x1, y1 float64) []r3.Vec {
		return []r3.Vec{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	}

	tests := []struct {
		name  string
		plane DetectedPlane
		want  int
	}{
		{"inside polygon", DetectedPlane{Position: r3.Vec{Z: -2}, Orientation: geom.Identity, Polygon: square(-1, -1, 1, 1)}, 1},
		{"outside polygon", DetectedPlane{Position: r3.Vec{Z: -2}, Orientation: geom.Identity, Polygon: square(2, 2, 3, 3)}, 0},
		{"unknown boundary", DetectedPlane{Position: r3.Vec{Z: -2}, Orientation: geom.Identity}, 1},
		{"too close", DetectedPlane{Position: r3.Vec{Z: -0.2}, Orientation: geom.Identity}, 0},
		{"too far", DetectedPlane{Position: r3.Vec{Z: -6.5}, Orientation: geom.Identity}, 0},
		{"behind", DetectedPlane{Position: r3.Vec{Z: 2}, Orientation: geom.Identity}, 0},
		{"floor plane with boundary", DetectedPlane{
			Position:    r3.Vec{Y: -1.5, Z: -2},
			Orientation: geom.Identity,
			Polygon:     []r3.Vec{{X: -1, Z: -1}, {X: 1, Z: -1}, {X: 1, Z: 1}, {X: -1, Z: 1}},
		}, 0},
		{"parallel side wall", DetectedPlane{Position: r3.Vec{X: -1}, Orientation: r3.NewRotation(math.Pi/2, r3.Vec{Y: 1})}, 0},
		{"zero pose", DetectedPlane{Position: r3.Vec{Z: -2}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := NewTracker(DefaultConfig())
			frame := levelFrame(t0)
			frame.Planes = []DetectedPlane{tt.plane}
			res := tr.Update(NewTrackingState(), frame)
			assert.Equal(t, tt.want, res.Diagnostics.PlaneCandidates)
			if tt.want == 0 {
				assert.Equal(t, placement.SourceEstimated, res.Placement.Source)
			}
		})
	}
}

func TestUpdate_RaySampleWall(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	frame := levelFrame(t0)
	frame.Hits = []RayHit{{
		Tag:         RayWallForward,
		Position:    r3.Vec{Z: -2},
		Orientation: facing(t, r3.Vec{Z: 1}),
	}}

	state := NewTrackingState()
	res := tr.Update(state, frame)

	require.True(t, res.HasPlacement)
	assert.Equal(t, placement.KindWall, res.Placement.Kind)
	assert.Equal(t, placement.SourceRaySample, res.Placement.Source)
	assertVec(t, r3.Vec{Z: -2}, res.Placement.Position, 1e-9)
	assertVec(t, r3.Vec{Z: 1}, res.Placement.Normal, 1e-9)
	assert.Equal(t, 1, res.Diagnostics.RayCandidates)
	require.NotNil(t, state.LastLockedWall)
	assert.Equal(t, t0, state.LastLockedWallAt)
}

func TestUpdate_LastResortSample(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	frame := levelFrame(t0)
	// Far off to the side: ahead of the camera but below the alignment
	// gate. The pose puts world up along local (1,1,1) so neither axis is
	// floor-like or wall-like enough for the axis path.
	q := r3.NewRotation(math.Acos(1/math.Sqrt(3)), r3.Vec{X: -1, Z: 1})
	frame.Hits = []RayHit{{Tag: RayWallLeft, Position: r3.Vec{X: 3, Z: -0.05}, Orientation: q}}

	res := tr.Update(NewTrackingState(), frame)

	require.True(t, res.HasPlacement)
	assert.True(t, res.Diagnostics.LastResort)
	assert.Equal(t, 0, res.Diagnostics.RayCandidates)
	assert.Equal(t, placement.SourceRaySample, res.Placement.Source)
	assert.InDelta(t, 0.05, res.Placement.Score, 1e-12)
}

func TestUpdate_SampleBehindCameraIsNotLastResort(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	frame := levelFrame(t0)
	q := r3.NewRotation(math.Acos(1/math.Sqrt(3)), r3.Vec{X: -1, Z: 1})
	frame.Hits = []RayHit{{Tag: RayWallLeft, Position: r3.Vec{Z: 3}, Orientation: q}}

	res := tr.Update(NewTrackingState(), frame)

	require.True(t, res.HasPlacement)
	assert.False(t, res.Diagnostics.LastResort)
	assert.Equal(t, placement.SourceEstimated, res.Placement.Source)
	assertVec(t, r3.Vec{Z: -1.2}, res.Placement.Position, 1e-9)
}

// A wall hit's pose has local +Y up, which also reads as a floor normal.
// Looking slightly down at a wall must still place on the wall.
func TestUpdate_WallHitBelowEyeStaysWall(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	fwd := unit(t, r3.Vec{Y: -0.4, Z: -0.917})
	eye := r3.Vec{Y: 1.5}
	hitAt := r3.Add(eye, r3.Scale(2/-fwd.Z, fwd))
	frame := Frame{
		Time:             t0,
		Camera:           Camera{Position: eye, Forward: fwd},
		HitTestSupported: true,
		Hits:             []RayHit{{Tag: RayWallForward, Position: hitAt, Orientation: facing(t, r3.Vec{Z: 1})}},
	}

	res := tr.Update(NewTrackingState(), frame)

	require.True(t, res.HasPlacement)
	p := res.Placement
	assert.Equal(t, placement.KindWall, p.Kind)
	assert.Equal(t, placement.SourceRaySample, p.Source)
	assertVec(t, r3.Vec{Z: 1}, p.Normal, 1e-9)
	assert.InDelta(t, -2.0, p.Position.Z, 1e-9)
	assert.Equal(t, -1.0, res.FloorScore)
	assert.Equal(t, 0, res.Diagnostics.AxisFloors)
}

func TestUpdate_FloorCandidateGates(t *testing.T) {
	t.Parallel()
	down := r3.Vec{Y: -0.6, Z: -0.8}
	tilted := r3.NewRotation(math.Pi/4, r3.Vec{X: 1})

	tests := []struct {
		name      string
		hit       RayHit
		wantFloor bool
	}{
		{"floor ray well below", RayHit{Tag: RayFloor, Position: r3.Vec{Z: -2}, Orientation: geom.Identity}, true},
		{"floor ray near eye height", RayHit{Tag: RayFloor, Position: r3.Vec{Y: 1.2, Z: -2}, Orientation: geom.Identity}, false},
		{"floor ray above camera", RayHit{Tag: RayFloor, Position: r3.Vec{Y: 2.5, Z: -2}, Orientation: geom.Identity}, false},
		{"wall ray on floor-only pose", RayHit{Tag: RayWallForward, Position: r3.Vec{Z: -2}, Orientation: tilted}, true},
		{"wall ray on ambiguous pose", RayHit{Tag: RayWallForward, Position: r3.Vec{Z: -2}, Orientation: geom.Identity}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := NewTracker(DefaultConfig())
			frame := Frame{
				Time:             t0,
				Camera:           Camera{Position: r3.Vec{Y: 1.5}, Forward: down},
				HitTestSupported: true,
				Hits:             []RayHit{tt.hit},
			}

			res := tr.Update(NewTrackingState(), frame)

			if tt.wantFloor {
				assert.Equal(t, 1, res.Diagnostics.AxisFloors)
				require.True(t, res.HasPlacement)
				assert.Equal(t, placement.KindFloor, res.Placement.Kind)
				return
			}
			assert.Equal(t, 0, res.Diagnostics.AxisFloors)
			assert.Equal(t, -1.0, res.FloorScore)
		})
	}
}

func TestUpdate_FloorWhenLookingDown(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	frame := Frame{
		Time:             t0,
		Camera:           Camera{Position: r3.Vec{Y: 1.5}, Forward: r3.Vec{Y: -0.6, Z: -0.8}},
		HitTestSupported: true,
		Hits: []RayHit{{
			Tag:         RayFloor,
			Position:    r3.Vec{Z: -2},
			Orientation: geom.Identity,
		}},
	}

	res := tr.Update(NewTrackingState(), frame)

	require.True(t, res.HasPlacement)
	p := res.Placement
	assert.Equal(t, placement.KindFloor, p.Kind)
	assert.Equal(t, placement.SourceRaySample, p.Source)
	assertVec(t, geom.Up, p.Normal, 1e-12)
	assert.InDelta(t, 1.0, res.FloorScore, 1e-12)
	assert.Equal(t, StatusFloorReady, res.Status)
}

func TestUpdate_MalformedSamplesSkipped(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	frame := levelFrame(t0)
	frame.Hits = []RayHit{
		{Tag: RayWallForward, Position: r3.Vec{Z: math.NaN()}, Orientation: geom.Identity},
		{Tag: RayWallLeft, Position: r3.Vec{Z: -2}},
	}
	frame.Planes = []DetectedPlane{{Position: r3.Vec{Z: math.Inf(-1)}, Orientation: geom.Identity}}

	res := tr.Update(NewTrackingState(), frame)

	require.True(t, res.HasPlacement)
	assert.Positive(t, res.Diagnostics.Skipped)
}

func TestUpdate_DegenerateCamera(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	frame := Frame{Time: t0, HitTestSupported: true}

	res := tr.Update(NewTrackingState(), frame)

	assert.False(t, res.HasPlacement)
	assert.Equal(t, StatusScanning, res.Status)
}

// Every wall placement produced from tracked evidence is near-vertical.
func TestUpdate_WallVerticality(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	rng := rand.New(rand.NewPCG(7, 11))

	randomRotation := func() r3.Rotation {
		axis := r3.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
		return r3.NewRotation(rng.Float64()*2*math.Pi, axis)
	}
	randomPoint := func() r3.Vec {
		return r3.Vec{X: rng.Float64()*6 - 3, Y: rng.Float64()*3 - 1.5, Z: -rng.Float64() * 6}
	}

	walls := 0
	for i := 0; i < 500; i++ {
		frame := levelFrame(t0.Add(time.Duration(i) * time.Second))
		frame.Camera.Forward = unit(t, r3.Vec{X: rng.Float64() - 0.5, Y: rng.Float64()*0.6 - 0.3, Z: -1})
		for _, tag := range AllRays {
			frame.Hits = append(frame.Hits, RayHit{Tag: tag, Position: randomPoint(), Orientation: randomRotation()})
		}
		frame.Planes = []DetectedPlane{{Position: randomPoint(), Orientation: randomRotation()}}

		res := tr.Update(NewTrackingState(), frame)
		if !res.HasPlacement || res.Placement.Kind != placement.KindWall {
			continue
		}
		walls++
		assert.GreaterOrEqual(t, geom.Verticality(res.Placement.Normal), 0.78-1e-9, "frame %d", i)
		assert.InDelta(t, 1, r3.Norm(res.Placement.Normal), 1e-9)
	}
	assert.Positive(t, walls)
}

// ---- Selection ------------------------------------------------------------

func TestChoose(t *testing.T) {
	t.Parallel()

	neutral := r3.Vec{Y: -0.3, Z: -math.Sqrt(0.91)}
	level := r3.Vec{Z: -1}
	down := r3.Vec{Y: -0.5, Z: -math.Sqrt(0.75)}

	tests := []struct {
		name      string
		forward   r3.Vec
		floor     float64
		wall      float64
		wallSrc   placement.Source
		prior     placement.Kind
		priorAge  time.Duration
		want      placement.Kind
		wantStick bool
	}{
		{"higher floor wins", neutral, 1.0, 0.95, placement.SourceRaySample, placement.KindNone, 0, placement.KindFloor, false},
		{"tie goes to wall", neutral, 1.0, 1.0, placement.SourceRaySample, placement.KindNone, 0, placement.KindWall, false},
		{"plane bias", neutral, 1.0, 0.95, placement.SourceDetectedPlane, placement.KindNone, 0, placement.KindWall, false},
		{"level bias", level, 1.0, 0.9, placement.SourceRaySample, placement.KindNone, 0, placement.KindWall, false},
		{"down bias", down, 0.9, 1.0, placement.SourceRaySample, placement.KindNone, 0, placement.KindFloor, false},
		{"sticky keeps wall", neutral, 1.0, 0.9, placement.SourceRaySample, placement.KindWall, 500 * time.Millisecond, placement.KindWall, true},
		{"sticky keeps floor", neutral, 0.9, 1.0, placement.SourceRaySample, placement.KindFloor, 899 * time.Millisecond, placement.KindFloor, true},
		{"window elapsed", neutral, 1.0, 0.9, placement.SourceRaySample, placement.KindWall, 900 * time.Millisecond, placement.KindFloor, false},
		{"gap too large", neutral, 1.0, 0.8, placement.SourceRaySample, placement.KindWall, 100 * time.Millisecond, placement.KindFloor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := NewTracker(DefaultConfig())
			v, ok := newView(Camera{Forward: tt.forward})
			require.True(t, ok)
			state := &TrackingState{LastSelectedKind: tt.prior, LastSelectedAt: t0.Add(-tt.priorAge)}
			b := best{
				floor:    candidate{kind: placement.KindFloor, source: placement.SourceRaySample, score: tt.floor},
				wall:     candidate{kind: placement.KindWall, source: tt.wallSrc, score: tt.wall},
				hasFloor: true,
				hasWall:  true,
			}
			var d Diagnostics

			got, ok := tr.choose(state, v, t0, &b, &d)

			require.True(t, ok)
			assert.Equal(t, tt.want, got.kind)
			assert.Equal(t, tt.wantStick, d.Sticky)
		})
	}
}

func TestChoose_SingleKind(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	v, _ := newView(Camera{Forward: r3.Vec{Z: -1}})
	// A recent wall selection cannot resurrect a wall that is no longer a
	// candidate.
	state := &TrackingState{LastSelectedKind: placement.KindWall, LastSelectedAt: t0}
	b := best{floor: candidate{kind: placement.KindFloor, score: 0.8}, hasFloor: true}

	got, ok := tr.choose(state, v, t0.Add(100*time.Millisecond), &b, &Diagnostics{})
	require.True(t, ok)
	assert.Equal(t, placement.KindFloor, got.kind)

	_, ok = tr.choose(state, v, t0, &best{}, &Diagnostics{})
	assert.False(t, ok)
}

// ---- Status ---------------------------------------------------------------

func TestUpdate_StatusThrottle(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	state := NewTrackingState()

	floorFrame := func(at time.Time) Frame {
		return Frame{
			Time:             at,
			Camera:           Camera{Position: r3.Vec{Y: 1.5}, Forward: r3.Vec{Y: -0.6, Z: -0.8}},
			HitTestSupported: true,
			Hits:             []RayHit{{Tag: RayFloor, Position: r3.Vec{Z: -2}, Orientation: geom.Identity}},
		}
	}

	res := tr.Update(state, levelFrame(t0))
	assert.Equal(t, StatusWallEstimated, res.Status)
	assert.True(t, res.StatusChanged)

	res = tr.Update(state, floorFrame(t0.Add(500*time.Millisecond)))
	assert.Equal(t, placement.KindFloor, res.Placement.Kind)
	assert.Equal(t, StatusWallEstimated, res.Status, "held during cooldown")
	assert.False(t, res.StatusChanged)

	res = tr.Update(state, floorFrame(t0.Add(1300*time.Millisecond)))
	assert.Equal(t, StatusFloorReady, res.Status)
	assert.True(t, res.StatusChanged)

	res = tr.Update(state, floorFrame(t0.Add(5*time.Second)))
	assert.Equal(t, StatusFloorReady, res.Status)
	assert.False(t, res.StatusChanged, "identical status is not re-emitted")
	assert.Equal(t, t0.Add(1300*time.Millisecond), state.LastStatusAt)
}

func TestUpdate_TrackingWeak(t *testing.T) {
	t.Parallel()

	t.Run("planes supported but none seen", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker(DefaultConfig())
		state := NewTrackingState()
		frame := levelFrame(t0)
		frame.PlaneDetectionSupported = true

		res := tr.Update(state, frame)
		assert.Equal(t, placement.SourceEstimated, res.Placement.Source)
		assert.Equal(t, StatusTrackingWeak, res.Status)

		// Any plane, even one that yields no candidate, clears the weak state.
		frame.Time = t0.Add(2 * time.Second)
		frame.Planes = []DetectedPlane{{Position: r3.Vec{Y: -1.5}, Orientation: r3.NewRotation(math.Pi/2, r3.Vec{X: 1})}}
		res = tr.Update(state, frame)
		assert.True(t, state.PlaneSeen)
		assert.Equal(t, StatusWallEstimated, res.Status)
	})

	t.Run("no sensing support", func(t *testing.T) {
		t.Parallel()
		tr := NewTracker(DefaultConfig())
		frame := levelFrame(t0)
		frame.HitTestSupported = false

		res := tr.Update(NewTrackingState(), frame)
		require.True(t, res.HasPlacement)
		assert.Equal(t, placement.SourceEstimated, res.Placement.Source)
		assert.Equal(t, StatusTrackingWeak, res.Status)
	})
}

func TestStatusMessage(t *testing.T) {
	t.Parallel()
	for _, s := range []Status{StatusScanning, StatusFloorReady, StatusWallReady, StatusWallEstimated, StatusTrackingWeak} {
		assert.NotEmpty(t, s.Message(), s)
	}
	assert.Empty(t, StatusNone.Message())
}

func TestTrackingStateReset(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	state := NewTrackingState()
	frame := levelFrame(t0)
	frame.Hits = []RayHit{{Tag: RayWallForward, Position: r3.Vec{Z: -2}, Orientation: facing(t, r3.Vec{Z: 1})}}
	tr.Update(state, frame)
	require.NotNil(t, state.LastLockedWall)

	state.Reset()
	assert.Equal(t, TrackingState{}, *state)
}

func TestRayTag(t *testing.T) {
	t.Parallel()
	assert.False(t, RayFloor.WallSeeking())
	for _, tag := range AllRays[1:] {
		assert.True(t, tag.WallSeeking(), tag.String())
	}
	assert.Equal(t, "wall-high", RayWallHigh.String())
	assert.Equal(t, "unknown", RayTag(42).String())
}
