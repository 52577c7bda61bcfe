package surface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/geom"
	"github.com/banshee-data/livepanels/internal/placement"
)

// Wall-ray score weights.
const (
	rayAlignmentWeight = 0.55
	rayProximityWeight = 0.35
	rayHeightPenalty   = 0.25
)

// Axis-wall score weights.
const (
	axisVerticalityWeight = 0.75
	axisAlignmentWeight   = 0.25
)

// candidate is a scored floor or wall target before selection.
type candidate struct {
	kind     placement.Kind
	source   placement.Source
	position r3.Vec
	normal   r3.Vec
	score    float64
}

// best keeps the highest-scoring candidate per kind. Ties keep the earlier
// candidate, so iteration order is the tie-break.
type best struct {
	floor, wall       candidate
	hasFloor, hasWall bool
}

func (b *best) offer(c candidate) {
	switch c.kind {
	case placement.KindFloor:
		if !b.hasFloor || c.score > b.floor.score {
			b.floor, b.hasFloor = c, true
		}
	case placement.KindWall:
		if !b.hasWall || c.score > b.wall.score {
			b.wall, b.hasWall = c, true
		}
	}
}

// view is the normalized camera for one frame.
type view struct {
	origin  r3.Vec
	forward r3.Vec
	// flat is the horizontal forward direction; hasFlat is false when the
	// camera looks straight up or down.
	flat    r3.Vec
	hasFlat bool
}

func newView(c Camera) (view, bool) {
	if !geom.Finite(c.Position) {
		return view{}, false
	}
	fwd, ok := geom.Unit(c.Forward)
	if !ok {
		return view{}, false
	}
	flat, hasFlat := geom.Flatten(fwd)
	return view{origin: c.Position, forward: fwd, flat: flat, hasFlat: hasFlat}, true
}

// pitch is the vertical component of the forward direction: positive when
// looking up, negative when looking down.
func (v view) pitch() float64 {
	return v.forward.Y
}

// planeCandidates casts the forward ray against every detected plane. Both
// local +Y and +Z are tried as the normal since platforms disagree on which
// carries it. Only near-vertical planes produce wall candidates.
func (t *Tracker) planeCandidates(v view, planes []DetectedPlane, b *best, d *Diagnostics) {
	cfg := t.cfg
	for _, pl := range planes {
		q, ok := geom.NormalizeRotation(pl.Orientation)
		if !ok || !geom.Finite(pl.Position) {
			d.Skipped++
			continue
		}
		for _, axis := range []r3.Vec{geom.AxisY, geom.AxisZ} {
			n, ok := geom.Unit(q.Rotate(axis))
			if !ok {
				continue
			}
			vert := geom.Verticality(n)
			if vert < cfg.WallVerticalityMin {
				continue
			}
			n = geom.FaceToward(n, pl.Position, v.origin)
			dist, ok := geom.IntersectRayPlane(v.origin, v.forward, pl.Position, n, cfg.PlaneParallelMin)
			if !ok || dist < cfg.PlaneMinDistance || dist > cfg.PlaneMaxDistance {
				continue
			}
			hit := r3.Add(v.origin, r3.Scale(dist, v.forward))
			if len(pl.Polygon) >= 3 {
				local := geom.ProjectLocal(hit, pl.Position, q, axis)
				if !geom.PointInPolygon(local, geom.PolygonFromLocal(pl.Polygon, axis)) {
					continue
				}
			}
			d.PlaneCandidates++
			b.offer(candidate{
				kind:     placement.KindWall,
				source:   placement.SourceDetectedPlane,
				position: hit,
				normal:   n,
				score:    vert + 1/math.Max(1, dist),
			})
			tracef("plane %s axis=%v vert=%.3f dist=%.3f", pl.ID, axis, vert, dist)
		}
	}
}

// rayGeometry is the camera-relative geometry of a hit sample.
type rayGeometry struct {
	dist       float64
	heightDiff float64
	// drop is how far the point lies below the camera; negative above it.
	drop      float64
	alignment float64
}

func (v view) measure(p r3.Vec) rayGeometry {
	delta := r3.Sub(p, v.origin)
	g := rayGeometry{
		dist:       r3.Norm(delta),
		heightDiff: math.Abs(delta.Y),
		drop:       -delta.Y,
	}
	if horiz, ok := geom.Flatten(delta); ok && v.hasFlat {
		g.alignment = r3.Dot(horiz, v.flat)
	}
	return g
}

// wallNormal picks the more vertical of the hit's two candidate axes,
// flattened to horizontal and turned toward the viewer. When neither axis
// has a horizontal component the direction back to the camera is used.
func wallNormal(h RayHit, viewer r3.Vec) (r3.Vec, bool) {
	if q, ok := geom.NormalizeRotation(h.Orientation); ok {
		y, z := geom.Axes(q)
		axis := y
		if geom.Verticality(z) > geom.Verticality(y) {
			axis = z
		}
		if n, ok := geom.Flatten(axis); ok {
			return geom.FaceToward(n, h.Position, viewer), true
		}
	}
	return geom.Flatten(r3.Sub(viewer, h.Position))
}

// rayCandidates scores wall-seeking samples by alignment with the camera
// heading, proximity and height difference. If no sample passes the gate,
// the first usable one in front of the camera is kept at the last-resort
// score.
func (t *Tracker) rayCandidates(v view, hits []RayHit, b *best, d *Diagnostics) {
	cfg := t.cfg
	var lastResort *candidate
	passed := false
	for _, h := range hits {
		if !h.Tag.WallSeeking() {
			continue
		}
		if !geom.Finite(h.Position) {
			d.Skipped++
			continue
		}
		n, ok := wallNormal(h, v.origin)
		if !ok {
			d.Skipped++
			continue
		}
		g := v.measure(h.Position)
		if g.alignment < cfg.RayMinAlignment ||
			g.dist < cfg.RayMinDistance || g.dist > cfg.RayMaxDistance ||
			g.heightDiff > cfg.RayMaxHeightDiff {
			if lastResort == nil && g.dist > geom.Epsilon && g.alignment > 0 {
				lastResort = &candidate{
					kind:     placement.KindWall,
					source:   placement.SourceRaySample,
					position: h.Position,
					normal:   n,
					score:    cfg.RayLastResortScore,
				}
			}
			continue
		}
		score := rayAlignmentWeight*g.alignment +
			rayProximityWeight*(1-g.dist/cfg.RayMaxDistance) -
			rayHeightPenalty*(g.heightDiff/cfg.RayMaxHeightDiff)
		passed = true
		d.RayCandidates++
		b.offer(candidate{
			kind:     placement.KindWall,
			source:   placement.SourceRaySample,
			position: h.Position,
			normal:   n,
			score:    score,
		})
		tracef("ray %s align=%.3f dist=%.3f dh=%.3f score=%.3f", h.Tag, g.alignment, g.dist, g.heightDiff, score)
	}
	if !passed && lastResort != nil {
		d.LastResort = true
		b.offer(*lastResort)
	}
}

// axisCandidates tests both local axes of every hit. An axis close to world
// up yields a floor candidate if the hit lies well below the camera; a
// near-horizontal axis yields a wall candidate if it is reasonably aligned
// with the heading, far enough away and not too far above or below the
// camera. A wall-seeking hit whose pose reads as both is taken as a wall.
func (t *Tracker) axisCandidates(v view, hits []RayHit, b *best, d *Diagnostics) {
	cfg := t.cfg
	for _, h := range hits {
		if !geom.Finite(h.Position) {
			continue
		}
		q, ok := geom.NormalizeRotation(h.Orientation)
		if !ok {
			continue
		}
		g := v.measure(h.Position)
		var (
			floor    candidate
			hasFloor bool
			hasWall  bool
		)
		for _, axis := range []r3.Vec{geom.AxisY, geom.AxisZ} {
			n, ok := geom.Unit(q.Rotate(axis))
			if !ok {
				continue
			}
			upness := math.Abs(r3.Dot(n, geom.Up))
			if upness >= cfg.FloorMinUpness {
				if g.drop >= cfg.FloorMinDrop && (!hasFloor || upness > floor.score) {
					floor = candidate{
						kind:     placement.KindFloor,
						source:   placement.SourceRaySample,
						position: h.Position,
						normal:   geom.Up,
						score:    upness,
					}
					hasFloor = true
				}
				continue
			}
			flat, ok := geom.Flatten(n)
			if !ok {
				continue
			}
			score := axisVerticalityWeight*(1-upness) + axisAlignmentWeight*math.Max(0, g.alignment)
			if score <= cfg.AxisWallMinScore || g.dist <= cfg.AxisWallMinDistance ||
				g.heightDiff >= cfg.AxisWallMaxHeightDiff {
				continue
			}
			hasWall = true
			d.AxisWalls++
			b.offer(candidate{
				kind:     placement.KindWall,
				source:   placement.SourceRaySample,
				position: h.Position,
				normal:   geom.FaceToward(flat, h.Position, v.origin),
				score:    score,
			})
		}
		if hasFloor && !(hasWall && h.Tag.WallSeeking()) {
			d.AxisFloors++
			b.offer(floor)
		}
	}
}
