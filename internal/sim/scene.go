package sim

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/geom"
	"github.com/banshee-data/livepanels/internal/surface"
)

// Window is a span of scene time.
type Window struct {
	From, To time.Duration
}

func (w Window) contains(t time.Duration) bool {
	return t >= w.From && t < w.To
}

// Path scripts the camera: a lateral sway, a yaw wobble and a pitch that
// goes from level at the start of each cycle down to MaxPitchDown halfway.
type Path struct {
	Period       time.Duration
	Sway         float64 // metres
	Yaw          float64 // radians
	MaxPitchDown float64 // radians
}

// Camera returns the camera at scene time t for the given eye height.
func (p Path) Camera(t time.Duration, eye float64) surface.Camera {
	phase := 0.0
	if p.Period > 0 {
		phase = 2 * math.Pi * t.Seconds() / p.Period.Seconds()
	}
	pitch := -p.MaxPitchDown * (1 - math.Cos(phase)) / 2
	yaw := p.Yaw * math.Sin(2*phase)
	return surface.Camera{
		Position: r3.Vec{X: p.Sway * math.Sin(phase), Y: eye},
		Forward: r3.Vec{
			X: math.Sin(yaw) * math.Cos(pitch),
			Y: math.Sin(pitch),
			Z: -math.Cos(yaw) * math.Cos(pitch),
		},
	}
}

// Scene is a rectangular floor at y=0 and one wall at z=-WallDistance
// facing +Z, seen from a camera following Path.
type Scene struct {
	WallDistance float64
	WallWidth    float64
	WallHeight   float64
	FloorSize    float64
	EyeHeight    float64
	MaxRange     float64
	Path         Path

	// Planes are reported once PlaneDelay has elapsed.
	PlaneDetection bool
	PlaneDelay     time.Duration
	// Hit samples vanish inside any dropout window.
	Dropouts []Window
}

// DefaultScene is a 6m wide wall 2.5m ahead with a 12 second look-around.
func DefaultScene() *Scene {
	return &Scene{
		WallDistance:   2.5,
		WallWidth:      6,
		WallHeight:     2.6,
		FloorSize:      10,
		EyeHeight:      1.6,
		MaxRange:       8,
		PlaneDetection: true,
		PlaneDelay:     time.Second,
		Path: Path{
			Period:       12 * time.Second,
			Sway:         0.6,
			Yaw:          0.35,
			MaxPitchDown: 1.0,
		},
	}
}

var wallNormal = r3.Vec{Z: 1}

// rayDirection is the sampling direction of a ray tag relative to the
// camera forward.
func rayDirection(tag surface.RayTag, fwd r3.Vec) (r3.Vec, bool) {
	flat, ok := geom.Flatten(fwd)
	if !ok {
		flat = geom.CameraForward
	}
	var dir r3.Vec
	switch tag {
	case surface.RayFloor:
		dir = r3.Sub(r3.Scale(0.6, flat), r3.Scale(0.8, geom.Up))
	case surface.RayWallForward:
		dir = fwd
	case surface.RayWallLeft:
		dir = r3.NewRotation(0.35, geom.Up).Rotate(fwd)
	case surface.RayWallRight:
		dir = r3.NewRotation(-0.35, geom.Up).Rotate(fwd)
	case surface.RayWallHigh:
		dir = r3.Add(fwd, r3.Scale(0.35, geom.Up))
	default:
		return r3.Vec{}, false
	}
	return geom.Unit(dir)
}

// cast returns the nearest floor or wall hit along dir.
func (s *Scene) cast(origin, dir r3.Vec) (surface.RayHit, bool) {
	best := math.Inf(1)
	var hit surface.RayHit
	if dir.Y < -geom.Epsilon {
		d := -origin.Y / dir.Y
		p := r3.Add(origin, r3.Scale(d, dir))
		half := s.FloorSize / 2
		if d > 0 && d < best && math.Abs(p.X) <= half && math.Abs(p.Z) <= half {
			best = d
			hit = surface.RayHit{Position: p, Orientation: geom.Identity}
		}
	}
	if dir.Z < -geom.Epsilon {
		d := (-s.WallDistance - origin.Z) / dir.Z
		p := r3.Add(origin, r3.Scale(d, dir))
		if d > 0 && d < best && math.Abs(p.X) <= s.WallWidth/2 && p.Y >= 0 && p.Y <= s.WallHeight {
			q, ok := geom.LookRotation(wallNormal, geom.Up, geom.CameraForward)
			if ok {
				best = d
				hit = surface.RayHit{Position: p, Orientation: q}
			}
		}
	}
	if best > s.MaxRange {
		return surface.RayHit{}, false
	}
	return hit, true
}

// Planes returns the detected floor and wall planes. Floor polygons are in
// local x/z, wall polygons in local x/y.
func (s *Scene) Planes() []surface.DetectedPlane {
	wallQ, _ := geom.LookRotation(wallNormal, geom.Up, geom.CameraForward)
	fh, ww, wh := s.FloorSize/2, s.WallWidth/2, s.WallHeight/2
	return []surface.DetectedPlane{
		{
			ID:          "floor",
			Orientation: geom.Identity,
			Polygon:     []r3.Vec{{X: -fh, Z: -fh}, {X: fh, Z: -fh}, {X: fh, Z: fh}, {X: -fh, Z: fh}},
		},
		{
			ID:          "wall",
			Position:    r3.Vec{Y: wh, Z: -s.WallDistance},
			Orientation: wallQ,
			Polygon:     []r3.Vec{{X: -ww, Y: -wh}, {X: ww, Y: -wh}, {X: ww, Y: wh}, {X: -ww, Y: wh}},
		},
	}
}

// Frame samples the scene at time t. The frame time is left zero for the
// session controller to stamp; capability flags are set by the controller
// too.
func (s *Scene) Frame(t time.Duration) surface.Frame {
	cam := s.Path.Camera(t, s.EyeHeight)
	f := surface.Frame{Camera: cam}

	dropped := false
	for _, w := range s.Dropouts {
		if w.contains(t) {
			dropped = true
			break
		}
	}
	if !dropped {
		for _, tag := range surface.AllRays {
			dir, ok := rayDirection(tag, cam.Forward)
			if !ok {
				continue
			}
			if hit, ok := s.cast(cam.Position, dir); ok {
				hit.Tag = tag
				f.Hits = append(f.Hits, hit)
			}
		}
	}
	if s.PlaneDetection && t >= s.PlaneDelay {
		f.Planes = s.Planes()
	}
	return f
}
