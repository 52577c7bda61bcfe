package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// IntersectRayPlane intersects the ray origin + t*dir with the plane through
// point with the given normal. It returns the ray parameter t; ok is false
// when |normal·dir| < minCos (the ray is near-parallel) or the hit is
// behind the origin. dir and normal must be unit length.
func IntersectRayPlane(origin, dir, point, normal r3.Vec, minCos float64) (t float64, ok bool) {
	denom := r3.Dot(normal, dir)
	if math.Abs(denom) < minCos || math.Abs(denom) < Epsilon {
		return 0, false
	}
	t = r3.Dot(normal, r3.Sub(point, origin)) / denom
	if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, false
	}
	return t, true
}

// ProjectLocal expresses p in the local frame (origin, q) and drops the
// component along the local axis that acts as the plane normal, returning
// the remaining two coordinates. For normalAxis == AxisY this is the (x, z)
// pair that platform plane polygons are reported in.
func ProjectLocal(p, origin r3.Vec, q r3.Rotation, normalAxis r3.Vec) r2.Vec {
	local := Inverse(q).Rotate(r3.Sub(p, origin))
	if normalAxis == AxisZ {
		return r2.Vec{X: local.X, Y: local.Y}
	}
	return r2.Vec{X: local.X, Y: local.Z}
}

// PolygonFromLocal drops the normal-axis component of plane-local polygon
// vertices, matching ProjectLocal.
func PolygonFromLocal(vertices []r3.Vec, normalAxis r3.Vec) []r2.Vec {
	out := make([]r2.Vec, len(vertices))
	for i, v := range vertices {
		if normalAxis == AxisZ {
			out[i] = r2.Vec{X: v.X, Y: v.Y}
		} else {
			out[i] = r2.Vec{X: v.X, Y: v.Z}
		}
	}
	return out
}

// PointInPolygon reports whether p lies inside the simple polygon poly using
// the even-odd crossing rule. Polygons with fewer than three vertices
// contain nothing.
func PointInPolygon(p r2.Vec, poly []r2.Vec) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := range poly {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
