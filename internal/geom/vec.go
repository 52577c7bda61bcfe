package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the length below which a vector is treated as degenerate.
const Epsilon = 1e-9

var (
	// Up is world-up.
	Up = r3.Vec{Y: 1}
	// AxisY and AxisZ are the two local axes tested as candidate normals
	// on hit poses and detected planes.
	AxisY = r3.Vec{Y: 1}
	AxisZ = r3.Vec{Z: 1}
	// CameraForward is the forward direction of an unrotated camera.
	CameraForward = r3.Vec{Z: -1}
)

// Identity is the identity rotation.
var Identity = r3.Rotation{Real: 1}

// Finite reports whether every component of v is a finite number.
func Finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Unit returns v scaled to unit length. ok is false for zero-length or
// non-finite input, where r3.Unit would return NaNs.
func Unit(v r3.Vec) (r3.Vec, bool) {
	if !Finite(v) {
		return r3.Vec{}, false
	}
	n := r3.Norm(v)
	if n < Epsilon {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}

// Flatten projects v onto the horizontal plane and normalizes it.
func Flatten(v r3.Vec) (r3.Vec, bool) {
	return Unit(r3.Vec{X: v.X, Z: v.Z})
}

// Verticality is 1 - |n·up|: 1 for a wall, 0 for a floor or ceiling.
// n must be unit length.
func Verticality(n r3.Vec) float64 {
	return 1 - math.Abs(r3.Dot(n, Up))
}

// FaceToward flips n if needed so that it points from surfacePoint toward
// viewer.
func FaceToward(n, surfacePoint, viewer r3.Vec) r3.Vec {
	if r3.Dot(n, r3.Sub(viewer, surfacePoint)) < 0 {
		return r3.Scale(-1, n)
	}
	return n
}

// NormalizeRotation returns q scaled to unit norm. ok is false for a zero or
// non-finite quaternion.
func NormalizeRotation(q r3.Rotation) (r3.Rotation, bool) {
	qn := quat.Number(q)
	if quat.IsNaN(qn) || quat.IsInf(qn) {
		return r3.Rotation{}, false
	}
	n := quat.Abs(qn)
	if n < Epsilon {
		return r3.Rotation{}, false
	}
	return r3.Rotation(quat.Scale(1/n, qn)), true
}

// Inverse returns the inverse of a unit rotation.
func Inverse(q r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Conj(quat.Number(q)))
}

// Axes returns the world directions of the local +Y and +Z axes of q.
func Axes(q r3.Rotation) (y, z r3.Vec) {
	return q.Rotate(AxisY), q.Rotate(AxisZ)
}

// FromBasis returns the rotation whose columns are the orthonormal basis
// x, y, z (right-handed).
func FromBasis(x, y, z r3.Vec) r3.Rotation {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var w, qx, qy, qz float64
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		w = 0.25 / s
		qx = (m21 - m12) * s
		qy = (m02 - m20) * s
		qz = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		w = (m21 - m12) / s
		qx = 0.25 * s
		qy = (m01 + m10) / s
		qz = (m02 + m20) / s
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		w = (m02 - m20) / s
		qx = (m01 + m10) / s
		qy = 0.25 * s
		qz = (m12 + m21) / s
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		w = (m10 - m01) / s
		qx = (m02 + m20) / s
		qy = (m12 + m21) / s
		qz = 0.25 * s
	}
	q, ok := NormalizeRotation(r3.Rotation{Real: w, Imag: qx, Jmag: qy, Kmag: qz})
	if !ok {
		return Identity
	}
	return q
}

// LookRotation returns the orientation whose local +Z is normal and whose
// local +Y is as close to upHint as the normal allows. When upHint is
// parallel to normal, fallback is used instead. ok is false if normal is
// degenerate or both hints are parallel to it.
func LookRotation(normal, upHint, fallback r3.Vec) (r3.Rotation, bool) {
	z, ok := Unit(normal)
	if !ok {
		return r3.Rotation{}, false
	}
	x, ok := Unit(r3.Cross(upHint, z))
	if !ok {
		if x, ok = Unit(r3.Cross(fallback, z)); !ok {
			return r3.Rotation{}, false
		}
	}
	y := r3.Cross(z, x)
	return FromBasis(x, y, z), true
}
