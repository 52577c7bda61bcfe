package placement

import (
	"bytes"
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/geom"
)

// Record is the persisted placement schema shared with the gallery and sync
// collaborators:
//
//	{ "kind": "floor"|"wall", "source": string, "position": [x,y,z],
//	  "quaternion": [x,y,z,w], "normal": [x,y,z]|null }
type Record struct {
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	Position   []float64 `json:"position"`
	Quaternion []float64 `json:"quaternion"`
	Normal     []float64 `json:"normal"`
}

// ToRecord converts p to its persisted form. The zero placement yields the
// zero Record.
func ToRecord(p Placement) Record {
	if p.IsZero() {
		return Record{}
	}
	q := p.Orientation
	return Record{
		Kind:       p.Kind.String(),
		Source:     string(p.Source),
		Position:   []float64{p.Position.X, p.Position.Y, p.Position.Z},
		Quaternion: []float64{q.Imag, q.Jmag, q.Kmag, q.Real},
		Normal:     []float64{p.Normal.X, p.Normal.Y, p.Normal.Z},
	}
}

// FromRecord converts a persisted record back into a Placement. ok is false
// for any malformed record: unknown kind or source, wrong array lengths,
// non-finite numbers, or a zero quaternion. A missing or zero normal is
// derived from the quaternion's local +Z axis.
func FromRecord(r Record) (Placement, bool) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return Placement{}, false
	}
	if len(r.Position) != 3 || len(r.Quaternion) != 4 {
		return Placement{}, false
	}
	if r.Normal != nil && len(r.Normal) != 3 {
		return Placement{}, false
	}

	pos := r3.Vec{X: r.Position[0], Y: r.Position[1], Z: r.Position[2]}
	q, ok := geom.NormalizeRotation(r3.Rotation{
		Imag: r.Quaternion[0], Jmag: r.Quaternion[1], Kmag: r.Quaternion[2], Real: r.Quaternion[3],
	})
	if !ok || !geom.Finite(pos) {
		return Placement{}, false
	}

	var normal r3.Vec
	if r.Normal != nil {
		normal = r3.Vec{X: r.Normal[0], Y: r.Normal[1], Z: r.Normal[2]}
		if !geom.Finite(normal) {
			return Placement{}, false
		}
	}
	n, ok := geom.Unit(normal)
	if !ok {
		n, ok = geom.Unit(q.Rotate(geom.AxisZ))
		if !ok {
			return Placement{}, false
		}
	}

	p := Placement{
		Kind:        kind,
		Source:      Source(r.Source),
		Position:    pos,
		Orientation: q,
		Normal:      n,
	}
	if p.Validate() != nil {
		return Placement{}, false
	}
	return p, true
}

// Marshal encodes p in the persisted JSON schema.
func Marshal(p Placement) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(ToRecord(p))
}

// Unmarshal decodes the persisted JSON schema. Anything that is not a
// well-formed placement object, including JSON null, arrays and scalars,
// yields ok == false rather than an error.
func Unmarshal(data []byte) (Placement, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Placement{}, false
	}
	var r Record
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return Placement{}, false
	}
	return FromRecord(r)
}

// ApproxEqual reports whether a and b have the same kind and source and
// componentwise equal position, orientation and normal within tol. Score is
// not part of the persisted schema and is ignored.
func ApproxEqual(a, b Placement, tol float64) bool {
	if a.Kind != b.Kind || a.Source != b.Source {
		return false
	}
	near := func(x, y float64) bool { return math.Abs(x-y) <= tol }
	vecNear := func(u, v r3.Vec) bool { return near(u.X, v.X) && near(u.Y, v.Y) && near(u.Z, v.Z) }
	qa, qb := a.Orientation, b.Orientation
	return vecNear(a.Position, b.Position) &&
		vecNear(a.Normal, b.Normal) &&
		near(qa.Real, qb.Real) && near(qa.Imag, qb.Imag) &&
		near(qa.Jmag, qb.Jmag) && near(qa.Kmag, qb.Kmag)
}
