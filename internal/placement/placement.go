// Package placement defines the per-frame placement target produced by the
// surface tracker and consumed by the panel committer, plus its persistence
// schema.
package placement

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/geom"
)

// Kind is the kind of surface a placement sits on.
type Kind int

const (
	KindNone Kind = iota
	KindFloor
	KindWall
)

// String returns the schema name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFloor:
		return "floor"
	case KindWall:
		return "wall"
	default:
		return "none"
	}
}

// ParseKind parses a schema kind name.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "floor":
		return KindFloor, nil
	case "wall":
		return KindWall, nil
	default:
		return KindNone, fmt.Errorf("unknown placement kind %q", s)
	}
}

// Source records which evidence produced a placement.
type Source string

const (
	SourceDetectedPlane Source = "detected-plane"
	SourceRaySample     Source = "ray-sample"
	SourceLockedWall    Source = "locked-wall"
	SourceEstimated     Source = "estimated"
)

func (s Source) valid() bool {
	switch s {
	case SourceDetectedPlane, SourceRaySample, SourceLockedWall, SourceEstimated:
		return true
	}
	return false
}

var (
	ErrInvalidKind      = errors.New("invalid placement kind")
	ErrInvalidSource    = errors.New("invalid placement source")
	ErrSourceForKind    = errors.New("source not allowed for kind")
	ErrDegenerateNormal = errors.New("placement normal is zero or non-finite")
	ErrNonFinite        = errors.New("placement has non-finite values")
)

// Placement is an immutable, single-frame placement target.
//
// Normal is unit length and outward-facing; Orientation maps local +Z onto
// Normal. Score is relative within a kind and not comparable across kinds.
type Placement struct {
	Kind        Kind
	Source      Source
	Position    r3.Vec
	Orientation r3.Rotation
	Normal      r3.Vec
	Score       float64
}

// NewFloor builds a floor placement at position. The panel's local +Y is
// aligned with away (usually the camera's flattened forward direction) so
// it reads upright from where the user stands.
func NewFloor(src Source, position, away r3.Vec, score float64) (Placement, error) {
	if src != SourceDetectedPlane && src != SourceRaySample {
		return Placement{}, fmt.Errorf("%w: %s for floor", ErrSourceForKind, src)
	}
	q, ok := geom.LookRotation(geom.Up, away, geom.CameraForward)
	if !ok {
		return Placement{}, ErrDegenerateNormal
	}
	p := Placement{
		Kind:        KindFloor,
		Source:      src,
		Position:    position,
		Orientation: q,
		Normal:      geom.Up,
		Score:       score,
	}
	return p, p.Validate()
}

// NewWall builds an upright wall placement facing along normal.
func NewWall(src Source, position, normal r3.Vec, score float64) (Placement, error) {
	n, ok := geom.Unit(normal)
	if !ok {
		return Placement{}, ErrDegenerateNormal
	}
	q, ok := geom.LookRotation(n, geom.Up, geom.CameraForward)
	if !ok {
		return Placement{}, ErrDegenerateNormal
	}
	p := Placement{
		Kind:        KindWall,
		Source:      src,
		Position:    position,
		Orientation: q,
		Normal:      n,
		Score:       score,
	}
	return p, p.Validate()
}

// Validate checks the placement's invariants.
func (p Placement) Validate() error {
	switch p.Kind {
	case KindFloor:
		if p.Source != SourceDetectedPlane && p.Source != SourceRaySample {
			return fmt.Errorf("%w: %s for floor", ErrSourceForKind, p.Source)
		}
	case KindWall:
		if !p.Source.valid() {
			return fmt.Errorf("%w: %q", ErrInvalidSource, p.Source)
		}
	default:
		return ErrInvalidKind
	}
	if !geom.Finite(p.Position) || math.IsNaN(p.Score) || math.IsInf(p.Score, 0) {
		return ErrNonFinite
	}
	if !geom.Finite(p.Normal) || math.Abs(r3.Norm(p.Normal)-1) > 1e-6 {
		return ErrDegenerateNormal
	}
	if _, ok := geom.NormalizeRotation(p.Orientation); !ok {
		return ErrNonFinite
	}
	return nil
}

// IsZero reports whether p is the zero placement ("no placement").
func (p Placement) IsZero() bool {
	return p.Kind == KindNone
}

// Offset returns the placement's position pushed d metres along its normal.
func (p Placement) Offset(d float64) r3.Vec {
	return r3.Add(p.Position, r3.Scale(d, p.Normal))
}

// String returns a compact human-readable form for logs.
func (p Placement) String() string {
	if p.IsZero() {
		return "placement(none)"
	}
	return fmt.Sprintf("placement(%s/%s pos=(%.2f,%.2f,%.2f) n=(%.2f,%.2f,%.2f) score=%.3f)",
		p.Kind, p.Source,
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Normal.X, p.Normal.Y, p.Normal.Z, p.Score)
}
