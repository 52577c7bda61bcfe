// Package panel owns placed live-visual panels: their Live/Frozen/Disposed
// lifecycle, the bounded pool that enforces the live-runner and total-count
// caps, and the committer that turns a placement into a new panel.
package panel

import (
	"errors"
	"fmt"
	"image"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/placement"
)

// State is a panel's lifecycle state.
type State int

const (
	StateLive State = iota
	StateFrozen
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateFrozen:
		return "frozen"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned for any lifecycle move other than
// Live→Frozen, Live→Disposed and Frozen→Disposed.
var ErrInvalidTransition = errors.New("invalid panel state transition")

// Transform is the world pose a panel is rendered at. Width and Height are
// the panel extent in metres along its local x and y.
type Transform struct {
	Position    r3.Vec
	Orientation r3.Rotation
	Width       float64
	Height      float64
}

// Panel is a placed visual. Only the Pool mutates it; callers see Info
// copies.
type Panel struct {
	id         string
	transform  Transform
	createdAt  time.Time
	sourceCode string
	placement  placement.Placement

	state State
	// engine is non-nil only while Live.
	engine Engine
	// pixels is the render target while Live and the static image once
	// Frozen.
	pixels *image.RGBA
}

// Info is a read-only view of a panel.
type Info struct {
	ID         string
	State      State
	Transform  Transform
	CreatedAt  time.Time
	SourceCode string
	Placement  placement.Placement
}

func (p *Panel) info() Info {
	return Info{
		ID:         p.id,
		State:      p.state,
		Transform:  p.transform,
		CreatedAt:  p.createdAt,
		SourceCode: p.sourceCode,
		Placement:  p.placement,
	}
}

// freeze captures the current pixels as the static image and releases the
// engine. One-way.
func (p *Panel) freeze() error {
	if p.state != StateLive {
		return fmt.Errorf("%w: %s -> frozen", ErrInvalidTransition, p.state)
	}
	p.pixels = cloneRGBA(p.pixels)
	if err := p.releaseEngine(); err != nil {
		opsf("panel %s: engine close on freeze: %v", p.id, err)
	}
	p.state = StateFrozen
	return nil
}

// dispose releases every resource the panel owns.
func (p *Panel) dispose() error {
	if p.state == StateDisposed {
		return fmt.Errorf("%w: %s -> disposed", ErrInvalidTransition, p.state)
	}
	if err := p.releaseEngine(); err != nil {
		opsf("panel %s: engine close on dispose: %v", p.id, err)
	}
	p.pixels = nil
	p.state = StateDisposed
	return nil
}

func (p *Panel) releaseEngine() error {
	if p.engine == nil {
		return nil
	}
	err := p.engine.Close()
	p.engine = nil
	return err
}
