package panel

import (
	"image"
	"time"
)

// Engine is one live generative-visual rendering context.
type Engine interface {
	// Render draws the frame for elapsed session time t into dst.
	Render(dst *image.RGBA, t time.Duration) error
	// Close releases the engine's resources.
	Close() error
}

// EngineFactory creates an engine running sourceCode at the given size.
type EngineFactory func(sourceCode string, width, height int) (Engine, error)

// Snapshotter captures the currently displayed visual, which becomes the
// initial image of a new panel.
type Snapshotter interface {
	Snapshot() (*image.RGBA, error)
}

// SnapshotFunc adapts a function to Snapshotter.
type SnapshotFunc func() (*image.RGBA, error)

func (f SnapshotFunc) Snapshot() (*image.RGBA, error) { return f() }
