package sim

import (
	"errors"
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/livepanels/internal/panel"
)

// ErrBadSource is returned by the engine factory for source code it
// refuses to compile.
var ErrBadSource = errors.New("source does not compile")

// GradientEngine draws a diagonal colour gradient whose hue is derived from
// the source code and drifts with time.
type GradientEngine struct {
	hue    float64
	closed bool
	frames int
}

// NewGradientEngine is a panel.EngineFactory. Empty source code, or source
// containing "error(", fails to compile.
func NewGradientEngine(sourceCode string, w, h int) (panel.Engine, error) {
	if strings.TrimSpace(sourceCode) == "" || strings.Contains(sourceCode, "error(") {
		return nil, ErrBadSource
	}
	if w <= 0 || h <= 0 {
		return nil, errors.New("render size must be positive")
	}
	f := fnv.New32a()
	_, _ = f.Write([]byte(sourceCode))
	return &GradientEngine{hue: float64(f.Sum32()%360) / 360}, nil
}

var _ panel.EngineFactory = NewGradientEngine

// Render implements panel.Engine.
func (e *GradientEngine) Render(dst *image.RGBA, t time.Duration) error {
	if e.closed {
		return errors.New("engine closed")
	}
	b := dst.Bounds()
	span := float64(b.Dx() + b.Dy())
	drift := math.Mod(t.Seconds()*0.05, 1)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pos := float64(x-b.Min.X+y-b.Min.Y) / span
			hue := math.Mod(e.hue+drift+pos*0.25, 1)
			dst.SetRGBA(x, y, hueColor(hue, 0.4+0.4*pos))
		}
	}
	e.frames++
	return nil
}

// Close implements panel.Engine.
func (e *GradientEngine) Close() error {
	e.closed = true
	return nil
}

// hueColor maps a hue in [0,1) at the given lightness to an opaque colour.
func hueColor(h, l float64) color.RGBA {
	channel := func(offset float64) uint8 {
		v := l + 0.35*math.Cos(2*math.Pi*(h-offset))
		return uint8(math.Round(255 * math.Max(0, math.Min(1, v))))
	}
	return color.RGBA{R: channel(0), G: channel(1.0 / 3), B: channel(2.0 / 3), A: 255}
}
