// Package report renders replay timelines and sweep results: PNG score
// timelines with gonum/plot and an HTML dashboard with go-echarts.
package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/replay"
)

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// scorePlot builds the floor/wall score timeline with markers on the frames
// where the reticle changed kind.
func scorePlot(title string, timeline []replay.Sample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Score"

	floorPts := make(plotter.XYs, 0, len(timeline))
	wallPts := make(plotter.XYs, 0, len(timeline))
	var switchPts plotter.XYs
	prev := placement.KindNone
	for _, s := range timeline {
		x := s.Elapsed.Seconds()
		if s.FloorScore >= 0 {
			floorPts = append(floorPts, plotter.XY{X: x, Y: s.FloorScore})
		}
		if s.WallScore >= 0 {
			wallPts = append(wallPts, plotter.XY{X: x, Y: s.WallScore})
		}
		if s.Kind != placement.KindNone {
			if prev != placement.KindNone && prev != s.Kind {
				switchPts = append(switchPts, plotter.XY{X: x, Y: 0})
			}
			prev = s.Kind
		}
	}

	colors := generateColors(3)
	if len(floorPts) > 0 {
		line, err := plotter.NewLine(floorPts)
		if err != nil {
			return nil, err
		}
		line.Color = colors[0]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("floor", line)
	}
	if len(wallPts) > 0 {
		line, err := plotter.NewLine(wallPts)
		if err != nil {
			return nil, err
		}
		line.Color = colors[1]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("wall", line)
	}
	if len(switchPts) > 0 {
		sc, err := plotter.NewScatter(switchPts)
		if err != nil {
			return nil, err
		}
		sc.Color = colors[2]
		sc.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("kind switch", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteTimelinePNG renders the score timeline as PNG to w.
func WriteTimelinePNG(w io.Writer, title string, timeline []replay.Sample) error {
	p, err := scorePlot(title, timeline)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write timeline png: %w", err)
	}
	return nil
}

// SaveTimeline writes <dir>/<name>_scores.png and returns its path.
func SaveTimeline(dir, name string, timeline []replay.Sample) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	p, err := scorePlot(fmt.Sprintf("%s - placement scores", name), timeline)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"_scores.png")
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return "", fmt.Errorf("save score plot: %w", err)
	}
	return path, nil
}

// generateColors creates a palette of n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
