package session

import (
	"fmt"
	"image"
	"time"
)

// SetSourceCode swaps the preview visual. If the new source does not build
// the previous visual keeps running and the error is returned. Panels
// placed afterwards carry the new source.
func (c *Controller) SetSourceCode(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive && c.factory != nil {
		eng, err := c.factory(code, c.cfg.Pool.RenderWidth, c.cfg.Pool.RenderHeight)
		if err != nil {
			return fmt.Errorf("run source: %w", err)
		}
		c.stopPreviewLocked()
		c.preview = eng
		c.pixels = image.NewRGBA(image.Rect(0, 0, c.cfg.Pool.RenderWidth, c.cfg.Pool.RenderHeight))
	}
	c.sourceCode = code
	diagf("source code updated (%d bytes)", len(code))
	return nil
}

// ResetSourceCode restores DefaultSourceCode.
func (c *Controller) ResetSourceCode() error {
	return c.SetSourceCode(DefaultSourceCode)
}

func (c *Controller) startPreviewLocked(code string) {
	c.pixels = image.NewRGBA(image.Rect(0, 0, c.cfg.Pool.RenderWidth, c.cfg.Pool.RenderHeight))
	if c.factory == nil {
		return
	}
	eng, err := c.factory(code, c.cfg.Pool.RenderWidth, c.cfg.Pool.RenderHeight)
	if err != nil {
		opsf("preview engine: %v", err)
		return
	}
	c.preview = eng
}

func (c *Controller) renderPreviewLocked(t time.Duration) {
	if c.preview == nil {
		return
	}
	if err := c.preview.Render(c.pixels, t); err != nil {
		opsf("preview render: %v", err)
	}
}

func (c *Controller) stopPreviewLocked() {
	if c.preview == nil {
		return
	}
	if err := c.preview.Close(); err != nil {
		opsf("preview close: %v", err)
	}
	c.preview = nil
}

// snapshot returns the preview image for the committer. It runs inside
// Tick, which already holds c.mu.
func (c *Controller) snapshot() (*image.RGBA, error) {
	if c.pixels == nil {
		return nil, fmt.Errorf("no preview frame")
	}
	out := image.NewRGBA(c.pixels.Bounds())
	copy(out.Pix, c.pixels.Pix)
	return out, nil
}
