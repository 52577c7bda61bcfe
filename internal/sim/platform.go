// Package sim runs the placement loop headless: a synthetic device
// platform, a room scene that produces tracker frames along a scripted
// camera path, and a gradient visual engine.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/livepanels/internal/session"
	"github.com/banshee-data/livepanels/internal/surface"
)

var (
	ErrSessionActive  = errors.New("platform session already active")
	ErrNoSession      = errors.New("no platform session")
	ErrCameraBusy     = errors.New("camera already held")
	ErrRayUnavailable = errors.New("ray source unavailable")
)

// Platform is an in-memory session.Platform.
type Platform struct {
	Caps session.Capabilities
	// CameraErr, when set, is returned by AcquireCamera.
	CameraErr error
	// Unavailable rays fail to open.
	Unavailable map[surface.RayTag]bool

	mu       sync.Mutex
	active   bool
	camera   bool
	sources  map[surface.RayTag]*sampleSource
	sessions int
}

var _ session.Platform = (*Platform)(nil)

// NewPlatform returns a platform granting caps.
func NewPlatform(caps session.Capabilities) *Platform {
	return &Platform{Caps: caps, sources: map[surface.RayTag]*sampleSource{}}
}

// StartSession implements session.Platform.
func (p *Platform) StartSession(ctx context.Context) (session.Capabilities, error) {
	if err := ctx.Err(); err != nil {
		return session.Capabilities{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return session.Capabilities{}, ErrSessionActive
	}
	p.active = true
	p.sessions++
	return p.Caps, nil
}

// AcquireCamera implements session.Platform.
func (p *Platform) AcquireCamera(ctx context.Context) (session.CameraStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case !p.active:
		return nil, ErrNoSession
	case p.CameraErr != nil:
		return nil, p.CameraErr
	case p.camera:
		return nil, ErrCameraBusy
	}
	p.camera = true
	return &cameraStream{p: p}, nil
}

// OpenSampleSource implements session.Platform.
func (p *Platform) OpenSampleSource(ctx context.Context, tag surface.RayTag) (session.SampleSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return nil, ErrNoSession
	}
	if !p.Caps.HitTest || p.Unavailable[tag] {
		return nil, fmt.Errorf("%s: %w", tag, ErrRayUnavailable)
	}
	if p.sources == nil {
		p.sources = map[surface.RayTag]*sampleSource{}
	}
	src := &sampleSource{p: p, tag: tag}
	p.sources[tag] = src
	return src, nil
}

// EndSession implements session.Platform.
func (p *Platform) EndSession() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return ErrNoSession
	}
	p.active = false
	return nil
}

// Active reports whether a platform session is running.
func (p *Platform) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// CameraHeld reports whether the camera is acquired.
func (p *Platform) CameraHeld() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.camera
}

// OpenSources returns the number of sample sources not yet cancelled.
func (p *Platform) OpenSources() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sources)
}

// Sessions returns how many platform sessions were started.
func (p *Platform) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions
}

type cameraStream struct {
	p    *Platform
	once sync.Once
}

func (c *cameraStream) Release() error {
	released := false
	c.once.Do(func() {
		c.p.mu.Lock()
		c.p.camera = false
		c.p.mu.Unlock()
		released = true
	})
	if !released {
		return errors.New("camera already released")
	}
	return nil
}

type sampleSource struct {
	p   *Platform
	tag surface.RayTag
}

func (s *sampleSource) Tag() surface.RayTag { return s.tag }

func (s *sampleSource) Cancel() error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if s.p.sources[s.tag] != s {
		return fmt.Errorf("%s source already cancelled", s.tag)
	}
	delete(s.p.sources, s.tag)
	return nil
}
