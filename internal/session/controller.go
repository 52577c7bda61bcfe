// Package session drives the per-frame placement loop: it owns the platform
// session state machine, the sample sources bound to it, the tracking state
// and the preview visual, and runs one tracker + commit + render tick per
// platform frame.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/banshee-data/livepanels/internal/config"
	"github.com/banshee-data/livepanels/internal/panel"
	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/surface"
	"github.com/banshee-data/livepanels/internal/timeutil"
)

// State is the session lifecycle state.
type State int

const (
	StateInactive State = iota
	StateActive
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotActive     = errors.New("session not active")
	ErrAlreadyActive = errors.New("session already active")
)

// Config bundles the settings of every component the controller drives.
type Config struct {
	Tracker   surface.Config
	Pool      panel.PoolConfig
	Committer panel.CommitterConfig
}

// ConfigFromTuning derives a controller config from a tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Tracker:   surface.ConfigFromTuning(cfg),
		Pool:      panel.PoolConfigFromTuning(cfg),
		Committer: panel.CommitterConfigFromTuning(cfg),
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to stamp frames and sessions.
func WithClock(c timeutil.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithRecorder attaches a frame recorder.
func WithRecorder(r FrameRecorder) Option {
	return func(ctl *Controller) { ctl.recorder = r }
}

// WithEventSink adds a panel-created event sink.
func WithEventSink(s panel.EventSink) Option {
	return func(ctl *Controller) { ctl.sinks = append(ctl.sinks, s) }
}

// RenderCommand is what the host draws after a tick.
type RenderCommand struct {
	// Reticle is the current placement target; ShowReticle is false when
	// there is none.
	Reticle     placement.Placement
	ShowReticle bool

	Status        surface.Status
	StatusMessage string
	StatusChanged bool

	// Committed is set on the tick a panel was placed.
	Committed *panel.AddResult
	// Panels lists every panel, oldest first.
	Panels []panel.Info
	// Rendered is the number of live panels polled this tick.
	Rendered int
}

// Controller runs one session at a time.
type Controller struct {
	cfg       Config
	platform  Platform
	factory   panel.EngineFactory
	tracker   *surface.Tracker
	pool      *panel.Pool
	committer *panel.Committer
	clock     timeutil.Clock
	recorder  FrameRecorder
	sinks     []panel.EventSink

	mu         sync.Mutex
	state      State
	id         string
	startedAt  time.Time
	caps       Capabilities
	camera     CameraStream
	sources    []SampleSource
	tracking   *surface.TrackingState
	seq        int
	selectReq  bool
	sourceCode string
	preview    panel.Engine
	pixels     *image.RGBA
}

// NewController wires a tracker, pool and committer around platform. The
// factory creates both the preview visual and panel engines.
func NewController(cfg Config, platform Platform, factory panel.EngineFactory, opts ...Option) *Controller {
	c := &Controller{
		cfg:        cfg,
		platform:   platform,
		factory:    factory,
		tracker:    surface.NewTracker(cfg.Tracker),
		pool:       panel.NewPool(cfg.Pool, factory),
		clock:      timeutil.RealClock{},
		tracking:   surface.NewTrackingState(),
		sourceCode: DefaultSourceCode,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.committer = panel.NewCommitter(cfg.Committer, c.pool, panel.SnapshotFunc(c.snapshot), c.clock, c.sinks...)
	return c
}

// Pool returns the panel pool.
func (c *Controller) Pool() *panel.Pool {
	return c.pool
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID returns the current session id, or "" when inactive.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Capabilities returns the sensing capabilities of the active session.
func (c *Controller) Capabilities() Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// SourceCode returns the current visual source.
func (c *Controller) SourceCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceCode
}

// Start begins a session: it starts the platform session, takes the camera
// and opens one sample source per ray. Missing hit-test support degrades
// the tracker but is not an error; a camera failure is.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInactive {
		return ErrAlreadyActive
	}

	caps, err := c.platform.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start platform session: %w", err)
	}
	camera, err := c.platform.AcquireCamera(ctx)
	if err != nil {
		if endErr := c.platform.EndSession(); endErr != nil {
			opsf("end platform session after camera failure: %v", endErr)
		}
		return fmt.Errorf("acquire camera: %w", err)
	}

	c.camera = camera
	c.caps = caps
	c.sources = nil
	if caps.HitTest {
		for _, tag := range surface.AllRays {
			src, err := c.platform.OpenSampleSource(ctx, tag)
			if err != nil {
				opsf("open %s sample source: %v", tag, err)
				continue
			}
			c.sources = append(c.sources, src)
		}
		if len(c.sources) == 0 {
			opsf("no sample sources available, tracking degrades to estimated walls")
		}
	}

	c.tracking.Reset()
	c.id = xid.New().String()
	c.startedAt = c.clock.Now()
	c.seq = 0
	c.selectReq = false
	c.startPreviewLocked(c.sourceCode)
	c.state = StateActive

	if c.recorder != nil {
		info := Info{ID: c.id, StartedAt: c.startedAt, Capabilities: c.caps, SourceCode: c.sourceCode}
		if err := c.recorder.SessionStarted(ctx, info); err != nil {
			opsf("record session start: %v", err)
		}
	}
	diagf("session %s started hit_test=%v planes=%v sources=%d", c.id, caps.HitTest, caps.PlaneDetection, len(c.sources))
	return nil
}

// RequestSelect asks for the current placement to be committed on the next
// tick. Repeated requests before that tick collapse into one.
func (c *Controller) RequestSelect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return ErrNotActive
	}
	c.selectReq = true
	return nil
}

// openHitsLocked returns the hits whose ray has an open sample source.
func (c *Controller) openHitsLocked(hits []surface.RayHit) []surface.RayHit {
	if len(hits) == 0 || len(c.sources) == 0 {
		return nil
	}
	open := make(map[surface.RayTag]bool, len(c.sources))
	for _, src := range c.sources {
		open[src.Tag()] = true
	}
	kept := make([]surface.RayHit, 0, len(hits))
	for _, h := range hits {
		if open[h.Tag] {
			kept = append(kept, h)
		}
	}
	return kept
}

// Tick runs one frame: tracker update, at most one commit, preview render
// and live panel polling. A zero frame time is stamped from the clock.
func (c *Controller) Tick(ctx context.Context, frame surface.Frame) (RenderCommand, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return RenderCommand{}, ErrNotActive
	}
	if frame.Time.IsZero() {
		frame.Time = c.clock.Now()
	}
	frame.HitTestSupported = c.caps.HitTest && len(c.sources) > 0
	frame.PlaneDetectionSupported = c.caps.PlaneDetection
	frame.Hits = c.openHitsLocked(frame.Hits)
	if !frame.PlaneDetectionSupported {
		frame.Planes = nil
	}

	res := c.tracker.Update(c.tracking, frame)
	elapsed := frame.Time.Sub(c.startedAt)
	c.renderPreviewLocked(elapsed)

	cmd := RenderCommand{
		Reticle:       res.Placement,
		ShowReticle:   res.HasPlacement,
		Status:        res.Status,
		StatusMessage: res.Status.Message(),
		StatusChanged: res.StatusChanged,
	}

	var committedID string
	if c.selectReq {
		c.selectReq = false
		if res.HasPlacement {
			added, err := c.committer.Place(ctx, res.Placement, c.sourceCode)
			if err != nil {
				opsf("commit failed: %v", err)
			} else {
				cmd.Committed = &added
				committedID = added.Panel.ID
			}
		} else {
			diagf("select ignored: no placement")
		}
	}

	cmd.Rendered = c.pool.Tick(elapsed)
	cmd.Panels = c.pool.Panels()

	if c.recorder != nil {
		rec := FrameRecord{SessionID: c.id, Seq: c.seq, Frame: frame, Result: res, CommittedID: committedID}
		if err := c.recorder.FrameRecorded(ctx, rec); err != nil {
			opsf("record frame %d: %v", c.seq, err)
		}
	}
	c.seq++
	tracef("tick %d status=%s reticle=%v rendered=%d", c.seq, res.Status, res.HasPlacement, cmd.Rendered)
	return cmd, nil
}

// End tears the session down: every sample source is cancelled, the camera
// is released and the tracking state is cleared so the next session starts
// cold. Panels survive; Close disposes them.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return ErrNotActive
	}
	c.state = StateEnding

	var errs []error
	for _, src := range c.sources {
		if err := src.Cancel(); err != nil {
			errs = append(errs, fmt.Errorf("cancel %s source: %w", src.Tag(), err))
		}
	}
	c.sources = nil
	if c.camera != nil {
		if err := c.camera.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release camera: %w", err))
		}
		c.camera = nil
	}
	if err := c.platform.EndSession(); err != nil {
		errs = append(errs, fmt.Errorf("end platform session: %w", err))
	}
	c.stopPreviewLocked()
	c.tracking.Reset()
	c.selectReq = false

	if c.recorder != nil {
		if err := c.recorder.SessionEnded(ctx, c.id, c.clock.Now()); err != nil {
			opsf("record session end: %v", err)
		}
	}
	diagf("session %s ended after %d frames", c.id, c.seq)
	c.id = ""
	c.caps = Capabilities{}
	c.state = StateInactive
	return errors.Join(errs...)
}

// Close ends any active session and disposes every panel.
func (c *Controller) Close(ctx context.Context) error {
	var errs []error
	if c.State() == StateActive {
		if err := c.End(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TrackingState returns a copy of the tracker memory.
func (c *Controller) TrackingState() surface.TrackingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.tracking
}
