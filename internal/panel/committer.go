package panel

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/livepanels/internal/config"
	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/timeutil"
)

// ErrNoPlacement is returned when Place is given an invalid placement.
var ErrNoPlacement = errors.New("no valid placement")

// CommitterConfig holds the surface offsets, the panel extent and the
// dark-frame threshold.
type CommitterConfig struct {
	FloorOffset         float64
	WallOffset          float64
	EstimatedWallOffset float64
	PanelWidth          float64
	PanelHeight         float64
	DarkLumaThreshold   float64
}

// CommitterConfigFromTuning extracts the committer settings from a tuning
// config.
func CommitterConfigFromTuning(cfg *config.TuningConfig) CommitterConfig {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return CommitterConfig{
		FloorOffset:         cfg.GetFloorOffset(),
		WallOffset:          cfg.GetWallOffset(),
		EstimatedWallOffset: cfg.GetEstimatedWallOffset(),
		PanelWidth:          cfg.GetPanelWidth(),
		PanelHeight:         cfg.GetPanelHeight(),
		DarkLumaThreshold:   cfg.GetDarkLumaThreshold(),
	}
}

// Offset returns the push along the normal for a placement. Guessed walls
// sit further off the surface than tracked ones.
func (c CommitterConfig) Offset(p placement.Placement) float64 {
	switch {
	case p.Kind == placement.KindFloor:
		return c.FloorOffset
	case p.Source == placement.SourceEstimated:
		return c.EstimatedWallOffset
	default:
		return c.WallOffset
	}
}

// CreatedEvent is emitted for every committed panel.
type CreatedEvent struct {
	ID            string           `json:"id"`
	SnapshotImage []byte           `json:"snapshotImage"`
	SourceCode    string           `json:"sourceCode"`
	Placement     placement.Record `json:"placement"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// EventSink receives panel-created events. Delivery is best effort: sink
// errors are logged and never fail the placement.
type EventSink interface {
	PanelCreated(ctx context.Context, ev CreatedEvent) error
}

// Committer turns a placement into a panel in the pool.
type Committer struct {
	cfg   CommitterConfig
	pool  *Pool
	snap  Snapshotter
	clock timeutil.Clock
	sinks []EventSink

	lastGood *image.RGBA
	newID    func() string
}

// NewCommitter creates a committer. snap may be nil, in which case panels
// start from a blank image.
func NewCommitter(cfg CommitterConfig, pool *Pool, snap Snapshotter, clock timeutil.Clock, sinks ...EventSink) *Committer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Committer{
		cfg:   cfg,
		pool:  pool,
		snap:  snap,
		clock: clock,
		sinks: sinks,
		newID: func() string { return uuid.New().String() },
	}
}

// Place commits p with the given source code: offsets it along its normal,
// captures a snapshot, adds the panel to the pool and notifies the sinks.
func (c *Committer) Place(ctx context.Context, p placement.Placement, sourceCode string) (AddResult, error) {
	if err := p.Validate(); err != nil {
		return AddResult{}, fmt.Errorf("%w: %v", ErrNoPlacement, err)
	}

	transform := Transform{
		Position:    p.Offset(c.cfg.Offset(p)),
		Orientation: p.Orientation,
		Width:       c.cfg.PanelWidth,
		Height:      c.cfg.PanelHeight,
	}
	snapshot := c.captureSnapshot()

	id := c.newID()
	now := c.clock.Now()
	res, err := c.pool.Add(NewPanel{
		ID:         id,
		SourceCode: sourceCode,
		Transform:  transform,
		Placement:  p,
		CreatedAt:  now,
		Snapshot:   snapshot,
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("commit panel: %w", err)
	}

	var png []byte
	if snapshot != nil {
		if png, err = EncodePNG(snapshot); err != nil {
			opsf("panel %s: %v", id, err)
		}
	}
	ev := CreatedEvent{
		ID:            id,
		SnapshotImage: png,
		SourceCode:    sourceCode,
		Placement:     placement.ToRecord(p),
		CreatedAt:     now,
	}
	for _, s := range c.sinks {
		if err := s.PanelCreated(ctx, ev); err != nil {
			opsf("panel %s: event sink: %v", id, err)
		}
	}
	diagf("placed %s on %s", id, p)
	return res, nil
}

// captureSnapshot grabs the current visual. A near-black frame is replaced
// by the last good snapshot when one exists.
func (c *Committer) captureSnapshot() *image.RGBA {
	if c.snap == nil {
		return c.lastGood
	}
	img, err := c.snap.Snapshot()
	if err != nil {
		opsf("snapshot: %v", err)
		return c.lastGood
	}
	if luma := MeanLuma(img); luma < c.cfg.DarkLumaThreshold {
		if c.lastGood != nil {
			diagf("snapshot too dark (luma %.4f), reusing last good", luma)
			return c.lastGood
		}
		return img
	}
	c.lastGood = cloneRGBA(img)
	return img
}
