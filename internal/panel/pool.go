package panel

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/banshee-data/livepanels/internal/config"
	"github.com/banshee-data/livepanels/internal/placement"
)

var (
	ErrPanelNotFound = errors.New("panel not found")
	ErrDuplicateID   = errors.New("duplicate panel id")
	ErrPoolClosed    = errors.New("panel pool closed")
)

// PoolConfig bounds the pool.
type PoolConfig struct {
	MaxActiveRunners int
	MaxPlacedPanels  int
	// FreezeOnAdd freezes every existing live panel when a new one is added.
	FreezeOnAdd  bool
	RenderWidth  int
	RenderHeight int
}

// PoolConfigFromTuning extracts the pool limits from a tuning config.
func PoolConfigFromTuning(cfg *config.TuningConfig) PoolConfig {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return PoolConfig{
		MaxActiveRunners: cfg.GetMaxActiveRunners(),
		MaxPlacedPanels:  cfg.GetMaxPlacedPanels(),
		FreezeOnAdd:      cfg.GetFreezeOnAdd(),
		RenderWidth:      cfg.GetRenderWidth(),
		RenderHeight:     cfg.GetRenderHeight(),
	}
}

// NewPanel describes a panel to add.
type NewPanel struct {
	ID         string
	SourceCode string
	Transform  Transform
	Placement  placement.Placement
	CreatedAt  time.Time
	// Snapshot seeds the panel's pixels and is the static image used if
	// the engine cannot be created.
	Snapshot *image.RGBA
}

// AddResult reports what an Add did to the pool.
type AddResult struct {
	Panel   Info
	Frozen  []string
	Evicted []string
	// EngineErr is set when the live engine could not be created and the
	// panel was added Frozen instead.
	EngineErr error
}

// Pool exclusively owns all panels and enforces the live and total caps
// after every Add.
type Pool struct {
	cfg     PoolConfig
	factory EngineFactory

	mu     sync.Mutex
	panels []*Panel // insertion order, oldest first
	closed bool
}

// NewPool creates a pool. A nil factory adds every panel Frozen.
func NewPool(cfg PoolConfig, factory EngineFactory) *Pool {
	if cfg.MaxActiveRunners < 1 {
		cfg.MaxActiveRunners = 1
	}
	if cfg.MaxPlacedPanels < cfg.MaxActiveRunners {
		cfg.MaxPlacedPanels = cfg.MaxActiveRunners
	}
	return &Pool{cfg: cfg, factory: factory}
}

// Config returns the pool limits.
func (p *Pool) Config() PoolConfig {
	return p.cfg
}

// Add creates a panel, starts its engine, then freezes and evicts older
// panels until both caps hold. The new panel is Live unless its engine
// failed.
func (p *Pool) Add(np NewPanel) (AddResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return AddResult{}, ErrPoolClosed
	}
	if np.ID == "" {
		return AddResult{}, fmt.Errorf("add panel: empty id")
	}
	if p.find(np.ID) >= 0 {
		return AddResult{}, fmt.Errorf("add panel %s: %w", np.ID, ErrDuplicateID)
	}

	panel := &Panel{
		id:         np.ID,
		transform:  np.Transform,
		createdAt:  np.CreatedAt,
		sourceCode: np.SourceCode,
		placement:  np.Placement,
		pixels:     fitRGBA(np.Snapshot, p.cfg.RenderWidth, p.cfg.RenderHeight),
		state:      StateFrozen,
	}

	var res AddResult
	if p.factory == nil {
		res.EngineErr = errors.New("no engine factory")
	} else if eng, err := p.factory(np.SourceCode, p.cfg.RenderWidth, p.cfg.RenderHeight); err != nil {
		res.EngineErr = err
	} else {
		panel.engine = eng
		panel.state = StateLive
	}
	if res.EngineErr != nil {
		opsf("panel %s: engine unavailable, using snapshot: %v", np.ID, res.EngineErr)
	}

	if p.cfg.FreezeOnAdd {
		for _, old := range p.panels {
			if old.state == StateLive {
				p.freezeLocked(old, &res)
			}
		}
	}
	p.panels = append(p.panels, panel)

	for p.liveCountLocked() > p.cfg.MaxActiveRunners {
		oldest := p.oldestLiveLocked()
		if oldest == nil {
			break
		}
		p.freezeLocked(oldest, &res)
	}

	for len(p.panels) > p.cfg.MaxPlacedPanels {
		victim := p.panels[0]
		p.panels = p.panels[1:]
		if err := victim.dispose(); err != nil {
			opsf("evict %s: %v", victim.id, err)
		}
		res.Evicted = append(res.Evicted, victim.id)
		diagf("evicted %s (total cap %d)", victim.id, p.cfg.MaxPlacedPanels)
	}

	res.Panel = panel.info()
	diagf("added %s state=%s live=%d total=%d", panel.id, panel.state, p.liveCountLocked(), len(p.panels))
	return res, nil
}

func (p *Pool) freezeLocked(panel *Panel, res *AddResult) {
	if err := panel.freeze(); err != nil {
		opsf("freeze %s: %v", panel.id, err)
		return
	}
	res.Frozen = append(res.Frozen, panel.id)
	diagf("froze %s", panel.id)
}

// Tick renders every live panel once for elapsed time t. A panel whose
// engine fails to render is frozen on its last good pixels. It returns the
// number of panels rendered.
func (p *Pool) Tick(t time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	rendered := 0
	for _, panel := range p.panels {
		if panel.state != StateLive {
			continue
		}
		if err := panel.engine.Render(panel.pixels, t); err != nil {
			opsf("panel %s: render failed, freezing: %v", panel.id, err)
			if ferr := panel.freeze(); ferr != nil {
				opsf("freeze %s: %v", panel.id, ferr)
			}
			continue
		}
		rendered++
	}
	tracef("tick t=%s rendered=%d", t, rendered)
	return rendered
}

// Freeze explicitly freezes a live panel.
func (p *Pool) Freeze(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.find(id)
	if i < 0 {
		return fmt.Errorf("freeze %s: %w", id, ErrPanelNotFound)
	}
	return p.panels[i].freeze()
}

// Remove disposes a panel and drops it from the pool.
func (p *Pool) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.find(id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrPanelNotFound)
	}
	panel := p.panels[i]
	p.panels = append(p.panels[:i], p.panels[i+1:]...)
	diagf("removed %s", id)
	return panel.dispose()
}

// Close disposes every panel. The pool rejects further Adds.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, panel := range p.panels {
		if err := panel.dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	p.panels = nil
	p.closed = true
	return errors.Join(errs...)
}

// Get returns a panel by id.
func (p *Pool) Get(id string) (Info, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.find(id)
	if i < 0 {
		return Info{}, false
	}
	return p.panels[i].info(), true
}

// Panels returns all panels, oldest first.
func (p *Pool) Panels() []Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Info, len(p.panels))
	for i, panel := range p.panels {
		out[i] = panel.info()
	}
	return out
}

// Pixels returns a copy of the panel's current image.
func (p *Pool) Pixels(id string) (*image.RGBA, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.find(id)
	if i < 0 {
		return nil, false
	}
	return cloneRGBA(p.panels[i].pixels), true
}

// Len returns the total number of panels.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.panels)
}

// LiveCount returns the number of Live panels.
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveCountLocked()
}

func (p *Pool) find(id string) int {
	for i, panel := range p.panels {
		if panel.id == id {
			return i
		}
	}
	return -1
}

func (p *Pool) liveCountLocked() int {
	n := 0
	for _, panel := range p.panels {
		if panel.state == StateLive {
			n++
		}
	}
	return n
}

func (p *Pool) oldestLiveLocked() *Panel {
	for _, panel := range p.panels {
		if panel.state == StateLive {
			return panel
		}
	}
	return nil
}
