package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds every tunable constant of the placement engine and the
// panel pool. Nil fields fall back to the built-in defaults returned by the
// Get* accessors, so partial files are safe.
//
// Most surface thresholds were tuned by hand on a handful of phones and have
// no derivation; they live here so recorded sessions can be replayed against
// alternatives (see internal/replay).
type TuningConfig struct {
	// Plane path
	WallVerticalityMin *float64 `json:"wall_verticality_min,omitempty" yaml:"wall_verticality_min,omitempty"`
	PlaneParallelMin   *float64 `json:"plane_parallel_min,omitempty" yaml:"plane_parallel_min,omitempty"`
	PlaneMinDistance   *float64 `json:"plane_min_distance,omitempty" yaml:"plane_min_distance,omitempty"`
	PlaneMaxDistance   *float64 `json:"plane_max_distance,omitempty" yaml:"plane_max_distance,omitempty"`

	// Wall-seeking ray path
	RayMinAlignment    *float64 `json:"ray_min_alignment,omitempty" yaml:"ray_min_alignment,omitempty"`
	RayMinDistance     *float64 `json:"ray_min_distance,omitempty" yaml:"ray_min_distance,omitempty"`
	RayMaxDistance     *float64 `json:"ray_max_distance,omitempty" yaml:"ray_max_distance,omitempty"`
	RayMaxHeightDiff   *float64 `json:"ray_max_height_diff,omitempty" yaml:"ray_max_height_diff,omitempty"`
	RayLastResortScore *float64 `json:"ray_last_resort_score,omitempty" yaml:"ray_last_resort_score,omitempty"`

	// Per-hit axis path
	AxisWallMinScore      *float64 `json:"axis_wall_min_score,omitempty" yaml:"axis_wall_min_score,omitempty"`
	AxisWallMinDistance   *float64 `json:"axis_wall_min_distance,omitempty" yaml:"axis_wall_min_distance,omitempty"`
	AxisWallMaxHeightDiff *float64 `json:"axis_wall_max_height_diff,omitempty" yaml:"axis_wall_max_height_diff,omitempty"`
	FloorMinUpness        *float64 `json:"floor_min_upness,omitempty" yaml:"floor_min_upness,omitempty"`
	FloorMinDrop          *float64 `json:"floor_min_drop,omitempty" yaml:"floor_min_drop,omitempty"`

	// Selection
	LevelWallBias     *float64 `json:"level_wall_bias,omitempty" yaml:"level_wall_bias,omitempty"`
	LevelPitchLimit   *float64 `json:"level_pitch_limit,omitempty" yaml:"level_pitch_limit,omitempty"`
	DownFloorBias     *float64 `json:"down_floor_bias,omitempty" yaml:"down_floor_bias,omitempty"`
	DownPitch         *float64 `json:"down_pitch,omitempty" yaml:"down_pitch,omitempty"`
	PlaneWallBias     *float64 `json:"plane_wall_bias,omitempty" yaml:"plane_wall_bias,omitempty"`
	StickyWindow      *string  `json:"sticky_window,omitempty" yaml:"sticky_window,omitempty"` // duration string like "900ms"
	StickyGap         *float64 `json:"sticky_gap,omitempty" yaml:"sticky_gap,omitempty"`
	LockedWallMaxAge  *string  `json:"locked_wall_max_age,omitempty" yaml:"locked_wall_max_age,omitempty"`
	SteepDownPitch    *float64 `json:"steep_down_pitch,omitempty" yaml:"steep_down_pitch,omitempty"`
	EstimatedDistance *float64 `json:"estimated_distance,omitempty" yaml:"estimated_distance,omitempty"`
	StatusCooldown    *string  `json:"status_cooldown,omitempty" yaml:"status_cooldown,omitempty"`

	// Panel pool
	MaxActiveRunners *int  `json:"max_active_runners,omitempty" yaml:"max_active_runners,omitempty"`
	MaxPlacedPanels  *int  `json:"max_placed_panels,omitempty" yaml:"max_placed_panels,omitempty"`
	FreezeOnAdd      *bool `json:"freeze_on_add,omitempty" yaml:"freeze_on_add,omitempty"`

	// Commit
	FloorOffset         *float64 `json:"floor_offset,omitempty" yaml:"floor_offset,omitempty"`
	WallOffset          *float64 `json:"wall_offset,omitempty" yaml:"wall_offset,omitempty"`
	EstimatedWallOffset *float64 `json:"estimated_wall_offset,omitempty" yaml:"estimated_wall_offset,omitempty"`
	PanelWidth          *float64 `json:"panel_width,omitempty" yaml:"panel_width,omitempty"`
	PanelHeight         *float64 `json:"panel_height,omitempty" yaml:"panel_height,omitempty"`
	RenderWidth         *int     `json:"render_width,omitempty" yaml:"render_width,omitempty"`
	RenderHeight        *int     `json:"render_height,omitempty" yaml:"render_height,omitempty"`
	DarkLumaThreshold   *float64 `json:"dark_luma_threshold,omitempty" yaml:"dark_luma_threshold,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		WallVerticalityMin:    ptrFloat64(e.GetWallVerticalityMin()),
		PlaneParallelMin:      ptrFloat64(e.GetPlaneParallelMin()),
		PlaneMinDistance:      ptrFloat64(e.GetPlaneMinDistance()),
		PlaneMaxDistance:      ptrFloat64(e.GetPlaneMaxDistance()),
		RayMinAlignment:       ptrFloat64(e.GetRayMinAlignment()),
		RayMinDistance:        ptrFloat64(e.GetRayMinDistance()),
		RayMaxDistance:        ptrFloat64(e.GetRayMaxDistance()),
		RayMaxHeightDiff:      ptrFloat64(e.GetRayMaxHeightDiff()),
		RayLastResortScore:    ptrFloat64(e.GetRayLastResortScore()),
		AxisWallMinScore:      ptrFloat64(e.GetAxisWallMinScore()),
		AxisWallMinDistance:   ptrFloat64(e.GetAxisWallMinDistance()),
		AxisWallMaxHeightDiff: ptrFloat64(e.GetAxisWallMaxHeightDiff()),
		FloorMinUpness:        ptrFloat64(e.GetFloorMinUpness()),
		FloorMinDrop:          ptrFloat64(e.GetFloorMinDrop()),
		LevelWallBias:         ptrFloat64(e.GetLevelWallBias()),
		LevelPitchLimit:       ptrFloat64(e.GetLevelPitchLimit()),
		DownFloorBias:         ptrFloat64(e.GetDownFloorBias()),
		DownPitch:             ptrFloat64(e.GetDownPitch()),
		PlaneWallBias:         ptrFloat64(e.GetPlaneWallBias()),
		StickyWindow:          ptrString(e.GetStickyWindow().String()),
		StickyGap:             ptrFloat64(e.GetStickyGap()),
		LockedWallMaxAge:      ptrString(e.GetLockedWallMaxAge().String()),
		SteepDownPitch:        ptrFloat64(e.GetSteepDownPitch()),
		EstimatedDistance:     ptrFloat64(e.GetEstimatedDistance()),
		StatusCooldown:        ptrString(e.GetStatusCooldown().String()),
		MaxActiveRunners:      ptrInt(e.GetMaxActiveRunners()),
		MaxPlacedPanels:       ptrInt(e.GetMaxPlacedPanels()),
		FreezeOnAdd:           ptrBool(e.GetFreezeOnAdd()),
		FloorOffset:           ptrFloat64(e.GetFloorOffset()),
		WallOffset:            ptrFloat64(e.GetWallOffset()),
		EstimatedWallOffset:   ptrFloat64(e.GetEstimatedWallOffset()),
		PanelWidth:            ptrFloat64(e.GetPanelWidth()),
		PanelHeight:           ptrFloat64(e.GetPanelHeight()),
		RenderWidth:           ptrInt(e.GetRenderWidth()),
		RenderHeight:          ptrInt(e.GetRenderHeight()),
		DarkLumaThreshold:     ptrFloat64(e.GetDarkLumaThreshold()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file must be under 1MB. Fields omitted from the file keep their
// defaults through the Get* accessors.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository root.
// Panics if the file cannot be loaded; intended for tests and binaries.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	unit := map[string]*float64{
		"wall_verticality_min": c.WallVerticalityMin,
		"plane_parallel_min":   c.PlaneParallelMin,
		"ray_min_alignment":    c.RayMinAlignment,
		"floor_min_upness":     c.FloorMinUpness,
		"level_pitch_limit":    c.LevelPitchLimit,
		"down_pitch":           c.DownPitch,
		"steep_down_pitch":     c.SteepDownPitch,
		"dark_luma_threshold":  c.DarkLumaThreshold,
	}
	for name, v := range unit {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	if c.GetPlaneMinDistance() >= c.GetPlaneMaxDistance() {
		return fmt.Errorf("plane_min_distance (%f) must be below plane_max_distance (%f)",
			c.GetPlaneMinDistance(), c.GetPlaneMaxDistance())
	}
	if c.GetRayMinDistance() >= c.GetRayMaxDistance() {
		return fmt.Errorf("ray_min_distance (%f) must be below ray_max_distance (%f)",
			c.GetRayMinDistance(), c.GetRayMaxDistance())
	}
	if c.FloorMinDrop != nil && *c.FloorMinDrop < 0 {
		return fmt.Errorf("floor_min_drop must be non-negative, got %f", *c.FloorMinDrop)
	}
	if c.EstimatedDistance != nil && *c.EstimatedDistance <= 0 {
		return fmt.Errorf("estimated_distance must be positive, got %f", *c.EstimatedDistance)
	}

	durations := map[string]*string{
		"sticky_window":       c.StickyWindow,
		"locked_wall_max_age": c.LockedWallMaxAge,
		"status_cooldown":     c.StatusCooldown,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	if c.MaxActiveRunners != nil && *c.MaxActiveRunners < 1 {
		return fmt.Errorf("max_active_runners must be at least 1, got %d", *c.MaxActiveRunners)
	}
	if c.MaxPlacedPanels != nil && *c.MaxPlacedPanels < 1 {
		return fmt.Errorf("max_placed_panels must be at least 1, got %d", *c.MaxPlacedPanels)
	}
	if c.GetMaxActiveRunners() > c.GetMaxPlacedPanels() {
		return fmt.Errorf("max_active_runners (%d) cannot exceed max_placed_panels (%d)",
			c.GetMaxActiveRunners(), c.GetMaxPlacedPanels())
	}
	if c.PanelWidth != nil && *c.PanelWidth <= 0 {
		return fmt.Errorf("panel_width must be positive, got %f", *c.PanelWidth)
	}
	if c.PanelHeight != nil && *c.PanelHeight <= 0 {
		return fmt.Errorf("panel_height must be positive, got %f", *c.PanelHeight)
	}
	if c.RenderWidth != nil && *c.RenderWidth <= 0 {
		return fmt.Errorf("render_width must be positive, got %d", *c.RenderWidth)
	}
	if c.RenderHeight != nil && *c.RenderHeight <= 0 {
		return fmt.Errorf("render_height must be positive, got %d", *c.RenderHeight)
	}
	return nil
}

func getOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func durationOr(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}

// GetWallVerticalityMin returns the minimum verticality of a plane wall.
func (c *TuningConfig) GetWallVerticalityMin() float64 { return getOr(c.WallVerticalityMin, 0.78) }

// GetPlaneParallelMin returns the minimum |normal·forward| for a plane hit.
func (c *TuningConfig) GetPlaneParallelMin() float64 { return getOr(c.PlaneParallelMin, 0.16) }

func (c *TuningConfig) GetPlaneMinDistance() float64 { return getOr(c.PlaneMinDistance, 0.25) }
func (c *TuningConfig) GetPlaneMaxDistance() float64 { return getOr(c.PlaneMaxDistance, 6.0) }

func (c *TuningConfig) GetRayMinAlignment() float64    { return getOr(c.RayMinAlignment, 0.02) }
func (c *TuningConfig) GetRayMinDistance() float64     { return getOr(c.RayMinDistance, 0.12) }
func (c *TuningConfig) GetRayMaxDistance() float64     { return getOr(c.RayMaxDistance, 8.0) }
func (c *TuningConfig) GetRayMaxHeightDiff() float64   { return getOr(c.RayMaxHeightDiff, 2.5) }
func (c *TuningConfig) GetRayLastResortScore() float64 { return getOr(c.RayLastResortScore, 0.05) }

func (c *TuningConfig) GetAxisWallMinScore() float64      { return getOr(c.AxisWallMinScore, 0.45) }
func (c *TuningConfig) GetAxisWallMinDistance() float64   { return getOr(c.AxisWallMinDistance, 0.25) }
func (c *TuningConfig) GetAxisWallMaxHeightDiff() float64 { return getOr(c.AxisWallMaxHeightDiff, 1.8) }

// GetFloorMinUpness returns the minimum |normal·up| for a floor candidate.
func (c *TuningConfig) GetFloorMinUpness() float64 { return getOr(c.FloorMinUpness, 0.7) }

// GetFloorMinDrop returns how far below the camera, in metres, a hit must be
// to count as floor.
func (c *TuningConfig) GetFloorMinDrop() float64 { return getOr(c.FloorMinDrop, 0.5) }

func (c *TuningConfig) GetLevelWallBias() float64   { return getOr(c.LevelWallBias, 0.18) }
func (c *TuningConfig) GetLevelPitchLimit() float64 { return getOr(c.LevelPitchLimit, 0.25) }
func (c *TuningConfig) GetDownFloorBias() float64   { return getOr(c.DownFloorBias, 0.22) }

// GetDownPitch returns the magnitude of forward.y below which the camera
// counts as looking down (forward.y < -DownPitch).
func (c *TuningConfig) GetDownPitch() float64     { return getOr(c.DownPitch, 0.35) }
func (c *TuningConfig) GetPlaneWallBias() float64 { return getOr(c.PlaneWallBias, 0.08) }

// GetStickyWindow returns how long a previous selection stays sticky.
func (c *TuningConfig) GetStickyWindow() time.Duration {
	return durationOr(c.StickyWindow, 900*time.Millisecond)
}

func (c *TuningConfig) GetStickyGap() float64 { return getOr(c.StickyGap, 0.16) }

// GetLockedWallMaxAge returns how long a locked wall may be re-projected.
func (c *TuningConfig) GetLockedWallMaxAge() time.Duration {
	return durationOr(c.LockedWallMaxAge, 14*time.Second)
}

func (c *TuningConfig) GetSteepDownPitch() float64    { return getOr(c.SteepDownPitch, 0.6) }
func (c *TuningConfig) GetEstimatedDistance() float64 { return getOr(c.EstimatedDistance, 1.2) }

// GetStatusCooldown returns the minimum gap between status emissions.
func (c *TuningConfig) GetStatusCooldown() time.Duration {
	return durationOr(c.StatusCooldown, 1200*time.Millisecond)
}

func (c *TuningConfig) GetMaxActiveRunners() int { return getOr(c.MaxActiveRunners, 1) }
func (c *TuningConfig) GetMaxPlacedPanels() int  { return getOr(c.MaxPlacedPanels, 12) }
func (c *TuningConfig) GetFreezeOnAdd() bool     { return getOr(c.FreezeOnAdd, true) }

func (c *TuningConfig) GetFloorOffset() float64         { return getOr(c.FloorOffset, 0.004) }
func (c *TuningConfig) GetWallOffset() float64          { return getOr(c.WallOffset, 0.012) }
func (c *TuningConfig) GetEstimatedWallOffset() float64 { return getOr(c.EstimatedWallOffset, 0.024) }
func (c *TuningConfig) GetPanelWidth() float64          { return getOr(c.PanelWidth, 0.8) }
func (c *TuningConfig) GetPanelHeight() float64         { return getOr(c.PanelHeight, 0.6) }
func (c *TuningConfig) GetRenderWidth() int             { return getOr(c.RenderWidth, 256) }
func (c *TuningConfig) GetRenderHeight() int            { return getOr(c.RenderHeight, 192) }

// GetDarkLumaThreshold returns the mean luminance (0..1) below which a
// snapshot is treated as a blank frame.
func (c *TuningConfig) GetDarkLumaThreshold() float64 { return getOr(c.DarkLumaThreshold, 0.03) }
