package surface

import (
	"time"

	"github.com/banshee-data/livepanels/internal/config"
)

// Config holds the tracker thresholds. Build it with ConfigFromTuning so the
// values come from the shared tuning file.
type Config struct {
	WallVerticalityMin float64

	PlaneParallelMin float64
	PlaneMinDistance float64
	PlaneMaxDistance float64

	RayMinAlignment    float64
	RayMinDistance     float64
	RayMaxDistance     float64
	RayMaxHeightDiff   float64
	RayLastResortScore float64

	AxisWallMinScore      float64
	AxisWallMinDistance   float64
	AxisWallMaxHeightDiff float64
	FloorMinUpness        float64
	// FloorMinDrop is how far below the camera a hit must lie to be floor.
	FloorMinDrop          float64

	LevelWallBias   float64
	LevelPitchLimit float64
	DownFloorBias   float64
	DownPitch       float64
	PlaneWallBias   float64

	StickyWindow time.Duration
	StickyGap    float64

	LockedWallMaxAge  time.Duration
	SteepDownPitch    float64
	EstimatedDistance float64

	StatusCooldown time.Duration
}

// ConfigFromTuning extracts the tracker thresholds from a tuning config.
// A nil cfg yields the built-in defaults.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return Config{
		WallVerticalityMin:    cfg.GetWallVerticalityMin(),
		PlaneParallelMin:      cfg.GetPlaneParallelMin(),
		PlaneMinDistance:      cfg.GetPlaneMinDistance(),
		PlaneMaxDistance:      cfg.GetPlaneMaxDistance(),
		RayMinAlignment:       cfg.GetRayMinAlignment(),
		RayMinDistance:        cfg.GetRayMinDistance(),
		RayMaxDistance:        cfg.GetRayMaxDistance(),
		RayMaxHeightDiff:      cfg.GetRayMaxHeightDiff(),
		RayLastResortScore:    cfg.GetRayLastResortScore(),
		AxisWallMinScore:      cfg.GetAxisWallMinScore(),
		AxisWallMinDistance:   cfg.GetAxisWallMinDistance(),
		AxisWallMaxHeightDiff: cfg.GetAxisWallMaxHeightDiff(),
		FloorMinUpness:        cfg.GetFloorMinUpness(),
		FloorMinDrop:          cfg.GetFloorMinDrop(),
		LevelWallBias:         cfg.GetLevelWallBias(),
		LevelPitchLimit:       cfg.GetLevelPitchLimit(),
		DownFloorBias:         cfg.GetDownFloorBias(),
		DownPitch:             cfg.GetDownPitch(),
		PlaneWallBias:         cfg.GetPlaneWallBias(),
		StickyWindow:          cfg.GetStickyWindow(),
		StickyGap:             cfg.GetStickyGap(),
		LockedWallMaxAge:      cfg.GetLockedWallMaxAge(),
		SteepDownPitch:        cfg.GetSteepDownPitch(),
		EstimatedDistance:     cfg.GetEstimatedDistance(),
		StatusCooldown:        cfg.GetStatusCooldown(),
	}
}

// DefaultConfig returns the built-in thresholds.
func DefaultConfig() Config {
	return ConfigFromTuning(nil)
}
