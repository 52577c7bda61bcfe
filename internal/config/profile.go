package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Mobile devices get a single live runner and a shorter panel history.
const (
	mobileMaxActiveRunners = 1
	mobileMaxPlacedPanels  = 10
)

// DeviceProfile carries per-device overrides read from the environment.
// Zero values mean "not set".
type DeviceProfile struct {
	MaxActiveRunners int  `env:"LIVEPANELS_MAX_ACTIVE_RUNNERS"`
	MaxPlacedPanels  int  `env:"LIVEPANELS_MAX_PLACED_PANELS"`
	Mobile           bool `env:"LIVEPANELS_MOBILE"`
}

// ParseDeviceProfile loads a DeviceProfile from environment variables.
func ParseDeviceProfile() (DeviceProfile, error) {
	var p DeviceProfile
	if err := env.Parse(&p); err != nil {
		return DeviceProfile{}, fmt.Errorf("parse env: %w", err)
	}
	return p, nil
}

// ApplyProfile returns a copy of cfg with the profile overrides applied and
// validated. Explicit counts win over the mobile clamp.
func ApplyProfile(cfg *TuningConfig, p DeviceProfile) (*TuningConfig, error) {
	out := *cfg
	if p.Mobile {
		out.MaxActiveRunners = ptrInt(min(out.GetMaxActiveRunners(), mobileMaxActiveRunners))
		out.MaxPlacedPanels = ptrInt(min(out.GetMaxPlacedPanels(), mobileMaxPlacedPanels))
	}
	if p.MaxActiveRunners > 0 {
		out.MaxActiveRunners = ptrInt(p.MaxActiveRunners)
	}
	if p.MaxPlacedPanels > 0 {
		out.MaxPlacedPanels = ptrInt(p.MaxPlacedPanels)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("device profile: %w", err)
	}
	return &out, nil
}
