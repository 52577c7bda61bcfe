package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	require.NotNil(t, cfg.WallVerticalityMin)
	assert.Equal(t, 0.78, *cfg.WallVerticalityMin)
	require.NotNil(t, cfg.StickyWindow)
	assert.Equal(t, "900ms", *cfg.StickyWindow)
	require.NotNil(t, cfg.LockedWallMaxAge)
	assert.Equal(t, "14s", *cfg.LockedWallMaxAge)
	require.NotNil(t, cfg.StatusCooldown)
	assert.Equal(t, "1.2s", *cfg.StatusCooldown)

	assert.Equal(t, 900*time.Millisecond, cfg.GetStickyWindow())
	assert.Equal(t, 14*time.Second, cfg.GetLockedWallMaxAge())
	assert.Equal(t, 1200*time.Millisecond, cfg.GetStatusCooldown())
	assert.Equal(t, 1, cfg.GetMaxActiveRunners())
	assert.Equal(t, 12, cfg.GetMaxPlacedPanels())
	assert.True(t, cfg.GetFreezeOnAdd())
	require.NoError(t, cfg.Validate())
}

func TestEmptyConfigFallsBackToDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	def := DefaultTuningConfig()

	assert.Equal(t, def.GetWallVerticalityMin(), cfg.GetWallVerticalityMin())
	assert.Equal(t, def.GetStickyGap(), cfg.GetStickyGap())
	assert.Equal(t, def.GetEstimatedDistance(), cfg.GetEstimatedDistance())
	assert.Equal(t, def.GetRenderWidth(), cfg.GetRenderWidth())
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("json partial", func(t *testing.T) {
		path := filepath.Join(tmpDir, "partial.json")
		testJSON := `{
  "sticky_gap": 0.2,
  "locked_wall_max_age": "10s",
  "max_placed_panels": 18
}`
		require.NoError(t, os.WriteFile(path, []byte(testJSON), 0o644))

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 0.2, cfg.GetStickyGap())
		assert.Equal(t, 10*time.Second, cfg.GetLockedWallMaxAge())
		assert.Equal(t, 18, cfg.GetMaxPlacedPanels())
		// untouched fields keep their defaults
		assert.Equal(t, 0.78, cfg.GetWallVerticalityMin())
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "device.yaml")
		testYAML := "max_active_runners: 3\nmax_placed_panels: 15\nfreeze_on_add: false\nsticky_window: 1s\n"
		require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.GetMaxActiveRunners())
		assert.Equal(t, 15, cfg.GetMaxPlacedPanels())
		assert.False(t, cfg.GetFreezeOnAdd())
		assert.Equal(t, time.Second, cfg.GetStickyWindow())
	})

	t.Run("wrong extension", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(tmpDir, "tuning.toml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(tmpDir, "nope.json"))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"sticky_gap": `), 0o644))
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"wall_verticality_min": 1.5}`), 0o644))
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wall_verticality_min")
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *TuningConfig)
		wantErr string
	}{
		{"defaults", func(c *TuningConfig) {}, ""},
		{"bad duration", func(c *TuningConfig) { c.StickyWindow = ptrString("soon") }, "sticky_window"},
		{"negative duration", func(c *TuningConfig) { c.StatusCooldown = ptrString("-1s") }, "status_cooldown"},
		{"zero runners", func(c *TuningConfig) { c.MaxActiveRunners = ptrInt(0) }, "max_active_runners"},
		{"zero panels", func(c *TuningConfig) { c.MaxPlacedPanels = ptrInt(0) }, "max_placed_panels"},
		{"runners above panels", func(c *TuningConfig) {
			c.MaxActiveRunners = ptrInt(5)
			c.MaxPlacedPanels = ptrInt(4)
		}, "cannot exceed"},
		{"plane range inverted", func(c *TuningConfig) { c.PlaneMinDistance = ptrFloat64(7) }, "plane_min_distance"},
		{"ray range inverted", func(c *TuningConfig) { c.RayMaxDistance = ptrFloat64(0.1) }, "ray_min_distance"},
		{"estimated distance", func(c *TuningConfig) { c.EstimatedDistance = ptrFloat64(0) }, "estimated_distance"},
		{"render width", func(c *TuningConfig) { c.RenderWidth = ptrInt(-1) }, "render_width"},
		{"negative floor drop", func(c *TuningConfig) { c.FloorMinDrop = ptrFloat64(-0.1) }, "floor_min_drop"},
		{"panel width", func(c *TuningConfig) { c.PanelWidth = ptrFloat64(0) }, "panel_width"},
		{"panel height", func(c *TuningConfig) { c.PanelHeight = ptrFloat64(-1) }, "panel_height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultTuningConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	def := DefaultTuningConfig()

	assert.Equal(t, def.GetWallVerticalityMin(), cfg.GetWallVerticalityMin())
	assert.Equal(t, def.GetStickyWindow(), cfg.GetStickyWindow())
	assert.Equal(t, def.GetLockedWallMaxAge(), cfg.GetLockedWallMaxAge())
	assert.Equal(t, def.GetMaxPlacedPanels(), cfg.GetMaxPlacedPanels())
	assert.Equal(t, def.GetDarkLumaThreshold(), cfg.GetDarkLumaThreshold())
	assert.Equal(t, def.GetFloorMinDrop(), cfg.GetFloorMinDrop())
	assert.Equal(t, def.GetPanelWidth(), cfg.GetPanelWidth())
}

func TestApplyProfile(t *testing.T) {
	t.Run("mobile clamps", func(t *testing.T) {
		base := DefaultTuningConfig()
		base.MaxActiveRunners = ptrInt(4)
		base.MaxPlacedPanels = ptrInt(18)

		out, err := ApplyProfile(base, DeviceProfile{Mobile: true})
		require.NoError(t, err)
		assert.Equal(t, 1, out.GetMaxActiveRunners())
		assert.Equal(t, 10, out.GetMaxPlacedPanels())
		// the input is not mutated
		assert.Equal(t, 4, base.GetMaxActiveRunners())
	})

	t.Run("explicit counts win", func(t *testing.T) {
		out, err := ApplyProfile(DefaultTuningConfig(), DeviceProfile{Mobile: true, MaxActiveRunners: 2, MaxPlacedPanels: 16})
		require.NoError(t, err)
		assert.Equal(t, 2, out.GetMaxActiveRunners())
		assert.Equal(t, 16, out.GetMaxPlacedPanels())
	})

	t.Run("invalid profile", func(t *testing.T) {
		_, err := ApplyProfile(DefaultTuningConfig(), DeviceProfile{MaxActiveRunners: 20})
		require.Error(t, err)
	})
}

func TestParseDeviceProfile(t *testing.T) {
	t.Setenv("LIVEPANELS_MAX_ACTIVE_RUNNERS", "3")
	t.Setenv("LIVEPANELS_MAX_PLACED_PANELS", "14")
	t.Setenv("LIVEPANELS_MOBILE", "true")

	p, err := ParseDeviceProfile()
	require.NoError(t, err)
	assert.Equal(t, DeviceProfile{MaxActiveRunners: 3, MaxPlacedPanels: 14, Mobile: true}, p)
}
