package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/livepanels/internal/config"
	"github.com/banshee-data/livepanels/internal/monitoring"
	"github.com/banshee-data/livepanels/internal/recorder"
	"github.com/banshee-data/livepanels/internal/version"
)

var (
	configPath string
	dbPath     string
	logLevel   string

	// tuning is resolved in PersistentPreRunE.
	tuning *config.TuningConfig
)

var rootCmd = &cobra.Command{
	Use:   "panelctl",
	Short: "Simulate, record, replay and report live panel placement sessions.",
	Long: `panelctl runs the surface tracker, panel pool and session loop without a
device. Sessions can be recorded to a capture database and replayed under
alternative tunings to calibrate the placement thresholds.`,
	Version:      version.String(),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := monitoring.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		monitoring.ConfigureStreams(monitoring.WritersForLevel(level, cmd.ErrOrStderr()))

		tuning, err = loadTuning(configPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "tuning config file (.json or .yaml); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "livepanels.db", "capture database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "ops", "log streams to enable: off, ops, diag or trace")
}

// loadTuning reads the tuning file, falling back to the defaults, and
// applies the device profile from the environment.
func loadTuning(path string) (*config.TuningConfig, error) {
	cfg := config.DefaultTuningConfig()
	if path != "" {
		loaded, err := config.LoadTuningConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	profile, err := config.ParseDeviceProfile()
	if err != nil {
		return nil, err
	}
	return config.ApplyProfile(cfg, profile)
}

func openStore() (*recorder.Store, error) {
	store, err := recorder.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open capture database: %w", err)
	}
	return store, nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
