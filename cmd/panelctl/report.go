package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/livepanels/internal/replay"
	"github.com/banshee-data/livepanels/internal/report"
	"github.com/banshee-data/livepanels/internal/surface"
)

var reportOpts struct {
	sessionID string
	outDir    string
	params    []string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a score plot and HTML dashboard for a recorded session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, frames, err := loadSession(ctx, store, reportOpts.sessionID)
		if err != nil {
			return err
		}
		params, err := parseParams(reportOpts.params)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(reportOpts.outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		res := replay.Run(frames, surface.ConfigFromTuning(tuning), replay.Options{KeepTimeline: true})
		pngPath, err := report.SaveTimeline(reportOpts.outDir, id, res.Timeline)
		if err != nil {
			return err
		}

		dash := report.Dashboard{
			Title:    "Session " + id,
			Metrics:  res.Metrics,
			Timeline: res.Timeline,
			Params:   params,
		}
		if len(params) > 0 {
			dash.Sweep, err = replay.Sweep(ctx, frames, replay.SweepRequest{
				Base:    tuning,
				Params:  params,
				Weights: replay.DefaultWeights(),
			})
			if err != nil {
				return err
			}
			dash.Sweep = replay.Rank(dash.Sweep)
		}

		htmlPath := filepath.Join(reportOpts.outDir, "dashboard.html")
		f, err := os.Create(htmlPath)
		if err != nil {
			return fmt.Errorf("create dashboard: %w", err)
		}
		if err := report.RenderDashboard(f, dash); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "wrote %s\n", pngPath)
		fmt.Fprintf(out, "wrote %s\n", htmlPath)
		return nil
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportOpts.sessionID, "session", "", "session id (default: most recent)")
	f.StringVar(&reportOpts.outDir, "out", "report", "output directory")
	f.StringArrayVar(&reportOpts.params, "param", nil, "include a tuning sweep over this parameter (repeatable)")
	rootCmd.AddCommand(reportCmd)
}
