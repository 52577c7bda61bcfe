package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/livepanels/internal/recorder"
	"github.com/banshee-data/livepanels/internal/replay"
	"github.com/banshee-data/livepanels/internal/surface"
)

var replayOpts struct {
	sessionID string
	params    []string
	csvPath   string
	agree     float64
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded session under the current or swept tuning",
	Long: `Replay feeds the recorded frames of a session back through the surface
tracker and compares its choices with what was recorded. With one or more
--param flags it sweeps every combination and ranks them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, frames, err := loadSession(ctx, store, replayOpts.sessionID)
		if err != nil {
			return err
		}
		params, err := parseParams(replayOpts.params)
		if err != nil {
			return err
		}
		opts := replay.Options{AgreeDistance: replayOpts.agree}
		out := cmd.OutOrStdout()

		if len(params) == 0 {
			res := replay.Run(frames, surface.ConfigFromTuning(tuning), opts)
			fmt.Fprintf(out, "session %s\n", id)
			printMetrics(out, res.Metrics)
			return nil
		}

		results, err := replay.Sweep(ctx, frames, replay.SweepRequest{
			Base:    tuning,
			Params:  params,
			Weights: replay.DefaultWeights(),
			Options: opts,
		})
		if err != nil {
			return err
		}
		if replayOpts.csvPath != "" {
			if err := writeCSVFile(replayOpts.csvPath, params, results); err != nil {
				return err
			}
		}
		best, err := replay.Best(results)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "session %s: %d combinations\n", id, len(results))
		fmt.Fprintf(out, "best %v score=%.4f\n", best.Params, best.Score)
		printMetrics(out, best.Metrics)
		return nil
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadSession resolves id, or the latest session when id is empty, and
// loads its frames.
func loadSession(ctx context.Context, store *recorder.Store, id string) (string, []recorder.RecordedFrame, error) {
	if id == "" {
		latest, err := store.LatestSession(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("latest session: %w", err)
		}
		id = latest.ID
	}
	frames, err := store.LoadFrames(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("load frames of %s: %w", id, err)
	}
	if len(frames) == 0 {
		return "", nil, fmt.Errorf("session %s has no recorded frames", id)
	}
	return id, frames, nil
}

func parseParams(specs []string) ([]replay.Param, error) {
	params := make([]replay.Param, 0, len(specs))
	for _, s := range specs {
		p, err := replay.ParseParam(s)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func writeCSVFile(path string, params []replay.Param, results []replay.ComboResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := replay.WriteCSV(f, params, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printMetrics(w io.Writer, m replay.Metrics) {
	fmt.Fprintf(w, "frames:              %d\n", m.Frames)
	fmt.Fprintf(w, "placement rate:      %.4f\n", m.PlacementRate())
	fmt.Fprintf(w, "kind switches:       %d (flicker %.4f)\n", m.KindSwitches, m.FlickerRate())
	fmt.Fprintf(w, "fallback rate:       %.4f\n", m.FallbackRate())
	fmt.Fprintf(w, "estimated rate:      %.4f\n", m.EstimatedRate())
	fmt.Fprintf(w, "agreement:           %.4f\n", m.Agreement())
	fmt.Fprintf(w, "selection agreement: %.4f (%d selections)\n", m.SelectionAgreement(), m.Selections)
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayOpts.sessionID, "session", "", "session id (default: most recent)")
	f.StringArrayVar(&replayOpts.params, "param", nil, "sweep parameter, e.g. sticky_gap=0.1:0.3:0.05 or floor_min_upness=0.6,0.7 (repeatable)")
	f.StringVar(&replayOpts.csvPath, "csv", "", "write sweep results to this CSV file")
	f.Float64Var(&replayOpts.agree, "agree-distance", replay.DefaultAgreeDistance, "metres within which a replayed placement agrees with the recording")
	rootCmd.AddCommand(replayCmd)
}
