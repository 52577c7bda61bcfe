package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/session"
	"github.com/banshee-data/livepanels/internal/sim"
	"github.com/banshee-data/livepanels/internal/timeutil"
)

var simulateOpts struct {
	duration    time.Duration
	fps         int
	selectEvery time.Duration
	noHitTest   bool
	noPlanes    bool
	noRecord    bool
	sourceCode  string
	dropouts    []string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a synthetic session through the placement loop",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		scene := sim.DefaultScene()
		scene.PlaneDetection = !simulateOpts.noPlanes
		for _, spec := range simulateOpts.dropouts {
			w, err := parseWindow(spec)
			if err != nil {
				return err
			}
			scene.Dropouts = append(scene.Dropouts, w)
		}

		clock := timeutil.NewMockClock(time.Now().UTC())
		platform := sim.NewPlatform(session.Capabilities{
			HitTest:        !simulateOpts.noHitTest,
			PlaneDetection: !simulateOpts.noPlanes,
		})
		opts := []session.Option{session.WithClock(clock)}
		if !simulateOpts.noRecord {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			opts = append(opts, session.WithRecorder(store), session.WithEventSink(store))
		}

		ctl := session.NewController(session.ConfigFromTuning(tuning), platform, sim.NewGradientEngine, opts...)
		defer ctl.Close(ctx)
		if simulateOpts.sourceCode != "" {
			if err := ctl.SetSourceCode(simulateOpts.sourceCode); err != nil {
				return fmt.Errorf("source code: %w", err)
			}
		}

		sum, err := sim.Run(ctx, ctl, clock, scene, sim.RunOptions{
			FPS:         simulateOpts.fps,
			Duration:    simulateOpts.duration,
			SelectEvery: simulateOpts.selectEvery,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session %s\n", sum.SessionID)
		fmt.Fprintf(out, "sensing:   hit-test=%v planes=%v\n", sum.Capabilities.HitTest, sum.Capabilities.PlaneDetection)
		fmt.Fprintf(out, "frames:    %d\n", sum.Frames)
		fmt.Fprintf(out, "floor:     %d\n", sum.Kinds[placement.KindFloor])
		fmt.Fprintf(out, "wall:      %d\n", sum.Kinds[placement.KindWall])
		fmt.Fprintf(out, "estimated: %d\n", sum.Sources[placement.SourceEstimated])
		fmt.Fprintf(out, "commits:   %d\n", sum.Commits)
		fmt.Fprintf(out, "panels:    %d (%d live)\n", sum.Panels, sum.Live)
		return nil
	},
}

// parseWindow parses "from-to" durations such as "2s-3.5s".
func parseWindow(s string) (sim.Window, error) {
	for i := 1; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		from, err1 := time.ParseDuration(s[:i])
		to, err2 := time.ParseDuration(s[i+1:])
		if err1 == nil && err2 == nil && to > from {
			return sim.Window{From: from, To: to}, nil
		}
	}
	return sim.Window{}, fmt.Errorf("invalid dropout window %q: expected from-to, e.g. 2s-3s", s)
}

func init() {
	f := simulateCmd.Flags()
	f.DurationVar(&simulateOpts.duration, "duration", 12*time.Second, "simulated session length")
	f.IntVar(&simulateOpts.fps, "fps", 30, "frames per second")
	f.DurationVar(&simulateOpts.selectEvery, "select-every", 2*time.Second, "request a commit at this interval (0 disables)")
	f.BoolVar(&simulateOpts.noHitTest, "no-hit-test", false, "simulate a platform without hit testing")
	f.BoolVar(&simulateOpts.noPlanes, "no-planes", false, "simulate a platform without plane detection")
	f.BoolVar(&simulateOpts.noRecord, "no-record", false, "do not write the session to the capture database")
	f.StringVar(&simulateOpts.sourceCode, "source", "", "panel visual source code")
	f.StringArrayVar(&simulateOpts.dropouts, "dropout", nil, "tracking dropout window, e.g. 4s-6s (repeatable)")
	rootCmd.AddCommand(simulateCmd)
}
