package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/livepanels/internal/monitoring"
	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/session"
	"github.com/banshee-data/livepanels/internal/surface"
	"github.com/banshee-data/livepanels/internal/timeutil"
)

// RunOptions controls a simulated session.
type RunOptions struct {
	FPS      int
	Duration time.Duration
	// SelectEvery requests a commit at this interval; zero never selects.
	SelectEvery time.Duration
	// Start is the scene's wall-clock origin.
	Start time.Time
}

// Summary describes a finished simulated session.
type Summary struct {
	SessionID    string
	Capabilities session.Capabilities
	Frames       int
	Commits      int
	Kinds        map[placement.Kind]int
	Sources      map[placement.Source]int
	Statuses     []surface.Status
	Panels       int
	Live         int
}

// Run drives ctl through scene for opts.Duration, moving clock frame by
// frame. The controller must have been built with clock.
func Run(ctx context.Context, ctl *session.Controller, clock *timeutil.MockClock, scene *Scene, opts RunOptions) (Summary, error) {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Start.IsZero() {
		opts.Start = clock.Now()
	}
	step := time.Second / time.Duration(opts.FPS)

	clock.Set(opts.Start)
	if err := ctl.Start(ctx); err != nil {
		return Summary{}, fmt.Errorf("start session: %w", err)
	}
	sum := Summary{
		SessionID:    ctl.ID(),
		Capabilities: ctl.Capabilities(),
		Kinds:        map[placement.Kind]int{},
		Sources:      map[placement.Source]int{},
	}

	var runErr error
	nextSelect := opts.SelectEvery
	for t := time.Duration(0); t < opts.Duration; t += step {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		clock.Set(opts.Start.Add(t))
		if opts.SelectEvery > 0 && t >= nextSelect {
			if err := ctl.RequestSelect(); err != nil {
				runErr = err
				break
			}
			nextSelect += opts.SelectEvery
		}
		cmd, err := ctl.Tick(ctx, scene.Frame(t))
		if err != nil {
			runErr = err
			break
		}
		sum.Frames++
		if cmd.ShowReticle {
			sum.Kinds[cmd.Reticle.Kind]++
			sum.Sources[cmd.Reticle.Source]++
		}
		if cmd.StatusChanged {
			sum.Statuses = append(sum.Statuses, cmd.Status)
		}
		if cmd.Committed != nil {
			sum.Commits++
		}
		sum.Panels = len(cmd.Panels)
		sum.Live = ctl.Pool().LiveCount()
	}

	if err := ctl.End(ctx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("end session: %w", err))
	}
	monitoring.Logf("simulated session %s: %d frames, %d commits, %d panels", sum.SessionID, sum.Frames, sum.Commits, sum.Panels)
	return sum, runErr
}
