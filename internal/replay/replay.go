// Package replay re-runs recorded capture sessions through a fresh surface
// tracker so alternative tunings can be compared offline against what the
// device actually selected.
package replay

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/recorder"
	"github.com/banshee-data/livepanels/internal/surface"
)

// DefaultAgreeDistance is how far apart two same-kind placements may be and
// still count as the same choice.
const DefaultAgreeDistance = 0.25

// Options controls how replayed results are compared to the recording.
type Options struct {
	AgreeDistance float64 // metres; 0 means DefaultAgreeDistance
	KeepTimeline  bool
}

// Sample is one replayed frame.
type Sample struct {
	Seq        int
	Elapsed    time.Duration
	Kind       placement.Kind
	Source     placement.Source
	Status     surface.Status
	FloorScore float64
	WallScore  float64
	Agrees     bool
}

// Metrics summarizes one replay.
type Metrics struct {
	Frames         int `json:"frames"`
	Placed         int `json:"placed"`
	KindSwitches   int `json:"kind_switches"`
	SourceSwitches int `json:"source_switches"`
	Dropouts       int `json:"dropouts"`
	Locked         int `json:"locked"`
	Estimated      int `json:"estimated"`
	StatusChanges  int `json:"status_changes"`

	// Compared counts recorded frames that had a placement; Agreed those the
	// replay matched.
	Compared int `json:"compared"`
	Agreed   int `json:"agreed"`
	// Selections are recorded frames that committed a panel.
	Selections       int `json:"selections"`
	SelectionsAgreed int `json:"selections_agreed"`
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// PlacementRate is the fraction of frames with a reticle.
func (m Metrics) PlacementRate() float64 { return ratio(m.Placed, m.Frames) }

// FlickerRate is kind switches per placed frame.
func (m Metrics) FlickerRate() float64 { return ratio(m.KindSwitches, m.Placed) }

// FallbackRate is the fraction of frames placed from memory or a guess.
func (m Metrics) FallbackRate() float64 { return ratio(m.Locked+m.Estimated, m.Frames) }

// EstimatedRate is the fraction of frames with an estimated wall.
func (m Metrics) EstimatedRate() float64 { return ratio(m.Estimated, m.Frames) }

// Agreement is the fraction of recorded placements the replay reproduced.
func (m Metrics) Agreement() float64 { return ratio(m.Agreed, m.Compared) }

// SelectionAgreement is Agreement restricted to committed frames.
func (m Metrics) SelectionAgreement() float64 { return ratio(m.SelectionsAgreed, m.Selections) }

// Result is the outcome of one replay.
type Result struct {
	Metrics  Metrics
	Timeline []Sample
}

// Run replays frames, in order, through a new tracker built from cfg.
func Run(frames []recorder.RecordedFrame, cfg surface.Config, opts Options) Result {
	if opts.AgreeDistance <= 0 {
		opts.AgreeDistance = DefaultAgreeDistance
	}
	tracker := surface.NewTracker(cfg)
	state := surface.NewTrackingState()

	var (
		out      Result
		m        = &out.Metrics
		prev     surface.Result
		havePrev bool
		start    time.Time
	)
	for i, rf := range frames {
		if i == 0 {
			start = rf.Frame.Time
		}
		res := tracker.Update(state, rf.Frame)

		m.Frames++
		if res.StatusChanged {
			m.StatusChanges++
		}
		if res.HasPlacement {
			m.Placed++
			switch res.Placement.Source {
			case placement.SourceLockedWall:
				m.Locked++
			case placement.SourceEstimated:
				m.Estimated++
			}
			if havePrev && prev.HasPlacement {
				if prev.Placement.Kind != res.Placement.Kind {
					m.KindSwitches++
				}
				if prev.Placement.Source != res.Placement.Source {
					m.SourceSwitches++
				}
			}
		} else if havePrev && prev.HasPlacement {
			m.Dropouts++
		}

		agrees := false
		if rf.HasPlacement {
			m.Compared++
			agrees = sameChoice(rf.Placement, res, opts.AgreeDistance)
			if agrees {
				m.Agreed++
			}
			if rf.CommittedID != "" {
				m.Selections++
				if agrees {
					m.SelectionsAgreed++
				}
			}
			if !agrees {
				tracef("seq %d: recorded %s, replayed %v", rf.Seq, rf.Placement, res.Placement)
			}
		}

		if opts.KeepTimeline {
			s := Sample{
				Seq:        rf.Seq,
				Elapsed:    rf.Frame.Time.Sub(start),
				Status:     res.Status,
				FloorScore: res.FloorScore,
				WallScore:  res.WallScore,
				Agrees:     agrees,
			}
			if res.HasPlacement {
				s.Kind, s.Source = res.Placement.Kind, res.Placement.Source
			}
			out.Timeline = append(out.Timeline, s)
		}
		prev, havePrev = res, true
	}
	return out
}

func sameChoice(recorded placement.Placement, res surface.Result, tol float64) bool {
	if !res.HasPlacement || recorded.Kind != res.Placement.Kind {
		return false
	}
	return r3.Norm(r3.Sub(recorded.Position, res.Placement.Position)) <= tol
}
