package replay

import (
	"context"
	"fmt"
	"sort"

	"github.com/banshee-data/livepanels/internal/config"
	"github.com/banshee-data/livepanels/internal/recorder"
	"github.com/banshee-data/livepanels/internal/surface"
)

// Weights turns Metrics into a scalar score. Penalty weights are negative.
type Weights struct {
	Agreement          float64 `json:"agreement"`
	SelectionAgreement float64 `json:"selection_agreement"`
	Placement          float64 `json:"placement"`
	Flicker            float64 `json:"flicker"`
	Fallback           float64 `json:"fallback"`
}

// DefaultWeights favours reproducing the recorded selections while
// penalizing floor/wall flicker.
func DefaultWeights() Weights {
	return Weights{
		Agreement:          1.0,
		SelectionAgreement: 0.5,
		Placement:          0.2,
		Flicker:            -2.0,
		Fallback:           -0.3,
	}
}

// Score computes the weighted score of m.
func (w Weights) Score(m Metrics) float64 {
	return w.Agreement*m.Agreement() +
		w.SelectionAgreement*m.SelectionAgreement() +
		w.Placement*m.PlacementRate() +
		w.Flicker*m.FlickerRate() +
		w.Fallback*m.FallbackRate()
}

// ComboResult is the replay outcome for one tuning combination.
type ComboResult struct {
	Params  Combo   `json:"params"`
	Metrics Metrics `json:"metrics"`
	Score   float64 `json:"score"`
}

// SweepRequest describes a parameter sweep over one recorded session.
type SweepRequest struct {
	Base    *config.TuningConfig
	Params  []Param
	Weights Weights
	Options Options
}

// Sweep replays frames once per combination of req.Params. Results are in
// grid order. It stops early when ctx is cancelled.
func Sweep(ctx context.Context, frames []recorder.RecordedFrame, req SweepRequest) ([]ComboResult, error) {
	combos := Combos(req.Params)
	opts := req.Options
	opts.KeepTimeline = false

	results := make([]ComboResult, 0, len(combos))
	for i, combo := range combos {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		tuning, err := ApplyCombo(req.Base, combo)
		if err != nil {
			return results, err
		}
		res := Run(frames, surface.ConfigFromTuning(tuning), opts)
		cr := ComboResult{Params: combo, Metrics: res.Metrics, Score: req.Weights.Score(res.Metrics)}
		results = append(results, cr)
		diagf("combo %d/%d %v: agreement=%.3f flicker=%.3f fallback=%.3f score=%.3f",
			i+1, len(combos), combo, res.Metrics.Agreement(), res.Metrics.FlickerRate(), res.Metrics.FallbackRate(), cr.Score)
	}
	opsf("sweep complete: %d combinations over %d frames", len(results), len(frames))
	return results, nil
}

// Rank returns results sorted by descending score; ties keep grid order.
func Rank(results []ComboResult) []ComboResult {
	out := append([]ComboResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Best returns the highest scoring result.
func Best(results []ComboResult) (ComboResult, error) {
	if len(results) == 0 {
		return ComboResult{}, fmt.Errorf("no sweep results")
	}
	return Rank(results)[0], nil
}
