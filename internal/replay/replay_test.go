package replay

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/config"
	"github.com/banshee-data/livepanels/internal/geom"
	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/recorder"
	"github.com/banshee-data/livepanels/internal/session"
	"github.com/banshee-data/livepanels/internal/surface"
)

var t0 = time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)

// wallSession is a level camera at the origin: ten frames seeing a wall 2m
// ahead, five frames with no samples, then one frame pointing at the
// floor with nothing to hit. The recording says the wall was chosen for the
// first fifteen frames and committed on frame 5.
func wallSession(t *testing.T) []recorder.RecordedFrame {
	t.Helper()
	wallQ, ok := geom.LookRotation(r3.Vec{Z: 1}, geom.Up, geom.CameraForward)
	require.True(t, ok)
	recorded, err := placement.NewWall(placement.SourceRaySample, r3.Vec{Z: -2}, r3.Vec{Z: 1}, 0.8)
	require.NoError(t, err)

	var frames []recorder.RecordedFrame
	for i := 0; i < 16; i++ {
		f := surface.Frame{
			Time:             t0.Add(time.Duration(i) * 100 * time.Millisecond),
			Camera:           surface.Camera{Forward: r3.Vec{Z: -1}},
			HitTestSupported: true,
		}
		if i < 10 {
			f.Hits = []surface.RayHit{{Tag: surface.RayWallForward, Position: r3.Vec{Z: -2}, Orientation: wallQ}}
		}
		rf := recorder.RecordedFrame{Seq: i, Frame: f}
		if i == 15 {
			f.Camera.Forward = r3.Vec{Y: -0.8, Z: -0.6}
			rf.Frame = f
		} else {
			rf.HasPlacement = true
			rf.Placement = recorded
		}
		if i == 5 {
			rf.CommittedID = "p1"
		}
		frames = append(frames, rf)
	}
	return frames
}

func TestRun_DefaultTuningReproducesRecording(t *testing.T) {
	t.Parallel()

	res := Run(wallSession(t), surface.DefaultConfig(), Options{KeepTimeline: true})
	m := res.Metrics

	assert.Equal(t, 16, m.Frames)
	assert.Equal(t, 15, m.Placed)
	assert.Equal(t, 0, m.KindSwitches)
	assert.Equal(t, 1, m.SourceSwitches, "ray sample to locked wall")
	assert.Equal(t, 1, m.Dropouts)
	assert.Equal(t, 5, m.Locked)
	assert.Equal(t, 0, m.Estimated)
	assert.Equal(t, 15, m.Compared)
	assert.Equal(t, 15, m.Agreed)
	assert.Equal(t, 1, m.Selections)
	assert.Equal(t, 1, m.SelectionsAgreed)

	assert.InDelta(t, 1.0, m.Agreement(), 1e-12)
	assert.InDelta(t, 5.0/16, m.FallbackRate(), 1e-12)
	assert.Zero(t, m.FlickerRate())

	require.Len(t, res.Timeline, 16)
	assert.Equal(t, placement.SourceRaySample, res.Timeline[0].Source)
	assert.Equal(t, placement.SourceLockedWall, res.Timeline[12].Source)
	assert.Equal(t, placement.KindNone, res.Timeline[15].Kind)
	assert.Equal(t, 1500*time.Millisecond, res.Timeline[15].Elapsed)
	assert.True(t, res.Timeline[3].Agrees)
}

func TestRun_ShortLockDisagrees(t *testing.T) {
	t.Parallel()

	tuning, err := ApplyCombo(nil, Combo{"locked_wall_max_age": 0.001})
	require.NoError(t, err)
	res := Run(wallSession(t), surface.ConfigFromTuning(tuning), Options{})
	m := res.Metrics

	assert.Equal(t, 0, m.Locked)
	assert.Equal(t, 5, m.Estimated)
	assert.Equal(t, 10, m.Agreed, "estimated walls sit 1.2m out, not on the wall")
	assert.Nil(t, res.Timeline)
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()
	res := Run(nil, surface.DefaultConfig(), Options{})
	assert.Equal(t, Metrics{}, res.Metrics)
	assert.Zero(t, res.Metrics.Agreement())
}

func TestRun_FromStore(t *testing.T) {
	store, err := recorder.Open(filepath.Join(t.TempDir(), "capture.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	frames := wallSession(t)
	require.NoError(t, store.SessionStarted(ctx, session.Info{ID: "s1", StartedAt: t0}))
	for _, rf := range frames {
		require.NoError(t, store.FrameRecorded(ctx, session.FrameRecord{
			SessionID:   "s1",
			Seq:         rf.Seq,
			Frame:       rf.Frame,
			Result:      surface.Result{Placement: rf.Placement, HasPlacement: rf.HasPlacement},
			CommittedID: rf.CommittedID,
		}))
	}

	loaded, err := store.LoadFrames(ctx, "s1")
	require.NoError(t, err)
	direct := Run(frames, surface.DefaultConfig(), Options{})
	fromDB := Run(loaded, surface.DefaultConfig(), Options{})
	assert.Equal(t, direct.Metrics, fromDB.Metrics)
}

// ---- Sweep ----------------------------------------------------------------

func TestSweep(t *testing.T) {
	t.Parallel()

	params := []Param{{Name: "locked_wall_max_age", Values: []float64{0.001, 14}}}
	results, err := Sweep(context.Background(), wallSession(t), SweepRequest{
		Params:  params,
		Weights: DefaultWeights(),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.001, results[0].Params["locked_wall_max_age"])
	assert.Less(t, results[0].Score, results[1].Score)

	best, err := Best(results)
	require.NoError(t, err)
	assert.Equal(t, 14.0, best.Params["locked_wall_max_age"])

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, params, results))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "locked_wall_max_age", rows[0][0])
	assert.Equal(t, "score", rows[0][len(rows[0])-1])
	assert.Equal(t, "14.0000", rows[2][0])
	assert.Equal(t, "1.0000", rows[2][7], "agreement")
}

func TestSweep_Errors(t *testing.T) {
	t.Parallel()

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Sweep(ctx, wallSession(t), SweepRequest{Params: []Param{{Name: "sticky_gap", Values: []float64{0.1}}}})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid combo", func(t *testing.T) {
		_, err := Sweep(context.Background(), wallSession(t), SweepRequest{Params: []Param{{Name: "wall_verticality_min", Values: []float64{1.5}}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wall_verticality_min")
	})

	t.Run("best of nothing", func(t *testing.T) {
		_, err := Best(nil)
		assert.Error(t, err)
	})
}

func TestRank_StableOnTies(t *testing.T) {
	t.Parallel()
	in := []ComboResult{
		{Params: Combo{"a": 1}, Score: 0.5},
		{Params: Combo{"a": 2}, Score: 0.9},
		{Params: Combo{"a": 3}, Score: 0.5},
	}
	got := Rank(in)
	assert.Equal(t, []float64{2, 1, 3}, []float64{got[0].Params["a"], got[1].Params["a"], got[2].Params["a"]})
	assert.Equal(t, 1.0, in[0].Params["a"], "input untouched")
}

// ---- Params ---------------------------------------------------------------

func TestApplyCombo(t *testing.T) {
	t.Parallel()

	base := config.DefaultTuningConfig()
	out, err := ApplyCombo(base, Combo{
		"sticky_window":     0.5,
		"sticky_gap":        0.25,
		"max_placed_panels": 18,
	})
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, out.GetStickyWindow())
	assert.Equal(t, 0.25, out.GetStickyGap())
	assert.Equal(t, 18, out.GetMaxPlacedPanels())
	// untouched keys carry over, base is not mutated
	assert.Equal(t, base.GetLockedWallMaxAge(), out.GetLockedWallMaxAge())
	assert.Equal(t, 0.16, base.GetStickyGap())

	_, err = ApplyCombo(base, Combo{"ceiling_bias": 1})
	assert.Error(t, err)
	_, err = ApplyCombo(base, Combo{"max_placed_panels": 2.5})
	assert.Error(t, err)
}

func TestCombos(t *testing.T) {
	t.Parallel()

	got := Combos([]Param{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{10, 20, 30}},
	})
	want := []Combo{
		{"a": 1, "b": 10}, {"a": 1, "b": 20}, {"a": 1, "b": 30},
		{"a": 2, "b": 10}, {"a": 2, "b": 20}, {"a": 2, "b": 30},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []Combo{{}}, Combos(nil))
}

func TestParseParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Param
		wantErr bool
	}{
		{in: "sticky_gap=0.1,0.2", want: Param{Name: "sticky_gap", Values: []float64{0.1, 0.2}}},
		{in: "level_wall_bias=0.1:0.3:0.1", want: Param{Name: "level_wall_bias", Values: []float64{0.1, 0.2, 0.3}}},
		{in: " down_pitch = 0.4 ", want: Param{Name: "down_pitch", Values: []float64{0.4}}},
		{in: "sticky_gap", wantErr: true},
		{in: "=0.1", wantErr: true},
		{in: "sticky_gap=", wantErr: true},
		{in: "sticky_gap=0.1:0.2", wantErr: true},
		{in: "sticky_gap=0.1:0.2:0", wantErr: true},
		{in: "sticky_gap=abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParam(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("ParseParam mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateRange(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []float64{0.5, 0.75, 1}, GenerateRange(0.5, 1, 0.25))
	assert.Equal(t, []float64{2}, GenerateRange(2, 2, 1))
	assert.Nil(t, GenerateRange(2, 1, 1))
	assert.Nil(t, GenerateRange(0, 1, 0))
	assert.Nil(t, GenerateRange(0, 1e6, 1))
}
