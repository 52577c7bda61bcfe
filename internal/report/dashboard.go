package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/replay"
)

// AssetsHost serves the echarts scripts referenced by rendered pages.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Dashboard is the input of RenderDashboard. Timeline and Sweep are both
// optional.
type Dashboard struct {
	Title    string
	Metrics  replay.Metrics
	Timeline []replay.Sample
	Params   []replay.Param
	Sweep    []replay.ComboResult
}

// RenderDashboard writes an HTML page with the score timeline, the source
// mix, the headline rates and, when present, the sweep ranking.
func RenderDashboard(w io.Writer, d Dashboard) error {
	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.AddCharts(ratesChart(d.Title, d.Metrics))
	if len(d.Timeline) > 0 {
		page.AddCharts(timelineChart(d.Title, d.Timeline), sourcesChart(d.Timeline))
	}
	if len(d.Sweep) > 0 {
		page.AddCharts(sweepChart(d.Params, d.Sweep))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

func ratesChart(title string, m replay.Metrics) *charts.Bar {
	x := []string{"Placement", "Agreement", "Selection agreement", "Fallback", "Estimated", "Flicker"}
	y := []opts.BarData{
		{Value: m.PlacementRate()},
		{Value: m.Agreement()},
		{Value: m.SelectionAgreement()},
		{Value: m.FallbackRate()},
		{Value: m.EstimatedRate()},
		{Value: m.FlickerRate()},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("frames=%d placed=%d kind switches=%d", m.Frames, m.Placed, m.KindSwitches)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Rate"}),
	)
	bar.SetXAxis(x).
		AddSeries("rates", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func timelineChart(title string, timeline []replay.Sample) *charts.Line {
	x := make([]string, 0, len(timeline))
	floor := make([]opts.LineData, 0, len(timeline))
	wall := make([]opts.LineData, 0, len(timeline))
	for _, s := range timeline {
		x = append(x, fmt.Sprintf("%.2f", s.Elapsed.Seconds()))
		floor = append(floor, scoreData(s.FloorScore))
		wall = append(wall, scoreData(s.WallScore))
	}

	colors := generateColors(2)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Placement scores", Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Score"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x).
		AddSeries("floor", floor, charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[0])})).
		AddSeries("wall", wall, charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[1])}))
	return line
}

// scoreData maps the "no candidate" score to a gap in the line.
func scoreData(v float64) opts.LineData {
	if v < 0 {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: v}
}

func sourcesChart(timeline []replay.Sample) *charts.Pie {
	counts := map[string]int{}
	for _, s := range timeline {
		key := "none"
		if s.Kind != placement.KindNone {
			key = fmt.Sprintf("%s/%s", s.Kind, s.Source)
		}
		counts[key]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := make([]opts.PieData, 0, len(keys))
	for _, k := range keys {
		data = append(data, opts.PieData{Name: k, Value: counts[k]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Reticle source mix"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("sources", data)
	return pie
}

func comboLabel(params []replay.Param, c replay.Combo) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s=%g", p.Name, c[p.Name]))
	}
	return strings.Join(parts, " ")
}

func sweepChart(params []replay.Param, results []replay.ComboResult) *charts.Bar {
	ranked := replay.Rank(results)
	x := make([]string, 0, len(ranked))
	scores := make([]opts.BarData, 0, len(ranked))
	agreement := make([]opts.BarData, 0, len(ranked))
	for _, r := range ranked {
		x = append(x, comboLabel(params, r.Params))
		scores = append(scores, opts.BarData{Value: r.Score})
		agreement = append(agreement, opts.BarData{Value: r.Metrics.Agreement()})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "560px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Tuning sweep", Subtitle: fmt.Sprintf("combinations=%d", len(ranked))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("score", scores).
		AddSeries("agreement", agreement)
	return bar
}
