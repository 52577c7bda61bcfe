package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteCSV writes one row per combination: the param values in params order
// followed by the metrics and score.
func WriteCSV(w io.Writer, params []Param, results []ComboResult) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(params)+10)
	for _, p := range params {
		header = append(header, p.Name)
	}
	header = append(header,
		"frames", "placement_rate", "kind_switches", "flicker_rate", "fallback_rate",
		"estimated_rate", "agreement", "selection_agreement", "score")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		row := make([]string, 0, len(header))
		for _, p := range params {
			row = append(row, formatFloat(r.Params[p.Name]))
		}
		m := r.Metrics
		row = append(row,
			strconv.Itoa(m.Frames),
			formatFloat(m.PlacementRate()),
			strconv.Itoa(m.KindSwitches),
			formatFloat(m.FlickerRate()),
			formatFloat(m.FallbackRate()),
			formatFloat(m.EstimatedRate()),
			formatFloat(m.Agreement()),
			formatFloat(m.SelectionAgreement()),
			formatFloat(r.Score),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
