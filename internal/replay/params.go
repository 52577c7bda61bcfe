package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/livepanels/internal/config"
)

// durationParams are tuning keys held as duration strings; sweep values for
// them are seconds.
var durationParams = map[string]bool{
	"sticky_window":       true,
	"locked_wall_max_age": true,
	"status_cooldown":     true,
}

// Param is one tuning key and the values to try for it.
type Param struct {
	Name   string
	Values []float64
}

// ParseParam parses "name=min:max:step" or "name=v1,v2,...".
func ParseParam(s string) (Param, error) {
	name, spec, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Param{}, fmt.Errorf("invalid param %q: expected name=values", s)
	}
	values, err := ParseParamList(strings.TrimSpace(spec))
	if err != nil {
		return Param{}, fmt.Errorf("param %s: %w", name, err)
	}
	if len(values) == 0 {
		return Param{}, fmt.Errorf("param %s: no values", name)
	}
	return Param{Name: name, Values: values}, nil
}

// ParseParamList parses a comma-separated list of floats or a "min:max:step"
// range.
func ParseParamList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid range format %q: expected min:max:step", s)
		}
		var nums [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range value %q: %w", p, err)
			}
			nums[i] = v
		}
		if nums[2] <= 0 {
			return nil, fmt.Errorf("step must be positive, got %f", nums[2])
		}
		return GenerateRange(nums[0], nums[1], nums[2]), nil
	}

	var out []float64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GenerateRange returns min..max inclusive by step, rounded to 1e-3. It
// returns nil for an empty or oversized range.
func GenerateRange(min, max, step float64) []float64 {
	if step <= 0 || min > max {
		return nil
	}
	const maxValues = 1000
	if n := int((max-min)/step) + 1; n > maxValues || n < 0 {
		return nil
	}
	var out []float64
	for i := 0; ; i++ {
		v := math.Round((min+float64(i)*step)*1000) / 1000
		if v > max+step/1000 {
			break
		}
		out = append(out, math.Min(v, max))
	}
	return out
}

// Combo is one point of the sweep grid, keyed by tuning name.
type Combo map[string]float64

// Combos returns the cartesian product of params, the first param varying
// slowest.
func Combos(params []Param) []Combo {
	if len(params) == 0 {
		return []Combo{{}}
	}
	var out []Combo
	rest := Combos(params[1:])
	for _, v := range params[0].Values {
		for _, r := range rest {
			c := Combo{params[0].Name: v}
			for k, rv := range r {
				c[k] = rv
			}
			out = append(out, c)
		}
	}
	return out
}

// ApplyCombo returns a copy of base with combo's values set and validated.
// Unknown keys are an error.
func ApplyCombo(base *config.TuningConfig, combo Combo) (*config.TuningConfig, error) {
	if base == nil {
		base = config.EmptyTuningConfig()
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("marshal base tuning: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal base tuning: %w", err)
	}
	for name, v := range combo {
		if durationParams[name] {
			fields[name] = time.Duration(v * float64(time.Second)).String()
			continue
		}
		fields[name] = v
	}
	if raw, err = json.Marshal(fields); err != nil {
		return nil, fmt.Errorf("marshal tuning overrides: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var out config.TuningConfig
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("apply %v: %w", combo, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("apply %v: %w", combo, err)
	}
	return &out, nil
}
