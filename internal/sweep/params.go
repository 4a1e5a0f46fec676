package sweep

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/grating"
)

// ErrUnknownParam is returned for a parameter name no setter handles.
var ErrUnknownParam = errors.New("unknown sweep parameter")

// maxCombos bounds the cartesian product of one sweep.
const maxCombos = 1000

// Param is one swept dimension. Values take precedence over the range.
type Param struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values,omitempty"`

	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`
	Step  float64 `json:"step,omitempty"`
}

// ParseParam parses "name=min:max:step" or "name=v1,v2,...".
func ParseParam(s string) (Param, error) {
	name, spec, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Param{}, fmt.Errorf("invalid parameter %q: expected name=min:max:step or name=v1,v2", s)
	}
	if _, known := setters[name]; !known {
		return Param{}, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	values, err := ParseParamList(strings.TrimSpace(spec))
	if err != nil {
		return Param{}, fmt.Errorf("parameter %q: %w", name, err)
	}
	if len(values) == 0 {
		return Param{}, fmt.Errorf("parameter %q has no values", name)
	}
	return Param{Name: name, Values: values}, nil
}

// expand fills Values from the range fields.
func (p *Param) expand() error {
	if _, known := setters[p.Name]; !known {
		return fmt.Errorf("%w: %q", ErrUnknownParam, p.Name)
	}
	if len(p.Values) > 0 {
		return nil
	}
	if p.Step <= 0 {
		return fmt.Errorf("parameter %q: step must be positive", p.Name)
	}
	p.Values = GenerateRange(p.Start, p.End, p.Step)
	if len(p.Values) == 0 {
		return fmt.Errorf("parameter %q has no values", p.Name)
	}
	return nil
}

// Case is the full input of one simulation.
type Case struct {
	Spec       grating.Spec   `json:"spec"`
	Dispersion cmt.Dispersion `json:"dispersion"`
	Coupling   cmt.Coupling   `json:"coupling"`
	Setup      cmt.Setup      `json:"setup"`
}

// DefaultCase combines the package defaults.
func DefaultCase() Case {
	return Case{
		Spec:       grating.DefaultSpec(),
		Dispersion: cmt.DefaultDispersion(),
		Coupling:   cmt.DefaultCoupling(),
		Setup:      cmt.DefaultSetup(),
	}
}

func flag(v float64) bool { return v != 0 }

// setters maps parameter names to the Case field they drive. Names follow
// the JSON keys of the underlying records; wavelengths are in nm.
var setters = map[string]func(c *Case, v float64){
	"number_of_periods":  func(c *Case, v float64) { c.Spec.NumberOfPeriods = int(math.Round(v)) },
	"grating_period":     func(c *Case, v float64) { c.Spec.GratingPeriod = v },
	"wg1_width":          func(c *Case, v float64) { c.Spec.Wg1Width = v },
	"wg2_width":          func(c *Case, v float64) { c.Spec.Wg2Width = v },
	"corrugation1_width": func(c *Case, v float64) { c.Spec.Corrugation1Width = v },
	"corrugation2_width": func(c *Case, v float64) { c.Spec.Corrugation2Width = v },
	"gap":                func(c *Case, v float64) { c.Spec.Gap = v },
	"apodization_index":  func(c *Case, v float64) { c.Spec.ApodizationIndex = v },
	"anti_reflection":    func(c *Case, v float64) { c.Spec.AntiReflection = flag(v) },
	"sinusoidal":         func(c *Case, v float64) { c.Spec.Sinusoidal = flag(v) },
	"accuracy":           func(c *Case, v float64) { c.Spec.Accuracy = flag(v) },
	"chirp_linear_pct":   func(c *Case, v float64) { c.Spec.Chirp.LinearPct = v },
	"chirp_random_pct":   func(c *Case, v float64) { c.Spec.Chirp.RandomPct = v },
	"chirp_coupling_pct": func(c *Case, v float64) { c.Spec.Chirp.CouplingPct = v },
	"chirp_seed":         func(c *Case, v float64) { c.Spec.Chirp.Seed = int64(v) },
	"wg1_neff":           func(c *Case, v float64) { c.Dispersion.Wg1.Neff = v },
	"wg2_neff":           func(c *Case, v float64) { c.Dispersion.Wg2.Neff = v },
	"loss_db_per_cm":     func(c *Case, v float64) { c.Dispersion.LossDBPerCm = v },
	"detuning":           func(c *Case, v float64) { c.Dispersion.Detuning = v },
	"contra":             func(c *Case, v float64) { c.Coupling.Contra = v },
	"self1":              func(c *Case, v float64) { c.Coupling.Self1 = v },
	"self2":              func(c *Case, v float64) { c.Coupling.Self2 = v },
	"device_temp":        func(c *Case, v float64) { c.Setup.DeviceTemp = v },
	"chip_temp":          func(c *Case, v float64) { c.Setup.ChipTemp = v },
	"points":             func(c *Case, v float64) { c.Setup.Points = int(math.Round(v)) },
	"start_nm":           func(c *Case, v float64) { c.Setup.Start = v * 1e-9 },
	"stop_nm":            func(c *Case, v float64) { c.Setup.Stop = v * 1e-9 },
}

// ParamNames lists the sweepable parameters in sorted order.
func ParamNames() []string {
	names := make([]string, 0, len(setters))
	for n := range setters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Combo is one point of the cartesian product, in parameter order.
type Combo []float64

// Apply returns base with the combination's values set.
func (c Combo) Apply(base Case, params []Param) Case {
	out := base
	for i, p := range params {
		setters[p.Name](&out, c[i])
	}
	return out
}

// Combinations expands every parameter and returns the cartesian product.
// The last parameter varies fastest.
func Combinations(params []Param) ([]Combo, error) {
	if len(params) == 0 {
		return nil, errors.New("no parameters to sweep")
	}
	seen := make(map[string]bool, len(params))
	total := 1
	for i := range params {
		if err := params[i].expand(); err != nil {
			return nil, err
		}
		if seen[params[i].Name] {
			return nil, fmt.Errorf("parameter %q given twice", params[i].Name)
		}
		seen[params[i].Name] = true
		total *= len(params[i].Values)
		if total > maxCombos {
			return nil, fmt.Errorf("parameter range too large: more than %d combinations", maxCombos)
		}
	}

	combos := make([]Combo, total)
	for i := range combos {
		combos[i] = make(Combo, len(params))
	}
	repeat := 1
	for dim := len(params) - 1; dim >= 0; dim-- {
		vals := params[dim].Values
		cycle := len(vals)
		for i := 0; i < total; i++ {
			combos[i][dim] = vals[(i/repeat)%cycle]
		}
		repeat *= cycle
	}
	return combos, nil
}
