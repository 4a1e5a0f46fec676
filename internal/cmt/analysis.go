package cmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/units"
)

// PhaseMatch holds the Bragg wavelengths of a device, in metres.
type PhaseMatch struct {
	// Contra is where β1 + β2 = 2π/Λ: the drop-port centre.
	Contra float64 `json:"contra"`
	// Self1 and Self2 are where 2βi = 2π/Λ: the back-reflection bands.
	Self1 float64 `json:"self1"`
	Self2 float64 `json:"self2"`
}

// PhaseMatchWavelengths solves the phase-matching conditions in closed
// form for the linear dispersion at the nominal period of s.
func PhaseMatchWavelengths(s grating.Spec, disp Dispersion, deltaT float64) (PhaseMatch, error) {
	if err := disp.Validate(); err != nil {
		return PhaseMatch{}, err
	}
	period := units.Micron(s.GratingPeriod)
	if period <= 0 {
		return PhaseMatch{}, fmt.Errorf("%w: grating_period = %g", grating.ErrInvalidGeometry, s.GratingPeriod)
	}
	det := disp.detuning()
	th := units.ThermoOpticSilicon * deltaT
	lc := disp.CentralWavelength

	// n(λ) = a + b·λ, and the condition k·Λ·Σn(λ) = λ is linear in λ.
	offset := func(m Mode) float64 { return det*(m.Neff-m.Dneff*lc) + th }
	slope := func(m Mode) float64 { return det * m.Dneff }
	solveLinear := func(k, a, b float64) (float64, error) {
		den := 1 - k*period*b
		if den <= 0 {
			return 0, fmt.Errorf("%w: no phase-matched wavelength (dispersion slope too steep)", ErrInvalidDispersion)
		}
		return k * period * a / den, nil
	}

	var pm PhaseMatch
	var err error
	if pm.Contra, err = solveLinear(1, offset(disp.Wg1)+offset(disp.Wg2), slope(disp.Wg1)+slope(disp.Wg2)); err != nil {
		return PhaseMatch{}, err
	}
	if pm.Self1, err = solveLinear(2, offset(disp.Wg1), slope(disp.Wg1)); err != nil {
		return PhaseMatch{}, err
	}
	if pm.Self2, err = solveLinear(2, offset(disp.Wg2), slope(disp.Wg2)); err != nil {
		return PhaseMatch{}, err
	}
	return pm, nil
}

// ErrNoSpectrum is returned when a result has no finite drop power.
var ErrNoSpectrum = errors.New("no finite spectrum points")

// Metrics summarises a drop/through spectrum.
type Metrics struct {
	PeakWavelength float64 `json:"peak_wavelength"` // m
	PeakDrop       float64 `json:"peak_drop"`       // linear power
	PeakDropDB     float64 `json:"peak_drop_db"`
	// Bandwidth3dB is the full width at half of the peak drop power, m.
	Bandwidth3dB float64 `json:"bandwidth_3db"`
	// ThroughDip is the wavelength of minimum through power.
	ThroughDip   float64 `json:"through_dip"`
	ThroughMinDB float64 `json:"through_min_db"`
	// SidelobeSuppressionDB is the peak minus the strongest drop maximum
	// outside the main lobe. +Inf when there is none.
	SidelobeSuppressionDB float64 `json:"sidelobe_suppression_db"`
}

// Analyze computes Metrics over the finite points of r.
func Analyze(r *Result) (Metrics, error) {
	drop := scrub(r.DropPower(), 0)
	thru := scrub(r.ThroughPower(), math.Inf(1))
	if len(drop) == 0 || floats.Max(drop) <= 0 {
		return Metrics{}, ErrNoSpectrum
	}
	lam := r.Wavelengths

	pk := floats.MaxIdx(drop)
	peak := drop[pk]
	m := Metrics{
		PeakWavelength: lam[pk],
		PeakDrop:       peak,
		PeakDropDB:     10 * math.Log10(peak),
	}

	dip := floats.MinIdx(thru)
	m.ThroughDip = lam[dip]
	m.ThroughMinDB = 10 * math.Log10(thru[dip])

	// half-power crossings, linearly interpolated
	half := peak / 2
	lo, hi := pk, pk
	for lo > 0 && drop[lo-1] >= half {
		lo--
	}
	for hi < len(drop)-1 && drop[hi+1] >= half {
		hi++
	}
	left, right := lam[lo], lam[hi]
	if lo > 0 {
		left = interpolate(lam[lo-1], lam[lo], drop[lo-1], drop[lo], half)
	}
	if hi < len(drop)-1 {
		right = interpolate(lam[hi], lam[hi+1], drop[hi], drop[hi+1], half)
	}
	m.Bandwidth3dB = right - left

	// main lobe: descend from the peak to the first minimum on each side
	lo, hi = pk, pk
	for lo > 0 && drop[lo-1] <= drop[lo] {
		lo--
	}
	for hi < len(drop)-1 && drop[hi+1] <= drop[hi] {
		hi++
	}
	side := 0.0
	for i, v := range drop {
		if i < lo || i > hi {
			side = math.Max(side, v)
		}
	}
	m.SidelobeSuppressionDB = math.Inf(1)
	if side > 0 {
		m.SidelobeSuppressionDB = 10 * math.Log10(peak/side)
	}
	return m, nil
}

func interpolate(x0, x1, y0, y1, y float64) float64 {
	if y1 == y0 {
		return x0
	}
	return x0 + (y-y0)*(x1-x0)/(y1-y0)
}

// scrub replaces non-finite values with fill.
func scrub(v []float64, fill float64) []float64 {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = fill
		}
	}
	return v
}

type metricsJSON struct {
	PeakWavelength        *float64 `json:"peak_wavelength"`
	PeakDrop              *float64 `json:"peak_drop"`
	PeakDropDB            *float64 `json:"peak_drop_db"`
	Bandwidth3dB          *float64 `json:"bandwidth_3db"`
	ThroughDip            *float64 `json:"through_dip"`
	ThroughMinDB          *float64 `json:"through_min_db"`
	SidelobeSuppressionDB *float64 `json:"sidelobe_suppression_db"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromPtr(p *float64, fill float64) float64 {
	if p == nil {
		return fill
	}
	return *p
}

// MarshalJSON writes non-finite metrics as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		PeakWavelength:        finitePtr(m.PeakWavelength),
		PeakDrop:              finitePtr(m.PeakDrop),
		PeakDropDB:            finitePtr(m.PeakDropDB),
		Bandwidth3dB:          finitePtr(m.Bandwidth3dB),
		ThroughDip:            finitePtr(m.ThroughDip),
		ThroughMinDB:          finitePtr(m.ThroughMinDB),
		SidelobeSuppressionDB: finitePtr(m.SidelobeSuppressionDB),
	})
}

// UnmarshalJSON reads null metrics back as NaN, and a null sidelobe
// suppression as +Inf.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var j metricsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	nan := math.NaN()
	*m = Metrics{
		PeakWavelength:        fromPtr(j.PeakWavelength, nan),
		PeakDrop:              fromPtr(j.PeakDrop, nan),
		PeakDropDB:            fromPtr(j.PeakDropDB, nan),
		Bandwidth3dB:          fromPtr(j.Bandwidth3dB, nan),
		ThroughDip:            fromPtr(j.ThroughDip, nan),
		ThroughMinDB:          fromPtr(j.ThroughMinDB, nan),
		SidelobeSuppressionDB: fromPtr(j.SidelobeSuppressionDB, math.Inf(1)),
	}
	return nil
}
