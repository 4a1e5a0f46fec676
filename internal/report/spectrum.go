// Package report renders simulated spectra as CSV tables, PNG plots and
// interactive HTML charts.
package report

import (
	"errors"
	"math"

	"github.com/siepic/ebeam-cdc/internal/cmt"
)

// ErrEmptySpectrum is returned when there is nothing to render.
var ErrEmptySpectrum = errors.New("empty spectrum")

// Spectrum is a pair of port spectra in dB over a wavelength grid in
// metres. Failed points are NaN.
type Spectrum struct {
	Name        string
	Wavelengths []float64
	ThroughDB   []float64
	DropDB      []float64
}

// FromResult converts a simulation result.
func FromResult(name string, r *cmt.Result) Spectrum {
	return Spectrum{
		Name:        name,
		Wavelengths: r.Wavelengths,
		ThroughDB:   r.ThroughDB(),
		DropDB:      r.DropDB(),
	}
}

// FromPower builds a Spectrum from linear power arrays.
func FromPower(name string, wavelengths, through, drop []float64) Spectrum {
	return Spectrum{
		Name:        name,
		Wavelengths: wavelengths,
		ThroughDB:   toDB(through),
		DropDB:      toDB(drop),
	}
}

func toDB(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = 10 * math.Log10(v)
	}
	return out
}

// Validate checks that the series line up.
func (s Spectrum) Validate() error {
	if len(s.Wavelengths) == 0 {
		return ErrEmptySpectrum
	}
	if len(s.ThroughDB) != len(s.Wavelengths) || len(s.DropDB) != len(s.Wavelengths) {
		return errors.New("spectrum series lengths differ")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
