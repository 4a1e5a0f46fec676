package cmt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CrossMode selects how the co-directional cross term T_co is read from H.
type CrossMode int

const (
	// CrossModeCorrected reads T_co = H[1,0]·m_a1 + H[1,1]·m_a2.
	CrossModeCorrected CrossMode = iota
	// CrossModeLegacy reproduces the published model, which reads H[1,0]
	// for both terms.
	CrossModeLegacy
)

// ModeRatios weights the orthogonal mode contributions at the ports.
type ModeRatios struct {
	A1 float64 `json:"a1"`
	A2 float64 `json:"a2"`
	B1 float64 `json:"b1"`
	B2 float64 `json:"b2"`
}

// DefaultModeRatios excite waveguide 1 and collect waveguide 2.
func DefaultModeRatios() ModeRatios {
	return ModeRatios{A1: 1, B2: 1}
}

func (m ModeRatios) isZero() bool { return m == ModeRatios{} }

// Setup is the wavelength grid and run options of one simulation.
type Setup struct {
	Start  float64 `json:"start"` // m
	Stop   float64 `json:"stop"`  // m
	Points int     `json:"points"`

	DeviceTemp float64 `json:"device_temp"` // K
	ChipTemp   float64 `json:"chip_temp"`   // K

	// Chirp applies the default chirp policy when the Spec has none.
	Chirp bool `json:"chirp"`

	Modes     ModeRatios `json:"modes"`
	CrossMode CrossMode  `json:"cross_mode"`

	// Segments overrides the segmentation derived from Spec.Accuracy.
	Segments int `json:"segments,omitempty"`
	// Workers bounds the wavelength worker pool; zero means NumCPU.
	Workers int `json:"workers,omitempty"`
	// Strict aborts on the first failing wavelength.
	Strict bool `json:"strict"`

	// Progress, when set, is called with the number of finished
	// wavelengths. Calls are serialized.
	Progress func(done, total int) `json:"-"`
}

// DefaultSetup covers 1.5–1.6 µm with 1001 points at room temperature.
func DefaultSetup() Setup {
	return Setup{
		Start:      1500e-9,
		Stop:       1600e-9,
		Points:     1001,
		DeviceTemp: 300,
		ChipTemp:   300,
		Modes:      DefaultModeRatios(),
	}
}

// Validate checks the wavelength grid and worker settings.
func (s Setup) Validate() error {
	for _, v := range []float64{s.Start, s.Stop, s.DeviceTemp, s.ChipTemp} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite setup value %g", ErrInvalidDispersion, v)
		}
	}
	switch {
	case s.Points < 1:
		return fmt.Errorf("%w: grid needs at least one point, got %d", ErrInvalidDispersion, s.Points)
	case s.Start <= 0:
		return fmt.Errorf("%w: start wavelength %g must be positive", ErrInvalidDispersion, s.Start)
	case s.Points > 1 && s.Stop <= s.Start:
		return fmt.Errorf("%w: stop wavelength %g must exceed start %g", ErrInvalidDispersion, s.Stop, s.Start)
	case s.Segments < 0:
		return fmt.Errorf("%w: segments must not be negative", ErrInvalidDispersion)
	case s.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidDispersion)
	}
	return nil
}

// Wavelengths returns the evenly spaced grid.
func (s Setup) Wavelengths() []float64 {
	out := make([]float64, s.Points)
	if s.Points == 1 {
		out[0] = s.Start
		return out
	}
	return floats.Span(out, s.Start, s.Stop)
}

func (s Setup) modes() ModeRatios {
	if s.Modes.isZero() {
		return DefaultModeRatios()
	}
	return s.Modes
}
