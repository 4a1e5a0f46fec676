package cmt

import (
	"fmt"
	"math"

	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/units"
)

// Mode is the linear dispersion of one waveguide around the central
// wavelength.
type Mode struct {
	Neff  float64 `json:"neff"`
	Dneff float64 `json:"dneff"` // dn_eff/dλ in 1/m
}

// Dispersion is the mode data of both waveguides.
type Dispersion struct {
	Wg1               Mode    `json:"wg1"`
	Wg2               Mode    `json:"wg2"`
	CentralWavelength float64 `json:"central_wavelength"` // m
	LossDBPerCm       float64 `json:"loss_db_per_cm"`
	// Detuning scales both effective indices. Zero means 1.
	Detuning float64 `json:"detuning,omitempty"`
}

// DefaultDispersion returns strip-waveguide values for the EBeam
// 0.45 µm / 0.55 µm contra-DC pair at 1550 nm.
func DefaultDispersion() Dispersion {
	return Dispersion{
		Wg1:               Mode{Neff: 2.32, Dneff: -1.0e6},
		Wg2:               Mode{Neff: 2.57, Dneff: -1.0e6},
		CentralWavelength: 1550e-9,
		Detuning:          1,
	}
}

// Validate checks the mode data.
func (d Dispersion) Validate() error {
	check := func(name string, v float64, ok bool) error {
		if math.IsNaN(v) || math.IsInf(v, 0) || !ok {
			return fmt.Errorf("%w: %s = %g", ErrInvalidDispersion, name, v)
		}
		return nil
	}
	for _, err := range []error{
		check("wg1.neff", d.Wg1.Neff, d.Wg1.Neff > 0),
		check("wg2.neff", d.Wg2.Neff, d.Wg2.Neff > 0),
		check("wg1.dneff", d.Wg1.Dneff, true),
		check("wg2.dneff", d.Wg2.Dneff, true),
		check("central_wavelength", d.CentralWavelength, d.CentralWavelength > 0),
		check("loss_db_per_cm", d.LossDBPerCm, d.LossDBPerCm >= 0),
		check("detuning", d.Detuning, d.Detuning >= 0),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (d Dispersion) detuning() float64 {
	if d.Detuning == 0 {
		return 1
	}
	return d.Detuning
}

// Neff returns the effective index of waveguide wg (1 or 2) at lambda,
// shifted by the thermo-optic term for a device dT kelvin above the chip.
func (d Dispersion) Neff(wg int, lambda, dT float64) float64 {
	m := d.Wg1
	if wg == 2 {
		m = d.Wg2
	}
	return (m.Neff+m.Dneff*(lambda-d.CentralWavelength))*d.detuning() + units.ThermoOpticSilicon*dT
}

// Coupling holds the injected coupling coefficients in 1/m, for
// rectangular teeth at full apodization envelope and without
// anti-reflection.
type Coupling struct {
	Contra float64 `json:"contra"`
	Self1  float64 `json:"self1"`
	Self2  float64 `json:"self2"`
}

// DefaultCoupling returns coefficients for the default EBeam corrugation.
func DefaultCoupling() Coupling {
	return Coupling{Contra: 24000, Self1: 8000, Self2: 8000}
}

// Validate checks that every coefficient is finite.
func (c Coupling) Validate() error {
	names := [3]string{"contra", "self1", "self2"}
	for i, v := range [3]float64{c.Contra, c.Self1, c.Self2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coupling %s = %g", ErrInvalidDispersion, names[i], v)
		}
	}
	return nil
}

// SinusoidalShape is the ratio of the first Fourier harmonic of a sine to
// that of a square corrugation with the same amplitude.
const SinusoidalShape = math.Pi / 4

// ForSpec returns the coefficients for the corrugation, tooth shape and
// anti-reflection setting of s. An uncorrugated waveguide has no self-Bragg
// term, and without any corrugation there is no contra coupling.
// Anti-reflection puts the two gratings half a period out of phase, which
// cancels the self-Bragg terms.
func (c Coupling) ForSpec(s grating.Spec) Coupling {
	shape := 1.0
	if s.Sinusoidal {
		shape = SinusoidalShape
	}
	out := Coupling{Contra: c.Contra * shape, Self1: c.Self1 * shape, Self2: c.Self2 * shape}
	if s.Corrugation1Width == 0 {
		out.Self1 = 0
	}
	if s.Corrugation2Width == 0 {
		out.Self2 = 0
	}
	if s.Corrugation1Width == 0 && s.Corrugation2Width == 0 {
		out.Contra = 0
	}
	if s.AntiReflection {
		out.Self1, out.Self2 = 0, 0
	}
	return out
}
