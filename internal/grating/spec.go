package grating

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned (wrapped) when a Spec cannot describe a
// manufacturable device.
var ErrInvalidGeometry = errors.New("invalid geometry")

// GeometryError names the parameter that violates a geometric invariant.
type GeometryError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid geometry: %s = %g: %s", e.Param, e.Value, e.Reason)
}

func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

// ChirpPolicy holds the three chirp contributions in percent. The zero value
// disables chirp.
type ChirpPolicy struct {
	LinearPct   float64 `json:"linear_pct"`
	RandomPct   float64 `json:"random_pct"`
	CouplingPct float64 `json:"coupling_pct"`
	Seed        int64   `json:"seed"`
}

// IsZero reports whether the policy leaves every period at its nominal value.
func (c ChirpPolicy) IsZero() bool {
	return c.LinearPct == 0 && c.RandomPct == 0 && c.CouplingPct == 0
}

// DefaultChirpPolicy is applied when a simulation enables chirp without an
// explicit policy.
func DefaultChirpPolicy(seed int64) ChirpPolicy {
	return ChirpPolicy{LinearPct: 0.2, RandomPct: 0.04, CouplingPct: -0.1, Seed: seed}
}

// Spec is the grating parameter record shared by layout and simulation.
type Spec struct {
	NumberOfPeriods   int         `json:"number_of_periods"`
	GratingPeriod     float64     `json:"grating_period"`
	Wg1Width          float64     `json:"wg1_width"`
	Wg2Width          float64     `json:"wg2_width"`
	Corrugation1Width float64     `json:"corrugation1_width"`
	Corrugation2Width float64     `json:"corrugation2_width"`
	Gap               float64     `json:"gap"`
	ApodizationIndex  float64     `json:"apodization_index"`
	AntiReflection    bool        `json:"anti_reflection"`
	Sinusoidal        bool        `json:"sinusoidal"`
	Accuracy          bool        `json:"accuracy"`
	Chirp             ChirpPolicy `json:"chirp"`
}

// DefaultSpec returns the EBeam contra-DC defaults.
func DefaultSpec() Spec {
	return Spec{
		NumberOfPeriods:   300,
		GratingPeriod:     0.317,
		Wg1Width:          0.45,
		Wg2Width:          0.55,
		Corrugation1Width: 0.03,
		Corrugation2Width: 0.04,
		Gap:               0.15,
		ApodizationIndex:  2.8,
		AntiReflection:    true,
		Accuracy:          true,
	}
}

// Length returns the nominal grating length N·Λ in micrometres.
func (s Spec) Length() float64 {
	return float64(s.NumberOfPeriods) * s.GratingPeriod
}

// Validate checks the geometric invariants. All violations are reported,
// each as a *GeometryError.
func (s Spec) Validate() error {
	var errs []error
	bad := func(param string, v float64, reason string) {
		errs = append(errs, &GeometryError{Param: param, Value: v, Reason: reason})
	}

	if s.NumberOfPeriods < 1 {
		bad("number_of_periods", float64(s.NumberOfPeriods), "must be at least 1")
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"grating_period", s.GratingPeriod},
		{"wg1_width", s.Wg1Width},
		{"wg2_width", s.Wg2Width},
		{"gap", s.Gap},
	}
	for _, p := range positive {
		if !finite(p.v) || p.v <= 0 {
			bad(p.name, p.v, "must be positive")
		}
	}
	corr := []struct {
		name  string
		v     float64
		width float64
	}{
		{"corrugation1_width", s.Corrugation1Width, s.Wg1Width},
		{"corrugation2_width", s.Corrugation2Width, s.Wg2Width},
	}
	for _, c := range corr {
		switch {
		case !finite(c.v) || c.v < 0:
			bad(c.name, c.v, "must be non-negative")
		case c.v >= c.width:
			bad(c.name, c.v, fmt.Sprintf("must be narrower than the waveguide (%g)", c.width))
		}
	}
	if !finite(s.ApodizationIndex) || s.ApodizationIndex < 0 {
		bad("apodization_index", s.ApodizationIndex, "must be non-negative")
	}
	chirp := []struct {
		name string
		v    float64
	}{
		{"chirp.linear_pct", s.Chirp.LinearPct},
		{"chirp.random_pct", s.Chirp.RandomPct},
		{"chirp.coupling_pct", s.Chirp.CouplingPct},
	}
	for _, c := range chirp {
		if !finite(c.v) {
			bad(c.name, c.v, "must be finite")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if s.Chirp.IsZero() {
		return nil
	}

	// Chirped periods are checked against the layout segmentation.
	profile := NormalizedEnvelope(s.ApodizationIndex, s.NumberOfPeriods, s.NumberOfPeriods)
	for n, m := range ChirpMultipliers(s.Chirp, profile) {
		if p := s.GratingPeriod * m; p <= 0 {
			return &GeometryError{
				Param:  "chirp",
				Value:  p,
				Reason: fmt.Sprintf("local period of segment %d must be positive", n),
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
