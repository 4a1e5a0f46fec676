package grating

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SpicePrefix marks the annotation text read by the netlister.
const SpicePrefix = "Spice_param:"

// ErrBadSpiceParams is returned for parameter strings that are not in the
// canonical netlister form.
var ErrBadSpiceParams = errors.New("malformed spice parameters")

const spiceFormat = "number_of_periods=%d grating_period=%.4fu wg1_width=%.3fu wg2_width=%.3fu " +
	"corrugation1_width=%.3fu corrugation2_width=%.3fu gap=%.3fu apodization_index=%.3f " +
	"AR=%d sinusoidal=%d accuracy=%d"

var spiceKeys = []string{
	"number_of_periods", "grating_period", "wg1_width", "wg2_width",
	"corrugation1_width", "corrugation2_width", "gap", "apodization_index",
	"AR", "sinusoidal", "accuracy",
}

// FormatSpice renders the netlister parameter string for s, without prefix.
func FormatSpice(s Spec) string {
	return fmt.Sprintf(spiceFormat,
		s.NumberOfPeriods, s.GratingPeriod, s.Wg1Width, s.Wg2Width,
		s.Corrugation1Width, s.Corrugation2Width, s.Gap, s.ApodizationIndex,
		boolInt(s.AntiReflection), boolInt(s.Sinusoidal), boolInt(s.Accuracy))
}

// SpiceAnnotation is the device-recognition text carried by a produced cell.
func SpiceAnnotation(s Spec) string {
	return SpicePrefix + FormatSpice(s)
}

// ParseSpice reads a parameter string produced by FormatSpice, with or
// without SpicePrefix. Only canonical strings are accepted, so that
// FormatSpice(ParseSpice(x)) == x for every accepted x (minus the prefix).
func ParseSpice(text string) (Spec, error) {
	body := strings.TrimPrefix(text, SpicePrefix)
	tokens := strings.Split(body, " ")
	if len(tokens) != len(spiceKeys) {
		return Spec{}, fmt.Errorf("%w: expected %d tokens, got %d", ErrBadSpiceParams, len(spiceKeys), len(tokens))
	}

	vals := make([]string, len(tokens))
	for i, tok := range tokens {
		key, val, ok := strings.Cut(tok, "=")
		if !ok || key != spiceKeys[i] {
			return Spec{}, fmt.Errorf("%w: token %d is %q, expected key %s", ErrBadSpiceParams, i, tok, spiceKeys[i])
		}
		vals[i] = val
	}

	var (
		s   Spec
		err error
	)
	if s.NumberOfPeriods, err = strconv.Atoi(vals[0]); err != nil {
		return Spec{}, fmt.Errorf("%w: number_of_periods: %v", ErrBadSpiceParams, err)
	}
	lengths := []*float64{
		&s.GratingPeriod, &s.Wg1Width, &s.Wg2Width,
		&s.Corrugation1Width, &s.Corrugation2Width, &s.Gap,
	}
	for i, dst := range lengths {
		raw, ok := strings.CutSuffix(vals[i+1], "u")
		if !ok {
			return Spec{}, fmt.Errorf("%w: %s missing unit suffix", ErrBadSpiceParams, spiceKeys[i+1])
		}
		if *dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return Spec{}, fmt.Errorf("%w: %s: %v", ErrBadSpiceParams, spiceKeys[i+1], err)
		}
	}
	if s.ApodizationIndex, err = strconv.ParseFloat(vals[7], 64); err != nil {
		return Spec{}, fmt.Errorf("%w: apodization_index: %v", ErrBadSpiceParams, err)
	}
	flags := []*bool{&s.AntiReflection, &s.Sinusoidal, &s.Accuracy}
	for i, dst := range flags {
		switch vals[i+8] {
		case "0":
			*dst = false
		case "1":
			*dst = true
		default:
			return Spec{}, fmt.Errorf("%w: %s must be 0 or 1, got %q", ErrBadSpiceParams, spiceKeys[i+8], vals[i+8])
		}
	}

	if canonical := FormatSpice(s); canonical != body {
		return Spec{}, fmt.Errorf("%w: not in canonical form (want %q)", ErrBadSpiceParams, canonical)
	}
	return s, nil
}

// DisplayName is the cell title shown by the layout host.
func DisplayName(s Spec) string {
	return fmt.Sprintf("contra_directional_coupler_%dN-%.1fnm period", s.NumberOfPeriods, s.GratingPeriod*1000)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
