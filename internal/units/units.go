// Package units provides the physical constants and unit conversions shared
// by the layout generator and the coupled-mode solver.
//
// Public records carry lengths in micrometres, as the layout host does. The
// solver works in SI (metres, 1/m) and converts at its boundary.
package units

import "math"

// Physical constants.
const (
	// SpeedOfLight is c in m/s.
	SpeedOfLight = 299792458.0
	// ThermoOpticSilicon is dn/dT of silicon in 1/K.
	ThermoOpticSilicon = 1.87e-4
)

// Length scale factors.
const (
	MetresPerMicron = 1e-6
	MicronsPerMetre = 1e6
)

// DefaultDBU is the layout database unit in micrometres (1 nm).
const DefaultDBU = 0.001

// Micron converts micrometres to metres.
func Micron(um float64) float64 {
	return um * MetresPerMicron
}

// ToMicron converts metres to micrometres.
func ToMicron(m float64) float64 {
	return m * MicronsPerMetre
}

// ToNanometre converts metres to nanometres.
func ToNanometre(m float64) float64 {
	return m * 1e9
}

// DBPerCmToNeperPerMetre converts a field loss in dB/cm into the power
// attenuation coefficient in 1/m used by the propagation constants.
func DBPerCmToNeperPerMetre(dbPerCm float64) float64 {
	return 100 * dbPerCm / 10 * math.Ln10
}

// AngularFrequency returns ω = 2πc/λ for a wavelength in metres.
func AngularFrequency(lambda float64) float64 {
	return 2 * math.Pi * SpeedOfLight / lambda
}

// ToDBU converts micrometres to integer database units, rounding half away
// from zero like the layout host does.
func ToDBU(um, dbu float64) int64 {
	return int64(math.Round(um / dbu))
}

// FromDBU converts database units back to micrometres.
func FromDBU(v int64, dbu float64) float64 {
	return float64(v) * dbu
}

// PowerDB converts a linear power ratio into dB. Zero maps to -Inf.
func PowerDB(p float64) float64 {
	return 10 * math.Log10(p)
}
