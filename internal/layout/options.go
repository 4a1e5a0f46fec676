package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/siepic/ebeam-cdc/internal/units"
)

// ErrInvalidOptions is returned (wrapped) for unusable placement options.
var ErrInvalidOptions = errors.New("invalid layout options")

// CellKind selects the cell generator.
type CellKind int

const (
	// KindContraDC is the standard cell with a uniform nominal period.
	KindContraDC CellKind = iota
	// KindContraDCChirped sweeps the period linearly from GratingPeriod to
	// Options.GratingPeriodEnd.
	KindContraDCChirped
)

var kindNames = map[CellKind]string{
	KindContraDC:        "contra_directional_coupler",
	KindContraDCChirped: "contra_directional_coupler_chirped",
}

func (k CellKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("CellKind(%d)", int(k))
}

// ParseCellKind accepts the cell names returned by String, plus the short
// forms "standard" and "chirped".
func ParseCellKind(s string) (CellKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "contra_directional_coupler":
		return KindContraDC, nil
	case "chirped", "contra_directional_coupler_chirped":
		return KindContraDCChirped, nil
	}
	return 0, fmt.Errorf("%w: unknown cell kind %q", ErrInvalidOptions, s)
}

// Options are the placement parameters that are not part of the grating
// record. Lengths are in micrometres.
type Options struct {
	SBend       bool    `json:"sbend"`
	SBendRadius float64 `json:"sbend_r"`
	SBendLength float64 `json:"sbend_length"`
	PortWidth   float64 `json:"port_w"`

	Rib bool `json:"rib"`

	Metal       bool    `json:"metal"`
	HeaterWidth float64 `json:"heater_width"`
	MetalWidth  float64 `json:"metal_width"`

	// GratingPeriodEnd is only used by KindContraDCChirped.
	GratingPeriodEnd float64 `json:"grating_period_end"`

	// DBU overrides the host's database unit when building without a host.
	DBU float64 `json:"dbu,omitempty"`
}

// DefaultOptions returns the EBeam cell defaults.
func DefaultOptions() Options {
	return Options{
		SBend:            true,
		SBendRadius:      15,
		SBendLength:      11,
		PortWidth:        0.5,
		HeaterWidth:      3,
		MetalWidth:       5,
		GratingPeriodEnd: 0.32,
		DBU:              units.DefaultDBU,
	}
}

// Validate checks the options used by kind.
func (o Options) Validate(kind CellKind) error {
	var errs []error
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s = %g: must be positive", ErrInvalidOptions, name, v))
		}
	}
	if _, ok := kindNames[kind]; !ok {
		errs = append(errs, fmt.Errorf("%w: unknown cell kind %d", ErrInvalidOptions, int(kind)))
	}
	if o.SBend {
		check("port_w", o.PortWidth)
		check("sbend_r", o.SBendRadius)
		check("sbend_length", o.SBendLength)
	}
	if o.Metal {
		check("heater_width", o.HeaterWidth)
		check("metal_width", o.MetalWidth)
	}
	if kind == KindContraDCChirped {
		check("grating_period_end", o.GratingPeriodEnd)
	}
	if o.DBU != 0 {
		check("dbu", o.DBU)
	}
	return errors.Join(errs...)
}
