package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/layout"
	"github.com/siepic/ebeam-cdc/internal/sweep"
	"github.com/siepic/ebeam-cdc/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/cdc.defaults.json"

// SimConfig is the root configuration of the CLIs and the server. Every
// field is optional; the Get* methods and the builders fall back to the
// package defaults for anything left unset, so partial files are safe.
type SimConfig struct {
	Grating    GratingConfig    `json:"grating"`
	Dispersion DispersionConfig `json:"dispersion"`
	Coupling   CouplingConfig   `json:"coupling"`
	Simulation SimulationConfig `json:"simulation"`
	Layout     LayoutConfig     `json:"layout"`
	Server     ServerConfig     `json:"server"`
}

// GratingConfig mirrors grating.Spec. Lengths are in micrometres.
type GratingConfig struct {
	NumberOfPeriods   *int     `json:"number_of_periods,omitempty"`
	GratingPeriod     *float64 `json:"grating_period,omitempty"`
	Wg1Width          *float64 `json:"wg1_width,omitempty"`
	Wg2Width          *float64 `json:"wg2_width,omitempty"`
	Corrugation1Width *float64 `json:"corrugation1_width,omitempty"`
	Corrugation2Width *float64 `json:"corrugation2_width,omitempty"`
	Gap               *float64 `json:"gap,omitempty"`
	ApodizationIndex  *float64 `json:"apodization_index,omitempty"`
	AntiReflection    *bool    `json:"anti_reflection,omitempty"`
	Sinusoidal        *bool    `json:"sinusoidal,omitempty"`
	Accuracy          *bool    `json:"accuracy,omitempty"`

	ChirpLinearPct   *float64 `json:"chirp_linear_pct,omitempty"`
	ChirpRandomPct   *float64 `json:"chirp_random_pct,omitempty"`
	ChirpCouplingPct *float64 `json:"chirp_coupling_pct,omitempty"`
	ChirpSeed        *int64   `json:"chirp_seed,omitempty"`
}

// DispersionConfig mirrors cmt.Dispersion with the wavelength in nm.
type DispersionConfig struct {
	Wg1Neff     *float64 `json:"wg1_neff,omitempty"`
	Wg1Dneff    *float64 `json:"wg1_dneff,omitempty"` // 1/m
	Wg2Neff     *float64 `json:"wg2_neff,omitempty"`
	Wg2Dneff    *float64 `json:"wg2_dneff,omitempty"`
	CentralNm   *float64 `json:"central_wavelength_nm,omitempty"`
	LossDBPerCm *float64 `json:"loss_db_per_cm,omitempty"`
	Detuning    *float64 `json:"detuning,omitempty"`
}

// CouplingConfig mirrors cmt.Coupling, in 1/m.
type CouplingConfig struct {
	Contra *float64 `json:"contra,omitempty"`
	Self1  *float64 `json:"self1,omitempty"`
	Self2  *float64 `json:"self2,omitempty"`
}

// SimulationConfig mirrors cmt.Setup with wavelengths in nm.
type SimulationConfig struct {
	StartNm    *float64 `json:"start_nm,omitempty"`
	StopNm     *float64 `json:"stop_nm,omitempty"`
	Points     *int     `json:"points,omitempty"`
	DeviceTemp *float64 `json:"device_temp,omitempty"`
	ChipTemp   *float64 `json:"chip_temp,omitempty"`
	Chirp      *bool    `json:"chirp,omitempty"`
	Segments   *int     `json:"segments,omitempty"`
	Workers    *int     `json:"workers,omitempty"`
	Strict     *bool    `json:"strict,omitempty"`
	// CrossMode is "corrected" or "legacy".
	CrossMode *string  `json:"cross_mode,omitempty"`
	ModeA1    *float64 `json:"mode_a1,omitempty"`
	ModeA2    *float64 `json:"mode_a2,omitempty"`
	ModeB1    *float64 `json:"mode_b1,omitempty"`
	ModeB2    *float64 `json:"mode_b2,omitempty"`
	// Timeout bounds one simulation, e.g. "2m".
	Timeout *string `json:"timeout,omitempty"`
}

// LayoutConfig mirrors layout.Options.
type LayoutConfig struct {
	Kind             *string  `json:"kind,omitempty"`
	SBend            *bool    `json:"sbend,omitempty"`
	SBendRadius      *float64 `json:"sbend_r,omitempty"`
	SBendLength      *float64 `json:"sbend_length,omitempty"`
	PortWidth        *float64 `json:"port_w,omitempty"`
	Rib              *bool    `json:"rib,omitempty"`
	Metal            *bool    `json:"metal,omitempty"`
	HeaterWidth      *float64 `json:"heater_width,omitempty"`
	MetalWidth       *float64 `json:"metal_width,omitempty"`
	GratingPeriodEnd *float64 `json:"grating_period_end,omitempty"`
	DBU              *float64 `json:"dbu,omitempty"`
	LayerFile        *string  `json:"layer_file,omitempty"`
}

// ServerConfig configures cdc-server.
type ServerConfig struct {
	Listen *string `json:"listen,omitempty"`
	DBPath *string `json:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultSimConfig returns a config with every field set to the value the
// builders fall back to. It matches config/cdc.defaults.json.
func DefaultSimConfig() *SimConfig {
	spec := grating.DefaultSpec()
	disp := cmt.DefaultDispersion()
	coup := cmt.DefaultCoupling()
	setup := cmt.DefaultSetup()
	opts := layout.DefaultOptions()
	return &SimConfig{
		Grating: GratingConfig{
			NumberOfPeriods:   ptrInt(spec.NumberOfPeriods),
			GratingPeriod:     ptrFloat64(spec.GratingPeriod),
			Wg1Width:          ptrFloat64(spec.Wg1Width),
			Wg2Width:          ptrFloat64(spec.Wg2Width),
			Corrugation1Width: ptrFloat64(spec.Corrugation1Width),
			Corrugation2Width: ptrFloat64(spec.Corrugation2Width),
			Gap:               ptrFloat64(spec.Gap),
			ApodizationIndex:  ptrFloat64(spec.ApodizationIndex),
			AntiReflection:    ptrBool(spec.AntiReflection),
			Sinusoidal:        ptrBool(spec.Sinusoidal),
			Accuracy:          ptrBool(spec.Accuracy),
		},
		Dispersion: DispersionConfig{
			Wg1Neff:     ptrFloat64(disp.Wg1.Neff),
			Wg1Dneff:    ptrFloat64(disp.Wg1.Dneff),
			Wg2Neff:     ptrFloat64(disp.Wg2.Neff),
			Wg2Dneff:    ptrFloat64(disp.Wg2.Dneff),
			CentralNm:   ptrFloat64(1550),
			LossDBPerCm: ptrFloat64(disp.LossDBPerCm),
			Detuning:    ptrFloat64(disp.Detuning),
		},
		Coupling: CouplingConfig{
			Contra: ptrFloat64(coup.Contra),
			Self1:  ptrFloat64(coup.Self1),
			Self2:  ptrFloat64(coup.Self2),
		},
		Simulation: SimulationConfig{
			StartNm:    ptrFloat64(1500),
			StopNm:     ptrFloat64(1600),
			Points:     ptrInt(setup.Points),
			DeviceTemp: ptrFloat64(setup.DeviceTemp),
			ChipTemp:   ptrFloat64(setup.ChipTemp),
			Chirp:      ptrBool(false),
			Strict:     ptrBool(false),
			CrossMode:  ptrString("corrected"),
			Timeout:    ptrString("5m"),
		},
		Layout: LayoutConfig{
			Kind:             ptrString(layout.KindContraDC.String()),
			SBend:            ptrBool(opts.SBend),
			SBendRadius:      ptrFloat64(opts.SBendRadius),
			SBendLength:      ptrFloat64(opts.SBendLength),
			PortWidth:        ptrFloat64(opts.PortWidth),
			Rib:              ptrBool(opts.Rib),
			Metal:            ptrBool(opts.Metal),
			HeaterWidth:      ptrFloat64(opts.HeaterWidth),
			MetalWidth:       ptrFloat64(opts.MetalWidth),
			GratingPeriodEnd: ptrFloat64(opts.GratingPeriodEnd),
			DBU:              ptrFloat64(opts.DBU),
		},
		Server: ServerConfig{
			Listen: ptrString(":8080"),
			DBPath: ptrString("cdc.db"),
		},
	}
}

// EmptySimConfig returns a SimConfig with every field unset.
func EmptySimConfig() *SimConfig {
	return &SimConfig{}
}

// LoadSimConfig loads a SimConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSimConfig(path string) (*SimConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySimConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching from the current
// directory up to the repository root. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultConfig() *SimConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/cdc-sim/ and friends
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadSimConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate builds every record and runs its own validation, so a config
// that loads is one the solver and the layout generator accept.
func (c *SimConfig) Validate() error {
	var errs []error
	if err := c.Spec().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.DispersionModel().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.CouplingModel().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Setup().Validate(); err != nil {
		errs = append(errs, err)
	}
	if m := c.Simulation.CrossMode; m != nil {
		if _, err := parseCrossMode(*m); err != nil {
			errs = append(errs, err)
		}
	}
	if t := c.Simulation.Timeout; t != nil && *t != "" {
		if _, err := time.ParseDuration(*t); err != nil {
			errs = append(errs, fmt.Errorf("invalid timeout '%s': %w", *t, err))
		}
	}
	kind, err := c.CellKind()
	if err != nil {
		errs = append(errs, err)
	} else if err := c.LayoutOptions().Validate(kind); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Spec returns the grating record.
func (c *SimConfig) Spec() grating.Spec {
	g := c.Grating
	s := grating.DefaultSpec()
	setInt(&s.NumberOfPeriods, g.NumberOfPeriods)
	setFloat(&s.GratingPeriod, g.GratingPeriod)
	setFloat(&s.Wg1Width, g.Wg1Width)
	setFloat(&s.Wg2Width, g.Wg2Width)
	setFloat(&s.Corrugation1Width, g.Corrugation1Width)
	setFloat(&s.Corrugation2Width, g.Corrugation2Width)
	setFloat(&s.Gap, g.Gap)
	setFloat(&s.ApodizationIndex, g.ApodizationIndex)
	setBool(&s.AntiReflection, g.AntiReflection)
	setBool(&s.Sinusoidal, g.Sinusoidal)
	setBool(&s.Accuracy, g.Accuracy)
	setFloat(&s.Chirp.LinearPct, g.ChirpLinearPct)
	setFloat(&s.Chirp.RandomPct, g.ChirpRandomPct)
	setFloat(&s.Chirp.CouplingPct, g.ChirpCouplingPct)
	if g.ChirpSeed != nil {
		s.Chirp.Seed = *g.ChirpSeed
	}
	return s
}

// DispersionModel returns the waveguide dispersion.
func (c *SimConfig) DispersionModel() cmt.Dispersion {
	d := c.Dispersion
	out := cmt.DefaultDispersion()
	setFloat(&out.Wg1.Neff, d.Wg1Neff)
	setFloat(&out.Wg1.Dneff, d.Wg1Dneff)
	setFloat(&out.Wg2.Neff, d.Wg2Neff)
	setFloat(&out.Wg2.Dneff, d.Wg2Dneff)
	if d.CentralNm != nil {
		out.CentralWavelength = *d.CentralNm * 1e-9
	}
	setFloat(&out.LossDBPerCm, d.LossDBPerCm)
	setFloat(&out.Detuning, d.Detuning)
	return out
}

// CouplingModel returns the coupling coefficients.
func (c *SimConfig) CouplingModel() cmt.Coupling {
	out := cmt.DefaultCoupling()
	setFloat(&out.Contra, c.Coupling.Contra)
	setFloat(&out.Self1, c.Coupling.Self1)
	setFloat(&out.Self2, c.Coupling.Self2)
	return out
}

// Setup returns the simulation setup. Progress is left unset.
func (c *SimConfig) Setup() cmt.Setup {
	s := c.Simulation
	out := cmt.DefaultSetup()
	if s.StartNm != nil {
		out.Start = *s.StartNm * 1e-9
	}
	if s.StopNm != nil {
		out.Stop = *s.StopNm * 1e-9
	}
	setInt(&out.Points, s.Points)
	setFloat(&out.DeviceTemp, s.DeviceTemp)
	setFloat(&out.ChipTemp, s.ChipTemp)
	setBool(&out.Chirp, s.Chirp)
	setInt(&out.Segments, s.Segments)
	setInt(&out.Workers, s.Workers)
	setBool(&out.Strict, s.Strict)
	setFloat(&out.Modes.A1, s.ModeA1)
	setFloat(&out.Modes.A2, s.ModeA2)
	setFloat(&out.Modes.B1, s.ModeB1)
	setFloat(&out.Modes.B2, s.ModeB2)
	if s.CrossMode != nil {
		if m, err := parseCrossMode(*s.CrossMode); err == nil {
			out.CrossMode = m
		}
	}
	return out
}

func parseCrossMode(s string) (cmt.CrossMode, error) {
	switch s {
	case "", "corrected":
		return cmt.CrossModeCorrected, nil
	case "legacy":
		return cmt.CrossModeLegacy, nil
	}
	return 0, fmt.Errorf("cross_mode must be \"corrected\" or \"legacy\", got %q", s)
}

// GetTimeout returns the per-simulation timeout, or the default of five
// minutes.
func (c *SimConfig) GetTimeout() time.Duration {
	const def = 5 * time.Minute
	t := c.Simulation.Timeout
	if t == nil || *t == "" {
		return def
	}
	d, err := time.ParseDuration(*t)
	if err != nil {
		return def
	}
	return d
}

// Case returns the full simulation input.
func (c *SimConfig) Case() sweep.Case {
	return sweep.Case{
		Spec:       c.Spec(),
		Dispersion: c.DispersionModel(),
		Coupling:   c.CouplingModel(),
		Setup:      c.Setup(),
	}
}

// Clone returns a deep copy, so that decoding a request over it leaves c
// untouched.
func (c *SimConfig) Clone() *SimConfig {
	data, err := json.Marshal(c)
	if err != nil {
		// every field is a plain pointer to a JSON scalar
		panic(fmt.Sprintf("config: marshal: %v", err))
	}
	out := EmptySimConfig()
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("config: unmarshal: %v", err))
	}
	return out
}

// CellKind returns the configured layout generator.
func (c *SimConfig) CellKind() (layout.CellKind, error) {
	if c.Layout.Kind == nil {
		return layout.KindContraDC, nil
	}
	return layout.ParseCellKind(*c.Layout.Kind)
}

// LayoutOptions returns the placement options.
func (c *SimConfig) LayoutOptions() layout.Options {
	l := c.Layout
	out := layout.DefaultOptions()
	setBool(&out.SBend, l.SBend)
	setFloat(&out.SBendRadius, l.SBendRadius)
	setFloat(&out.SBendLength, l.SBendLength)
	setFloat(&out.PortWidth, l.PortWidth)
	setBool(&out.Rib, l.Rib)
	setBool(&out.Metal, l.Metal)
	setFloat(&out.HeaterWidth, l.HeaterWidth)
	setFloat(&out.MetalWidth, l.MetalWidth)
	setFloat(&out.GratingPeriodEnd, l.GratingPeriodEnd)
	setFloat(&out.DBU, l.DBU)
	return out
}

// GetDBU returns the layout database unit in micrometres.
func (c *SimConfig) GetDBU() float64 {
	if c.Layout.DBU == nil || *c.Layout.DBU <= 0 {
		return units.DefaultDBU
	}
	return *c.Layout.DBU
}

// GetLayerFile returns the .lyp path, empty for the built-in EBeam map.
func (c *SimConfig) GetLayerFile() string {
	if c.Layout.LayerFile == nil {
		return ""
	}
	return *c.Layout.LayerFile
}

// GetListen returns the server listen address.
func (c *SimConfig) GetListen() string {
	if c.Server.Listen == nil || *c.Server.Listen == "" {
		return ":8080"
	}
	return *c.Server.Listen
}

// GetDBPath returns the SQLite database path.
func (c *SimConfig) GetDBPath() string {
	if c.Server.DBPath == nil || *c.Server.DBPath == "" {
		return "cdc.db"
	}
	return *c.Server.DBPath
}
