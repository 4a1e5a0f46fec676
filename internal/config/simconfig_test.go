package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/layout"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptySimConfig_FallsBackToDefaults(t *testing.T) {
	cfg := EmptySimConfig()

	if got, want := cfg.Spec(), grating.DefaultSpec(); got != want {
		t.Errorf("Spec() = %+v, want %+v", got, want)
	}
	if got, want := cfg.DispersionModel(), cmt.DefaultDispersion(); got != want {
		t.Errorf("DispersionModel() = %+v, want %+v", got, want)
	}
	if got, want := cfg.CouplingModel(), cmt.DefaultCoupling(); got != want {
		t.Errorf("CouplingModel() = %+v, want %+v", got, want)
	}
	if got, want := cfg.LayoutOptions(), layout.DefaultOptions(); got != want {
		t.Errorf("LayoutOptions() = %+v, want %+v", got, want)
	}
	s := cfg.Setup()
	if s.Points != 1001 || s.Start != 1500e-9 || s.Stop != 1600e-9 {
		t.Errorf("Setup() grid = %g..%g x%d", s.Start, s.Stop, s.Points)
	}
	if cfg.GetTimeout() != 5*time.Minute {
		t.Errorf("GetTimeout() = %v, want 5m", cfg.GetTimeout())
	}
	if cfg.GetListen() != ":8080" || cfg.GetDBPath() != "cdc.db" {
		t.Errorf("server defaults = %q %q", cfg.GetListen(), cfg.GetDBPath())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestDefaultConfigFileMatchesDefaults(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	def := DefaultSimConfig()

	if got, want := cfg.Spec(), def.Spec(); got != want {
		t.Errorf("Spec() = %+v, want %+v", got, want)
	}
	if got, want := cfg.LayoutOptions(), def.LayoutOptions(); got != want {
		t.Errorf("LayoutOptions() = %+v, want %+v", got, want)
	}
	if got, want := cfg.CouplingModel(), def.CouplingModel(); got != want {
		t.Errorf("CouplingModel() = %+v, want %+v", got, want)
	}
	if got, want := cfg.DispersionModel(), def.DispersionModel(); got != want {
		t.Errorf("DispersionModel() = %+v, want %+v", got, want)
	}
	if got, want := cfg.Setup().Points, def.Setup().Points; got != want {
		t.Errorf("Setup().Points = %d, want %d", got, want)
	}
	if cfg.GetTimeout() != def.GetTimeout() {
		t.Errorf("GetTimeout() = %v, want %v", cfg.GetTimeout(), def.GetTimeout())
	}
}

func TestLoadSimConfig(t *testing.T) {
	path := writeConfig(t, "test_config.json", `{
  "grating": {"number_of_periods": 500, "anti_reflection": false, "chirp_linear_pct": 0.2, "chirp_seed": 9},
  "dispersion": {"central_wavelength_nm": 1310, "loss_db_per_cm": 2},
  "simulation": {"start_nm": 1540, "stop_nm": 1560, "points": 201, "cross_mode": "legacy", "timeout": "30s", "workers": 4},
  "layout": {"sbend": false, "kind": "chirped", "grating_period_end": 0.33}
}`)

	cfg, err := LoadSimConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	spec := cfg.Spec()
	if spec.NumberOfPeriods != 500 || spec.AntiReflection {
		t.Errorf("Spec() = %+v", spec)
	}
	if spec.Chirp.LinearPct != 0.2 || spec.Chirp.Seed != 9 {
		t.Errorf("Spec().Chirp = %+v", spec.Chirp)
	}
	if spec.GratingPeriod != 0.317 {
		t.Errorf("unset grating_period should keep the default, got %g", spec.GratingPeriod)
	}

	disp := cfg.DispersionModel()
	if disp.LossDBPerCm != 2 {
		t.Errorf("LossDBPerCm = %g, want 2", disp.LossDBPerCm)
	}
	if d := disp.CentralWavelength - 1310e-9; d > 1e-20 || d < -1e-20 {
		t.Errorf("CentralWavelength = %g, want 1310e-9", disp.CentralWavelength)
	}

	setup := cfg.Setup()
	if setup.Points != 201 || setup.Workers != 4 || setup.CrossMode != cmt.CrossModeLegacy {
		t.Errorf("Setup() = %+v", setup)
	}
	if cfg.GetTimeout() != 30*time.Second {
		t.Errorf("GetTimeout() = %v, want 30s", cfg.GetTimeout())
	}

	kind, err := cfg.CellKind()
	if err != nil || kind != layout.KindContraDCChirped {
		t.Errorf("CellKind() = %v, %v", kind, err)
	}
	opts := cfg.LayoutOptions()
	if opts.SBend || opts.GratingPeriodEnd != 0.33 || opts.PortWidth != 0.5 {
		t.Errorf("LayoutOptions() = %+v", opts)
	}
}

func TestLoadSimConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "config.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"grating": `, "failed to parse"},
		{"bad geometry", "geom.json", `{"grating": {"gap": -1}}`, "invalid geometry"},
		{"bad grid", "grid.json", `{"simulation": {"points": 0}}`, "invalid configuration"},
		{"bad cross mode", "cross.json", `{"simulation": {"cross_mode": "sideways"}}`, "cross_mode"},
		{"bad timeout", "timeout.json", `{"simulation": {"timeout": "soon"}}`, "invalid timeout"},
		{"bad kind", "kind.json", `{"layout": {"kind": "ring"}}`, "unknown cell kind"},
		{"bad port", "port.json", `{"layout": {"port_w": 0}}`, "port_w"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadSimConfig(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSimConfig_Missing(t *testing.T) {
	if _, err := LoadSimConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadSimConfig_TooLarge(t *testing.T) {
	body := `{"grating": {}, "pad": "` + strings.Repeat("x", 1024*1024) + `"}`
	path := writeConfig(t, "large.json", body)
	_, err := LoadSimConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	base := DefaultSimConfig()
	clone := base.Clone()
	*clone.Grating.NumberOfPeriods = 7

	if got := *base.Grating.NumberOfPeriods; got == 7 {
		t.Errorf("modifying the clone changed the base: %d", got)
	}
	if clone.Spec().NumberOfPeriods != 7 {
		t.Errorf("clone Spec().NumberOfPeriods = %d, want 7", clone.Spec().NumberOfPeriods)
	}
}

func TestCase(t *testing.T) {
	cfg := DefaultSimConfig()
	c := cfg.Case()
	if c.Spec != cfg.Spec() {
		t.Errorf("Case().Spec = %+v, want %+v", c.Spec, cfg.Spec())
	}
	if c.Dispersion != cfg.DispersionModel() {
		t.Errorf("Case().Dispersion = %+v", c.Dispersion)
	}
	if c.Setup.Points != cfg.Setup().Points {
		t.Errorf("Case().Setup.Points = %d", c.Setup.Points)
	}
}
