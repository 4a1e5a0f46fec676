package units

import (
	"math"
	"testing"
)

func TestDBPerCmToNeperPerMetre(t *testing.T) {
	tests := []struct {
		name     string
		dbPerCm  float64
		expected float64
	}{
		{"lossless", 0, 0},
		{"1 dB/cm", 1, 23.02585},
		{"3 dB/cm", 3, 69.07755},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DBPerCmToNeperPerMetre(tt.dbPerCm)
			if math.Abs(got-tt.expected) > 1e-4 {
				t.Errorf("DBPerCmToNeperPerMetre(%v) = %v, want %v", tt.dbPerCm, got, tt.expected)
			}
		})
	}
}

func TestToDBU(t *testing.T) {
	tests := []struct {
		name     string
		um       float64
		dbu      float64
		expected int64
	}{
		{"period", 0.317, DefaultDBU, 317},
		{"half nm rounds away", 0.0005, DefaultDBU, 1},
		{"negative", -0.225, DefaultDBU, -225},
		{"coarse grid", 1.26, 0.005, 252},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToDBU(tt.um, tt.dbu); got != tt.expected {
				t.Errorf("ToDBU(%v, %v) = %d, want %d", tt.um, tt.dbu, got, tt.expected)
			}
		})
	}
}

func TestMicronRoundTrip(t *testing.T) {
	if got := ToMicron(Micron(1.55)); math.Abs(got-1.55) > 1e-12 {
		t.Errorf("round trip = %v", got)
	}
	if got := FromDBU(ToDBU(0.45, DefaultDBU), DefaultDBU); math.Abs(got-0.45) > 1e-12 {
		t.Errorf("dbu round trip = %v", got)
	}
}

func TestAngularFrequency(t *testing.T) {
	got := AngularFrequency(1.55e-6)
	want := 1.2153e15
	if math.Abs(got-want)/want > 1e-3 {
		t.Errorf("AngularFrequency(1.55um) = %g, want ~%g", got, want)
	}
}

func TestPowerDB(t *testing.T) {
	if got := PowerDB(0.5); math.Abs(got+3.0103) > 1e-4 {
		t.Errorf("PowerDB(0.5) = %v", got)
	}
	if !math.IsInf(PowerDB(0), -1) {
		t.Error("PowerDB(0) should be -Inf")
	}
}
