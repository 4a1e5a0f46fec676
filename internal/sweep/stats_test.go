package sweep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStddev(t *testing.T) {
	tests := []struct {
		name       string
		xs         []float64
		wantMean   float64
		wantStddev float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{3}, 3, 0},
		{"pair", []float64{1, 3}, 2, math.Sqrt2},
		{"nan ignored", []float64{1, math.NaN(), 3}, 2, math.Sqrt2},
		{"inf ignored", []float64{math.Inf(1), 5}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, sd := MeanStddev(tt.xs)
			assert.InDelta(t, tt.wantMean, mean, 1e-12)
			assert.InDelta(t, tt.wantStddev, sd, 1e-12)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, math.NaN(), 1, 7})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 7.0, s.Max)
	assert.InDelta(t, 4, s.Mean, 1e-12)
	assert.InDelta(t, 3, s.Stddev, 1e-12)

	assert.Equal(t, Stat{}, Summarize([]float64{math.NaN()}))
}
