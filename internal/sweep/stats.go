package sweep

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MeanStddev returns the mean and sample standard deviation of xs,
// ignoring NaN entries. Returns (0, 0) for no finite values.
func MeanStddev(xs []float64) (mean, stddev float64) {
	clean := finiteValues(xs)
	switch len(clean) {
	case 0:
		return 0, 0
	case 1:
		return clean[0], 0
	}
	return stat.MeanStdDev(clean, nil)
}

func finiteValues(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Stat summarizes one metric across the combinations of a sweep.
type Stat struct {
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// Summarize computes a Stat over the finite values of xs.
func Summarize(xs []float64) Stat {
	clean := finiteValues(xs)
	if len(clean) == 0 {
		return Stat{}
	}
	s := Stat{Count: len(clean), Min: floats.Min(clean), Max: floats.Max(clean)}
	s.Mean, s.Stddev = MeanStddev(clean)
	return s
}
