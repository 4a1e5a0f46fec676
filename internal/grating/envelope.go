package grating

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Envelope samples the raw Gaussian apodization
//
//	exp(-0.5·(2·a·(x - N/2)/N)²),  x = n·N/segments
//
// at segments positions along a grating of periods periods. When segments
// equals periods, x is the period index. A zero index gives a flat envelope.
func Envelope(a float64, periods, segments int) []float64 {
	out := make([]float64, segments)
	if a == 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	N := float64(periods)
	for n := range out {
		x := float64(n) * N / float64(segments)
		u := 2 * a * (x - N/2) / N
		out[n] = math.Exp(-0.5 * u * u)
	}
	return out
}

// NormalizedEnvelope is Envelope rescaled to span [0, 1]. It drives the
// solver's coupling coefficients.
func NormalizedEnvelope(a float64, periods, segments int) []float64 {
	out := Envelope(a, periods, segments)
	if a == 0 || len(out) == 0 {
		return out
	}
	lo, hi := floats.Min(out), floats.Max(out)
	span := hi - lo
	if span <= 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, v := range out {
		out[i] = (v - lo) / span
	}
	return out
}

// ChirpMultipliers returns chirpDev(n) for every entry of profile:
//
//	1 + (profile·kc - kc)/100 + linspace(-1, 1)·kl/100 + U[0,1)·kr/100
//
// The random draws are taken in segment order from a source seeded with
// c.Seed, one per segment, whether or not RandomPct is zero.
func ChirpMultipliers(c ChirpPolicy, profile []float64) []float64 {
	n := len(profile)
	out := make([]float64, n)
	if c.IsZero() {
		for i := range out {
			out[i] = 1
		}
		return out
	}

	linear := make([]float64, n)
	if n > 1 {
		floats.Span(linear, -1, 1)
	}
	rng := rand.New(rand.NewSource(c.Seed))
	for i := range out {
		coupling := (profile[i]*c.CouplingPct - c.CouplingPct) / 100
		lin := linear[i] * c.LinearPct / 100
		random := rng.Float64() * c.RandomPct / 100
		out[i] = 1 + coupling + lin + random
	}
	return out
}
