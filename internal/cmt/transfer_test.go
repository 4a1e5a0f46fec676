package cmt

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siepic/ebeam-cdc/internal/grating"
)

func mulVec(m Matrix4, v [4]complex128) [4]complex128 {
	var out [4]complex128
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i] += m[i][j] * v[j]
		}
	}
	return out
}

func vecDiff(a, b [4]complex128) float64 {
	var d float64
	for i := range a {
		if v := cmplx.Abs(a[i] - b[i]); v > d {
			d = v
		}
	}
	return d
}

// randomState returns v(0) and v(L) = P·v(0).
func randomState(rng *rand.Rand, p Matrix4) (v0, vL [4]complex128) {
	for i := range v0 {
		v0[i] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
	}
	return v0, mulVec(p, v0)
}

func TestSwitchTop_Identity(t *testing.T) {
	h, err := SwitchTop(Identity4())
	require.NoError(t, err)
	assert.Equal(t, Identity4(), h)
}

func TestSwitchTop_MapsInputsToOutputs(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 10; trial++ {
		p := randomMatrix(rng, 1)
		h, err := SwitchTop(p)
		require.NoError(t, err)

		v0, vL := randomState(rng, p)
		in := [4]complex128{v0[0], v0[1], vL[2], vL[3]}
		want := [4]complex128{vL[0], vL[1], v0[2], v0[3]}
		assert.Less(t, vecDiff(mulVec(h, in), want), 1e-9)
	}
}

func TestSwitchTop_Singular(t *testing.T) {
	p := Identity4()
	p[2][2], p[3][3] = 0, 0
	_, err := SwitchTop(p)
	assert.True(t, errors.Is(err, ErrSingularBlock))
}

func TestTopDown_MapsWaveguideOneToTwo(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for trial := 0; trial < 10; trial++ {
		p := randomMatrix(rng, 1)
		td, err := TopDown(p)
		require.NoError(t, err)

		v0, vL := randomState(rng, p)
		in := [4]complex128{v0[0], vL[0], v0[2], vL[2]}
		want := [4]complex128{v0[3], vL[3], v0[1], vL[1]}
		assert.Less(t, vecDiff(mulVec(td, in), want), 1e-9)
	}
}

func TestTopDown_UncoupledIsSingular(t *testing.T) {
	_, err := TopDown(Identity4())
	assert.True(t, errors.Is(err, ErrSingularBlock))
}

func TestExtract(t *testing.T) {
	var h Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			h[i][j] = complex(float64(i+1), float64(j+1))
		}
	}

	t.Run("default ratios", func(t *testing.T) {
		thru, drop := Extract(&h, DefaultModeRatios(), CrossModeCorrected)
		assert.Equal(t, h[0][0], thru)
		assert.Equal(t, h[3][0], drop)
	})

	mix := ModeRatios{A1: 0.8, A2: 0.6, B1: 0.3, B2: 0.95}
	a1, a2 := complex(mix.A1, 0), complex(mix.A2, 0)
	b1, b2 := complex(mix.B1, 0), complex(mix.B2, 0)
	t0 := h[0][0]*a1 + h[0][1]*a2
	r := h[3][0]*a1 + h[3][1]*a2
	rco := h[2][0]*a1 + h[2][1]*a2
	wantDrop := b1*rco + b2*r

	t.Run("corrected cross mode", func(t *testing.T) {
		thru, drop := Extract(&h, mix, CrossModeCorrected)
		tco := h[1][0]*a1 + h[1][1]*a2
		assert.InDelta(t, 0, cmplx.Abs(thru-(a1*t0+a2*tco)), 1e-12)
		assert.InDelta(t, 0, cmplx.Abs(drop-wantDrop), 1e-12)
	})

	t.Run("legacy cross mode", func(t *testing.T) {
		thru, drop := Extract(&h, mix, CrossModeLegacy)
		tco := h[1][0]*a1 + h[1][0]*a2
		assert.InDelta(t, 0, cmplx.Abs(thru-(a1*t0+a2*tco)), 1e-12)
		assert.InDelta(t, 0, cmplx.Abs(drop-wantDrop), 1e-12)

		corrected, _ := Extract(&h, mix, CrossModeCorrected)
		assert.NotEqual(t, corrected, thru)
	})
}

func TestNewModel_EnvelopeShapesContraOnly(t *testing.T) {
	spec := baselineSpec()
	spec.AntiReflection = false
	sched, err := grating.NewSchedule(spec, 50)
	require.NoError(t, err)

	coup := Coupling{Contra: 30000, Self1: 8000, Self2: 6000}
	m := newModel(sched, DefaultDispersion(), coup, 0)
	require.Len(t, m.segs, 50)

	var tapered bool
	for i, s := range m.segs {
		p := sched.Segments[i].Profile
		if p < 0.5 {
			tapered = true
		}
		assert.Equal(t, complex(coup.Contra*p, 0), s.k12, "segment %d", i)
		assert.Equal(t, complex(coup.Self1, 0), s.k11, "segment %d", i)
		assert.Equal(t, complex(coup.Self2, 0), s.k22, "segment %d", i)
	}
	assert.True(t, tapered, "apodized schedule should taper towards the ends")
}

func TestTransfer_SingleSegment(t *testing.T) {
	seg := segment{z0: 12e-6, ell: 2e-6, chirp: 1, k12: 30000, k11: 8000, k22: 5000}
	m := &model{
		segs:     []segment{seg},
		period:   0.317e-6,
		disp:     DefaultDispersion(),
		segCount: 1,
	}

	const lambda = 1548e-9
	p, n, err := m.transfer(lambda)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	k0 := 2 * math.Pi / lambda
	d, s2 := operators(seg, k0*m.disp.Neff(1, lambda, 0), k0*m.disp.Neff(2, lambda, 0), m.period, 0)
	e1, e2 := ExpDiag(d), expmReference(s2)
	assert.Less(t, maxDiff(p, e1.Mul(&e2)), 1e-12)
}
