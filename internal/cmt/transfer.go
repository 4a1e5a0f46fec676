package cmt

import (
	"math"
	"math/cmplx"

	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/units"
)

// MaxExponent bounds |entry| of S1·ℓ and S2·ℓ. exp overflows float64 just
// above 709.
const MaxExponent = 700.0

// SingularTolerance is the relative determinant threshold for inverting
// the backward-backward block of P.
const SingularTolerance = 1e-12

// segment holds the per-segment quantities of a schedule in SI units.
type segment struct {
	z0, ell, chirp float64
	k12, k11, k22  complex128
}

// model is a schedule and its coefficients prepared for sweeping λ. It is
// read-only once built and shared by all workers.
type model struct {
	segs     []segment
	period   float64 // nominal Λ, m
	disp     Dispersion
	alphaE   float64
	deltaT   float64
	segCount int
}

func newModel(sched *grating.SegmentSchedule, disp Dispersion, coup Coupling, deltaT float64) *model {
	m := &model{
		segs:     make([]segment, len(sched.Segments)),
		period:   units.Micron(sched.NominalPeriod),
		disp:     disp,
		alphaE:   units.DBPerCmToNeperPerMetre(disp.LossDBPerCm),
		deltaT:   deltaT,
		segCount: len(sched.Segments),
	}
	// The apodization envelope shapes the contra coupling only. The
	// self-Bragg strength of each waveguide stays uniform along the device.
	for i, s := range sched.Segments {
		m.segs[i] = segment{
			z0:    units.Micron(s.Z0),
			ell:   units.Micron(s.Length),
			chirp: s.Chirp,
			k12:   complex(coup.Contra*s.Profile, 0),
			k11:   complex(coup.Self1, 0),
			k22:   complex(coup.Self2, 0),
		}
	}
	return m
}

// operators returns S1·ℓ (as its diagonal) and S2·ℓ of one segment at the
// propagation constants beta1, beta2.
func operators(s segment, beta1, beta2, period, alphaE float64) (d [4]complex128, s2 Matrix4) {
	j := complex(0, 1)
	bt1 := complex(beta1*s.chirp-math.Pi/period, -alphaE/2)
	bt2 := complex(beta2*s.chirp-math.Pi/period, -alphaE/2)
	ell := complex(s.ell, 0)
	z0 := complex(s.z0, 0)

	d = [4]complex128{j * bt1 * ell, j * bt2 * ell, -j * bt1 * ell, -j * bt2 * ell}

	e11 := cmplx.Exp(j * 2 * bt1 * z0)
	e22 := cmplx.Exp(j * 2 * bt2 * z0)
	e12 := cmplx.Exp(j * (bt1 + bt2) * z0)
	c11, c22, c12 := cmplx.Conj(s.k11), cmplx.Conj(s.k22), cmplx.Conj(s.k12)

	s2 = Matrix4{
		{-j * bt1, 0, -j * s.k11 * e11, -j * s.k12 * e12},
		{0, -j * bt2, -j * s.k12 * e12, -j * s.k22 * e22},
		{j * c11 / e11, j * c12 / e12, j * bt1, 0},
		{j * c12 / e12, j * c22 / e22, 0, j * bt2},
	}
	s2 = s2.Scale(ell)
	return d, s2
}

// transfer accumulates P(λ). On failure it returns the offending segment.
func (m *model) transfer(lambda float64) (Matrix4, int, error) {
	k0 := 2 * math.Pi / lambda
	beta1 := k0 * m.disp.Neff(1, lambda, m.deltaT)
	beta2 := k0 * m.disp.Neff(2, lambda, m.deltaT)

	p := Identity4()
	for n, s := range m.segs {
		d, s2 := operators(s, beta1, beta2, m.period, m.alphaE)
		for _, v := range d {
			if cmplx.Abs(v) > MaxExponent {
				return Matrix4{}, n, ErrNumericOverflow
			}
		}
		if s2.MaxAbs() > MaxExponent {
			return Matrix4{}, n, ErrNumericOverflow
		}

		e1, e2 := ExpDiag(d), Expm(s2)
		seg := e1.Mul(&e2)
		p = seg.Mul(&p)
	}
	if !p.IsFinite() {
		return Matrix4{}, m.segCount - 1, ErrNumericOverflow
	}
	return p, -1, nil
}

// SwitchTop converts the left-to-right transfer matrix P into the in-out
// scattering form
//
//	H = [[P_FF - P_FG·P_GG⁻¹·P_GF, P_FG·P_GG⁻¹], [-P_GG⁻¹·P_GF, P_GG⁻¹]]
//
// with F the forward and G the backward 2×2 partitions. H maps
// (A1(0), A2(0), B1(L), B2(L)) to (A1(L), A2(L), B1(0), B2(0)).
func SwitchTop(p Matrix4) (Matrix4, error) {
	ff := p.block(0, 0)
	fg := p.block(0, 2)
	gf := p.block(2, 0)
	gg := p.block(2, 2)

	inv, ok := gg.inverse(SingularTolerance)
	if !ok {
		return Matrix4{}, ErrSingularBlock
	}
	fgInv := fg.mul(inv)

	var h Matrix4
	h.setBlock(0, 0, ff.sub(fgInv.mul(gf)))
	h.setBlock(0, 2, fgInv)
	h.setBlock(2, 0, inv.mul(gf).neg())
	h.setBlock(2, 2, inv)
	return h, nil
}

// TopDown returns the form that maps the fields of waveguide 1 onto those
// of waveguide 2:
//
//	(A1(0), A1(L), B1(0), B1(L)) -> (B2(0), B2(L), A2(0), A2(L))
//
// It is built from P by reordering rows (3,1,2,0), swapping columns 1 and 2,
// applying SwitchTop, reordering rows (3,0,2,1), then swapping columns 2,3
// and 1,2. Uncoupled waveguides have no such map and give ErrSingularBlock.
func TopDown(p Matrix4) (Matrix4, error) {
	p2 := p.permuteRows([4]int{3, 1, 2, 0})
	p2.SwapCols(1, 2)
	p3, err := SwitchTop(p2)
	if err != nil {
		return Matrix4{}, err
	}
	p3 = p3.permuteRows([4]int{3, 0, 2, 1})
	p3.SwapCols(2, 3)
	p3.SwapCols(1, 2)
	return p3, nil
}

// Extract reads the through and drop fields from H.
func Extract(h *Matrix4, r ModeRatios, cm CrossMode) (through, drop complex128) {
	a1, a2 := complex(r.A1, 0), complex(r.A2, 0)
	t := h[0][0]*a1 + h[0][1]*a2
	rr := h[3][0]*a1 + h[3][1]*a2
	tco := h[1][0]*a1 + h[1][1]*a2
	if cm == CrossModeLegacy {
		tco = h[1][0]*a1 + h[1][0]*a2
	}
	rco := h[2][0]*a1 + h[2][1]*a2

	through = a1*t + a2*tco
	drop = complex(r.B1, 0)*rco + complex(r.B2, 0)*rr
	return through, drop
}
