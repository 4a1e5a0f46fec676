package cmt

import (
	"math"
	"math/cmplx"
)

// Padé coefficients b_k of the [m/m] approximant to exp, m ∈ {3,5,7,9,13}.
var (
	pade3  = []float64{120, 60, 12, 1}
	pade5  = []float64{30240, 15120, 3360, 420, 30, 1}
	pade7  = []float64{17297280, 8648640, 1995840, 277200, 25200, 1512, 56, 1}
	pade9  = []float64{17643225600, 8821612800, 2075673600, 302702400, 30270240, 2162160, 110880, 3960, 90, 1}
	pade13 = []float64{
		64764752532480000, 32382376266240000, 7771770303897600, 1187353796428800,
		129060195264000, 10559470521600, 670442572800, 33522128640,
		1323241920, 40840800, 960960, 16380, 182, 1,
	}
)

// Largest 1-norm for which each approximant meets double precision
// without scaling (Higham 2005).
const (
	theta3  = 1.495585217958292e-2
	theta5  = 2.539398330063230e-1
	theta7  = 9.504178996162932e-1
	theta9  = 2.097847961257068e0
	theta13 = 5.371920351148152e0
)

// Expm returns the matrix exponential of a by scaling and squaring with a
// Padé approximant whose degree is picked from the 1-norm of a. A singular
// Padé denominator yields a NaN matrix.
func Expm(a Matrix4) Matrix4 {
	norm := a.Norm1()
	switch {
	case norm <= theta3:
		return padeLow(a, pade3)
	case norm <= theta5:
		return padeLow(a, pade5)
	case norm <= theta7:
		return padeLow(a, pade7)
	case norm <= theta9:
		return padeLow(a, pade9)
	}

	s := 0
	if norm > theta13 {
		s = int(math.Ceil(math.Log2(norm / theta13)))
	}
	scaled := a.Scale(complex(math.Ldexp(1, -s), 0))
	r := padeHigh(scaled)
	for ; s > 0; s-- {
		r = r.Mul(&r)
	}
	return r
}

// ExpDiag returns exp(diag(d)) in closed form.
func ExpDiag(d [4]complex128) Matrix4 {
	var m Matrix4
	for i, v := range d {
		m[i][i] = cmplx.Exp(v)
	}
	return m
}

func padeLow(a Matrix4, b []float64) Matrix4 {
	id := Identity4()
	a2 := a.Mul(&a)

	var u, v Matrix4
	pow := id
	for k := 0; 2*k+1 < len(b); k++ {
		odd := pow.Scale(complex(b[2*k+1], 0))
		even := pow.Scale(complex(b[2*k], 0))
		u = u.Add(&odd)
		v = v.Add(&even)
		pow = pow.Mul(&a2)
	}
	u = a.Mul(&u)
	return padeSolve(u, v)
}

func padeHigh(a Matrix4) Matrix4 {
	b := pade13
	id := Identity4()
	a2 := a.Mul(&a)
	a4 := a2.Mul(&a2)
	a6 := a4.Mul(&a2)

	lin := func(c6, c4, c2, c0 float64) Matrix4 {
		var out Matrix4
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				out[i][j] = complex(c6, 0)*a6[i][j] + complex(c4, 0)*a4[i][j] + complex(c2, 0)*a2[i][j] + complex(c0, 0)*id[i][j]
			}
		}
		return out
	}

	uHi := lin(b[13], b[11], b[9], 0)
	uHi = a6.Mul(&uHi)
	uLo := lin(b[7], b[5], b[3], b[1])
	u := uHi.Add(&uLo)
	u = a.Mul(&u)

	vHi := lin(b[12], b[10], b[8], 0)
	vHi = a6.Mul(&vHi)
	vLo := lin(b[6], b[4], b[2], b[0])
	v := vHi.Add(&vLo)

	return padeSolve(u, v)
}

// padeSolve returns (V-U)⁻¹(V+U).
func padeSolve(u, v Matrix4) Matrix4 {
	negU := u.Scale(-1)
	num := v.Add(&u)
	den := v.Add(&negU)
	x, ok := solve(den, num)
	if !ok {
		nan := complex(math.NaN(), math.NaN())
		var bad Matrix4
		for i := range bad {
			for j := range bad[i] {
				bad[i][j] = nan
			}
		}
		return bad
	}
	return x
}
