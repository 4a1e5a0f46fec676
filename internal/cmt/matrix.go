package cmt

import (
	"math"
	"math/cmplx"
)

// Matrix4 is a dense 4×4 complex matrix indexed [row][col].
//
// Ports are ordered forward waveguide 1, forward waveguide 2, backward
// waveguide 1, backward waveguide 2.
type Matrix4 [4][4]complex128

// Identity4 returns the identity.
func Identity4() Matrix4 {
	var m Matrix4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// Mul returns m·b.
func (m *Matrix4) Mul(b *Matrix4) Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[i][0]*b[0][j] + m[i][1]*b[1][j] + m[i][2]*b[2][j] + m[i][3]*b[3][j]
		}
	}
	return out
}

// Add returns m+b.
func (m *Matrix4) Add(b *Matrix4) Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[i][j] + b[i][j]
		}
	}
	return out
}

// Scale returns s·m.
func (m *Matrix4) Scale(s complex128) Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = s * m[i][j]
		}
	}
	return out
}

// ConjTranspose returns mᴴ.
func (m *Matrix4) ConjTranspose() Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[j][i] = cmplx.Conj(m[i][j])
		}
	}
	return out
}

// Norm1 is the maximum absolute column sum.
func (m *Matrix4) Norm1() float64 {
	var best float64
	for j := 0; j < 4; j++ {
		var sum float64
		for i := 0; i < 4; i++ {
			sum += cmplx.Abs(m[i][j])
		}
		best = math.Max(best, sum)
	}
	return best
}

// MaxAbs is the largest entry modulus.
func (m *Matrix4) MaxAbs() float64 {
	var best float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			best = math.Max(best, cmplx.Abs(m[i][j]))
		}
	}
	return best
}

// IsFinite reports whether no entry is NaN or infinite.
func (m *Matrix4) IsFinite() bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if cmplx.IsNaN(m[i][j]) || cmplx.IsInf(m[i][j]) {
				return false
			}
		}
	}
	return true
}

// SwapRows exchanges rows i and j in place.
func (m *Matrix4) SwapRows(i, j int) {
	m[i], m[j] = m[j], m[i]
}

// SwapCols exchanges columns i and j in place.
func (m *Matrix4) SwapCols(i, j int) {
	for r := 0; r < 4; r++ {
		m[r][i], m[r][j] = m[r][j], m[r][i]
	}
}

// permuteRows returns the matrix whose row k is row order[k] of m.
func (m *Matrix4) permuteRows(order [4]int) Matrix4 {
	var out Matrix4
	for k, r := range order {
		out[k] = m[r]
	}
	return out
}

// solve returns X with a·X = b by LU decomposition with partial pivoting.
// ok is false when a pivot vanishes.
func solve(a, b Matrix4) (x Matrix4, ok bool) {
	for col := 0; col < 4; col++ {
		piv := col
		best := cmplx.Abs(a[col][col])
		for r := col + 1; r < 4; r++ {
			if v := cmplx.Abs(a[r][col]); v > best {
				piv, best = r, v
			}
		}
		if best == 0 {
			return Matrix4{}, false
		}
		a.SwapRows(col, piv)
		b.SwapRows(col, piv)

		for r := col + 1; r < 4; r++ {
			f := a[r][col] / a[col][col]
			if f == 0 {
				continue
			}
			for c := col; c < 4; c++ {
				a[r][c] -= f * a[col][c]
			}
			for c := 0; c < 4; c++ {
				b[r][c] -= f * b[col][c]
			}
		}
	}

	for c := 0; c < 4; c++ {
		for r := 3; r >= 0; r-- {
			sum := b[r][c]
			for k := r + 1; k < 4; k++ {
				sum -= a[r][k] * x[k][c]
			}
			x[r][c] = sum / a[r][r]
		}
	}
	return x, true
}

// block2 is a 2×2 complex block of a Matrix4.
type block2 [2][2]complex128

func (m *Matrix4) block(r0, c0 int) block2 {
	return block2{
		{m[r0][c0], m[r0][c0+1]},
		{m[r0+1][c0], m[r0+1][c0+1]},
	}
}

func (m *Matrix4) setBlock(r0, c0 int, b block2) {
	m[r0][c0], m[r0][c0+1] = b[0][0], b[0][1]
	m[r0+1][c0], m[r0+1][c0+1] = b[1][0], b[1][1]
}

func (a block2) mul(b block2) block2 {
	return block2{
		{a[0][0]*b[0][0] + a[0][1]*b[1][0], a[0][0]*b[0][1] + a[0][1]*b[1][1]},
		{a[1][0]*b[0][0] + a[1][1]*b[1][0], a[1][0]*b[0][1] + a[1][1]*b[1][1]},
	}
}

func (a block2) sub(b block2) block2 {
	return block2{
		{a[0][0] - b[0][0], a[0][1] - b[0][1]},
		{a[1][0] - b[1][0], a[1][1] - b[1][1]},
	}
}

func (a block2) neg() block2 {
	return block2{{-a[0][0], -a[0][1]}, {-a[1][0], -a[1][1]}}
}

// inverse returns a⁻¹. ok is false when |det| is below tol·‖a‖²,
// with ‖a‖ the largest entry modulus.
func (a block2) inverse(tol float64) (block2, bool) {
	det := a[0][0]*a[1][1] - a[0][1]*a[1][0]
	scale := math.Max(math.Max(cmplx.Abs(a[0][0]), cmplx.Abs(a[0][1])),
		math.Max(cmplx.Abs(a[1][0]), cmplx.Abs(a[1][1])))
	if scale == 0 || cmplx.Abs(det) <= tol*scale*scale || cmplx.IsNaN(det) {
		return block2{}, false
	}
	return block2{
		{a[1][1] / det, -a[0][1] / det},
		{-a[1][0] / det, a[0][0] / det},
	}, true
}
