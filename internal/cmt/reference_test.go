package cmt

import "gonum.org/v1/gonum/mat"

// expmReference computes exp(a) through gonum by embedding the complex
// matrix X+iY as the real 8×8 block matrix [[X, -Y], [Y, X]]. It is much
// slower than Expm and serves as an independent check.
func expmReference(a Matrix4) Matrix4 {
	re := mat.NewDense(8, 8, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			x, y := real(a[i][j]), imag(a[i][j])
			re.Set(i, j, x)
			re.Set(i, j+4, -y)
			re.Set(i+4, j, y)
			re.Set(i+4, j+4, x)
		}
	}

	var e mat.Dense
	e.Exp(re)

	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = complex(e.At(i, j), e.At(i+4, j))
		}
	}
	return out
}
