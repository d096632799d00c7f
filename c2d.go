package ssf

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNyquist is returned by VanLoan when the sampling period is too long for the
// dynamics of the continuous system. The discretized matrices are still returned.
var ErrNyquist = errors.New("ssf: Nyquist sampling criterion not fulfilled")

// VanLoan computes the transition matrix T and the innovation variance V of the
// discretization with period Δt of the continuous-time system
//
//	dx = A x dt + Γ dw,     E[dw dwᵗ] = W dt
func VanLoan(A, Γ, W mat.Matrix, Δt float64) (*mat.Dense, *mat.SymDense, error) {
	if err := CheckMatDims(A, A, "A", "A", Rows2Cols); err != nil {
		return nil, nil, err
	}
	if err := CheckMatDims(A, Γ, "A", "Γ", Rows2Rows); err != nil {
		return nil, nil, err
	}
	if err := CheckMatDims(Γ, W, "Γ", "W", Cols2Rows); err != nil {
		return nil, nil, err
	}
	var err error
	var λ mat.Eigen
	if ok := λ.Factorize(A, mat.EigenNone); ok {
		λmax := 0.0
		for _, v := range λ.Values(nil) {
			λmax = math.Max(λmax, cmplx.Abs(v))
		}
		if 2*λmax*Δt >= math.Pi {
			err = errors.Wrapf(ErrNyquist, "Δt=%f", Δt)
		}
	}

	var ΓW, ΓWΓ, Ap mat.Dense
	ΓW.Mul(Γ, W)
	ΓWΓ.Mul(&ΓW, Γ.T())
	ΓWΓ.Scale(Δt, &ΓWΓ)
	Ap.Scale(Δt, A)

	// M = [ -A Δt   Γ W Γᵗ Δt ]
	//     [   0       Aᵗ Δt   ]
	n, _ := A.Dims()
	M := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			M.Set(i, j, -Ap.At(i, j))
			M.Set(i, j+n, ΓWΓ.At(i, j))
			M.Set(i+n, j+n, Ap.At(j, i))
		}
	}
	var expM mat.Dense
	expM.Exp(M)

	// expM = [ ...  T⁻¹ V ]
	//        [  0    Tᵗ   ]
	T := mat.NewDense(n, n, nil)
	T1V := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			T1V.Set(i, j, expM.At(i, n+j))
			T.Set(j, i, expM.At(n+i, n+j))
		}
	}
	var V mat.Dense
	V.Mul(T, T1V)
	VSym, _ := AsSymDense(&V)
	return T, VSym, err
}
