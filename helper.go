package ssf

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var nan = math.NaN()

// Identity returns an identity matrix of the provided size.
func Identity(n int) *mat.SymDense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j += n + 1 {
		vals[j] = 1
	}
	return mat.NewSymDense(n, vals)
}

// ScaledIdentity returns an identity matrix time a scaling factor of the provided size.
func ScaledIdentity(n int, s float64) *mat.SymDense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j += n + 1 {
		vals[j] = s
	}
	return mat.NewSymDense(n, vals)
}

// IsNil returns whether the provided matrix only has zero values
func IsNil(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// AsSymDense returns a SymDense from the provided square matrix, averaging the
// off-diagonal elements.
func AsSymDense(m mat.Matrix) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.Wrapf(ErrStructural, "matrix must be square (%dx%d)", r, c)
	}
	s := mat.NewSymDense(r, nil)
	setSym(s, m)
	return s, nil
}

// setSym stores (m + mᵗ)/2 in s.
func setSym(s *mat.SymDense, m mat.Matrix) {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		s.SetSym(i, i, m.At(i, i))
		for j := i + 1; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
}

// applyRows applies fn to every row of m.
func applyRows(m *mat.Dense, fn func(x *mat.VecDense)) {
	r, c := m.Dims()
	x := mat.NewVecDense(c, nil)
	raw := x.RawVector().Data
	for i := 0; i < r; i++ {
		mat.Row(raw, i, m)
		fn(x)
		m.SetRow(i, raw)
	}
}

// applyCols applies fn to every column of m.
func applyCols(m *mat.Dense, fn func(x *mat.VecDense)) {
	r, c := m.Dims()
	x := mat.NewVecDense(r, nil)
	raw := x.RawVector().Data
	for j := 0; j < c; j++ {
		mat.Col(raw, j, m)
		fn(x)
		m.SetCol(j, raw)
	}
}

// Congruence replaces s by F s Fᵗ, fn computing x = F x. Models can use it to implement
// TVT from TX. With fn computing x = x T for a row vector, it gives Tᵗ s T.
func Congruence(s *mat.SymDense, fn func(x *mat.VecDense)) {
	n := s.SymmetricDim()
	d := mat.NewDense(n, n, nil)
	d.Copy(s)
	applyRows(d, fn)
	applyCols(d, fn)
	setSym(s, d)
}

// frobenius returns the Frobenius norm of a symmetric matrix.
func frobenius(s mat.Symmetric) float64 {
	return mat.Norm(s, 2)
}

// TVT computes v = t v tᵗ for an explicit square matrix t. It is meant for models
// holding a dense transition matrix.
func TVT(t mat.Matrix, v *mat.SymDense) {
	var tv, tvt mat.Dense
	tv.Mul(t, v)
	tvt.Mul(&tv, t.T())
	setSym(v, &tvt)
}

// MulVecInPlace computes x = t x (or x = tᵗ x when transposed is set) for an explicit
// square matrix t.
func MulVecInPlace(t mat.Matrix, x *mat.VecDense, transposed bool) {
	var tmp mat.VecDense
	if transposed {
		tmp.MulVec(t.T(), x)
	} else {
		tmp.MulVec(t, x)
	}
	x.CopyVec(&tmp)
}
