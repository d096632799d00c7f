// Package ssf implements exact filtering, smoothing and likelihood evaluation for linear
// Gaussian state-space models with a scalar measurement:
//
//	y(t)   = Z(t) a(t) + e(t),         e(t) ~ N(0, H(t))
//	a(t+1) = T(t) a(t) + u(t),         u(t) ~ N(0, V(t))
//
// with an initial state a(0) ~ N(a0, P*0 + κ B Bᵗ), κ → ∞. The engine handles the diffuse
// part of the initial state exactly (Durbin-Koopman), then runs the ordinary Kalman
// recursion, an optional fixed-interval smoother and the prediction-error decomposition
// of the likelihood.
//
// Models are never materialized as matrices: the engine only uses the operations of the
// Model interface, so that structured models (sums of independent components, companion
// forms) can implement them cheaply. Concrete model families live in the models package.
package ssf

import "gonum.org/v1/gonum/mat"

// Transition gives the effect of the transition matrix T(pos).
type Transition interface {
	// TX computes x = T(pos) x.
	TX(pos int, x *mat.VecDense)
	// XT computes x = x T(pos), x being considered as a row vector.
	XT(pos int, x *mat.VecDense)
	// TVT computes v = T(pos) v T(pos)ᵗ.
	TVT(pos int, v *mat.SymDense)
}

// Innovation gives the variance V(pos) of the transition noise.
type Innovation interface {
	// AddV computes p = p + V(pos).
	AddV(pos int, p *mat.SymDense)
}

// Loading gives the effect of the measurement row Z(pos) and of the measurement noise.
type Loading interface {
	// ZX returns Z(pos) x.
	ZX(pos int, x mat.Vector) float64
	// ZVZ returns Z(pos) v Z(pos)ᵗ.
	ZVZ(pos int, v mat.Symmetric) float64
	// ZM stores in zm the product Z(pos) m, column by column.
	ZM(pos int, m mat.Matrix, zm *mat.VecDense)
	// VpZdZ computes v = v + d Z(pos)ᵗ Z(pos).
	VpZdZ(pos int, v *mat.SymDense, d float64)
	// XpZd computes x = x + d Z(pos).
	XpZd(pos int, x *mat.VecDense, d float64)
	// HasErrors tells whether the measurement equation contains a noise.
	HasErrors() bool
	// ErrorVariance returns H(pos).
	ErrorVariance(pos int) float64
}

// Initialization gives the initial conditions of the state.
type Initialization interface {
	// IsDiffuse tells whether some directions of the initial state have an infinite variance.
	IsDiffuse() bool
	// NonStationaryDim returns the number of diffuse directions (nd).
	NonStationaryDim() int
	// DiffuseConstraints stores in b (dim x nd) the diffuse directions B.
	DiffuseConstraints(b *mat.Dense)
	// A0 stores the initial mean in a0.
	A0(a0 *mat.VecDense)
	// Pf0 stores the variance of the stationary part of the initial state.
	Pf0(pf0 *mat.SymDense)
	// Pi0 stores the unscaled variance of the diffuse part, B Bᵗ.
	Pi0(pi0 *mat.SymDense)
}

// Model is the contract a model family must fulfil to be processed by the engine.
// Implementations must be free of side effects so that independent instances can be
// processed concurrently.
type Model interface {
	Transition
	Innovation
	Loading
	Initialization
	// StateDim returns the dimension of the state vector.
	StateDim() int
	// IsTimeInvariant tells whether T, V, Z and H are independent of the position.
	IsTimeInvariant() bool
}

// Data is an indexed sequence of scalar observations.
type Data interface {
	Len() int
	At(t int) float64
	IsMissing(t int) bool
}

// Series is a Data backed by a slice; NaN values are missing.
type Series []float64

// Len implements the Data interface.
func (s Series) Len() int {
	return len(s)
}

// At implements the Data interface.
func (s Series) At(t int) float64 {
	return s[t]
}

// IsMissing implements the Data interface.
func (s Series) IsMissing(t int) bool {
	return s[t] != s[t]
}

// Extend returns a copy of the series followed by h missing values.
func (s Series) Extend(h int) Series {
	ext := make(Series, len(s)+h)
	copy(ext, s)
	for i := len(s); i < len(ext); i++ {
		ext[i] = nan
	}
	return ext
}

// PiFromConstraints computes B Bᵗ from the diffuse constraints of a model.
// It can be used by models to implement Pi0.
func PiFromConstraints(m Initialization, dim int, pi0 *mat.SymDense) {
	nd := m.NonStationaryDim()
	pi0.Zero()
	if nd == 0 {
		return
	}
	b := mat.NewDense(dim, nd, nil)
	m.DiffuseConstraints(b)
	pi0.SymOuterK(1, b)
}
