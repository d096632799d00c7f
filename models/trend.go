package models

import (
	"gonum.org/v1/gonum/mat"
)

// LocalLinearTrendConfig holds the variances of a LocalLinearTrend model.
type LocalLinearTrendConfig struct {
	LevelVariance       float64
	SlopeVariance       float64
	ObservationVariance float64
}

// LocalLinearTrend is the model with a level μ and a slope β:
//
//	y(t) = μ(t) + ε(t),   μ(t+1) = μ(t) + β(t) + η(t),   β(t+1) = β(t) + ζ(t)
//
// Both initial values are diffuse.
type LocalLinearTrend struct {
	cfg LocalLinearTrendConfig
}

// NewLocalLinearTrend returns a local linear trend model.
func NewLocalLinearTrend(cfg LocalLinearTrendConfig) *LocalLinearTrend {
	return &LocalLinearTrend{cfg: cfg}
}

// StateDim implements ssf.Model.
func (m *LocalLinearTrend) StateDim() int {
	return 2
}

// IsTimeInvariant implements ssf.Model.
func (m *LocalLinearTrend) IsTimeInvariant() bool {
	return true
}

// TX implements ssf.Transition.
func (m *LocalLinearTrend) TX(pos int, x *mat.VecDense) {
	x.SetVec(0, x.AtVec(0)+x.AtVec(1))
}

// XT implements ssf.Transition.
func (m *LocalLinearTrend) XT(pos int, x *mat.VecDense) {
	x.SetVec(1, x.AtVec(0)+x.AtVec(1))
}

// TVT implements ssf.Transition.
func (m *LocalLinearTrend) TVT(pos int, v *mat.SymDense) {
	v00, v01, v11 := v.At(0, 0), v.At(0, 1), v.At(1, 1)
	v.SetSym(0, 0, v00+2*v01+v11)
	v.SetSym(0, 1, v01+v11)
}

// AddV implements ssf.Innovation.
func (m *LocalLinearTrend) AddV(pos int, p *mat.SymDense) {
	p.SetSym(0, 0, p.At(0, 0)+m.cfg.LevelVariance)
	p.SetSym(1, 1, p.At(1, 1)+m.cfg.SlopeVariance)
}

// ZX implements ssf.Loading.
func (m *LocalLinearTrend) ZX(pos int, x mat.Vector) float64 {
	return x.AtVec(0)
}

// ZVZ implements ssf.Loading.
func (m *LocalLinearTrend) ZVZ(pos int, v mat.Symmetric) float64 {
	return v.At(0, 0)
}

// ZM implements ssf.Loading.
func (m *LocalLinearTrend) ZM(pos int, x mat.Matrix, zm *mat.VecDense) {
	_, c := x.Dims()
	for j := 0; j < c; j++ {
		zm.SetVec(j, x.At(0, j))
	}
}

// VpZdZ implements ssf.Loading.
func (m *LocalLinearTrend) VpZdZ(pos int, v *mat.SymDense, d float64) {
	v.SetSym(0, 0, v.At(0, 0)+d)
}

// XpZd implements ssf.Loading.
func (m *LocalLinearTrend) XpZd(pos int, x *mat.VecDense, d float64) {
	x.SetVec(0, x.AtVec(0)+d)
}

// HasErrors implements ssf.Loading.
func (m *LocalLinearTrend) HasErrors() bool {
	return m.cfg.ObservationVariance > 0
}

// ErrorVariance implements ssf.Loading.
func (m *LocalLinearTrend) ErrorVariance(pos int) float64 {
	return m.cfg.ObservationVariance
}

// IsDiffuse implements ssf.Initialization.
func (m *LocalLinearTrend) IsDiffuse() bool {
	return true
}

// NonStationaryDim implements ssf.Initialization.
func (m *LocalLinearTrend) NonStationaryDim() int {
	return 2
}

// DiffuseConstraints implements ssf.Initialization.
func (m *LocalLinearTrend) DiffuseConstraints(b *mat.Dense) {
	b.Zero()
	b.Set(0, 0, 1)
	b.Set(1, 1, 1)
}

// A0 implements ssf.Initialization.
func (m *LocalLinearTrend) A0(a0 *mat.VecDense) {
	a0.Zero()
}

// Pf0 implements ssf.Initialization.
func (m *LocalLinearTrend) Pf0(pf0 *mat.SymDense) {
	pf0.Zero()
}

// Pi0 implements ssf.Initialization.
func (m *LocalLinearTrend) Pi0(pi0 *mat.SymDense) {
	pi0.Zero()
	pi0.SetSym(0, 0, 1)
	pi0.SetSym(1, 1, 1)
}
