// Package models provides model families implementing the ssf.Model contract with
// structured operations.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// LocalLevelConfig holds the variances of a LocalLevel model.
type LocalLevelConfig struct {
	LevelVariance       float64
	ObservationVariance float64
}

// LocalLevel is the random walk plus noise model:
//
//	y(t) = μ(t) + ε(t),    μ(t+1) = μ(t) + η(t)
//
// with a diffuse initial level.
type LocalLevel struct {
	cfg LocalLevelConfig
}

// NewLocalLevel returns a local level model.
func NewLocalLevel(cfg LocalLevelConfig) *LocalLevel {
	return &LocalLevel{cfg: cfg}
}

// StateDim implements ssf.Model.
func (m *LocalLevel) StateDim() int {
	return 1
}

// IsTimeInvariant implements ssf.Model.
func (m *LocalLevel) IsTimeInvariant() bool {
	return true
}

// TX implements ssf.Transition.
func (m *LocalLevel) TX(pos int, x *mat.VecDense) {}

// XT implements ssf.Transition.
func (m *LocalLevel) XT(pos int, x *mat.VecDense) {}

// TVT implements ssf.Transition.
func (m *LocalLevel) TVT(pos int, v *mat.SymDense) {}

// AddV implements ssf.Innovation.
func (m *LocalLevel) AddV(pos int, p *mat.SymDense) {
	p.SetSym(0, 0, p.At(0, 0)+m.cfg.LevelVariance)
}

// ZX implements ssf.Loading.
func (m *LocalLevel) ZX(pos int, x mat.Vector) float64 {
	return x.AtVec(0)
}

// ZVZ implements ssf.Loading.
func (m *LocalLevel) ZVZ(pos int, v mat.Symmetric) float64 {
	return v.At(0, 0)
}

// ZM implements ssf.Loading.
func (m *LocalLevel) ZM(pos int, x mat.Matrix, zm *mat.VecDense) {
	_, c := x.Dims()
	for j := 0; j < c; j++ {
		zm.SetVec(j, x.At(0, j))
	}
}

// VpZdZ implements ssf.Loading.
func (m *LocalLevel) VpZdZ(pos int, v *mat.SymDense, d float64) {
	v.SetSym(0, 0, v.At(0, 0)+d)
}

// XpZd implements ssf.Loading.
func (m *LocalLevel) XpZd(pos int, x *mat.VecDense, d float64) {
	x.SetVec(0, x.AtVec(0)+d)
}

// HasErrors implements ssf.Loading.
func (m *LocalLevel) HasErrors() bool {
	return m.cfg.ObservationVariance > 0
}

// ErrorVariance implements ssf.Loading.
func (m *LocalLevel) ErrorVariance(pos int) float64 {
	return m.cfg.ObservationVariance
}

// IsDiffuse implements ssf.Initialization.
func (m *LocalLevel) IsDiffuse() bool {
	return true
}

// NonStationaryDim implements ssf.Initialization.
func (m *LocalLevel) NonStationaryDim() int {
	return 1
}

// DiffuseConstraints implements ssf.Initialization.
func (m *LocalLevel) DiffuseConstraints(b *mat.Dense) {
	b.Set(0, 0, 1)
}

// A0 implements ssf.Initialization.
func (m *LocalLevel) A0(a0 *mat.VecDense) {
	a0.Zero()
}

// Pf0 implements ssf.Initialization.
func (m *LocalLevel) Pf0(pf0 *mat.SymDense) {
	pf0.Zero()
}

// Pi0 implements ssf.Initialization.
func (m *LocalLevel) Pi0(pi0 *mat.SymDense) {
	pi0.SetSym(0, 0, 1)
}
