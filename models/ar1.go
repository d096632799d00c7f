package models

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// AR1Config holds the parameters of an AR1 model. Mean is the initial mean of the state.
type AR1Config struct {
	Phi                 float64
	InnovationVariance  float64
	ObservationVariance float64
	Mean                float64
}

// AR1 is a stationary autoregressive process of order 1 observed with noise:
//
//	y(t) = x(t) + ε(t),   x(t+1) = φ x(t) + η(t)
//
// The initial state is drawn from the stationary distribution of the process.
type AR1 struct {
	cfg AR1Config
}

// NewAR1 returns an AR1 model; Validate reports a non stationary coefficient.
func NewAR1(cfg AR1Config) *AR1 {
	return &AR1{cfg: cfg}
}

// Validate implements ssf.Validator.
func (m *AR1) Validate() error {
	if math.Abs(m.cfg.Phi) >= 1 {
		return errors.Errorf("non stationary autoregressive coefficient %g", m.cfg.Phi)
	}
	if m.cfg.InnovationVariance < 0 || m.cfg.ObservationVariance < 0 {
		return errors.New("negative variance")
	}
	return nil
}

// StationaryVariance returns σ²/(1-φ²).
func (m *AR1) StationaryVariance() float64 {
	return m.cfg.InnovationVariance / (1 - m.cfg.Phi*m.cfg.Phi)
}

// StateDim implements ssf.Model.
func (m *AR1) StateDim() int {
	return 1
}

// IsTimeInvariant implements ssf.Model.
func (m *AR1) IsTimeInvariant() bool {
	return true
}

// TX implements ssf.Transition.
func (m *AR1) TX(pos int, x *mat.VecDense) {
	x.SetVec(0, m.cfg.Phi*x.AtVec(0))
}

// XT implements ssf.Transition.
func (m *AR1) XT(pos int, x *mat.VecDense) {
	x.SetVec(0, m.cfg.Phi*x.AtVec(0))
}

// TVT implements ssf.Transition.
func (m *AR1) TVT(pos int, v *mat.SymDense) {
	v.SetSym(0, 0, m.cfg.Phi*m.cfg.Phi*v.At(0, 0))
}

// AddV implements ssf.Innovation.
func (m *AR1) AddV(pos int, p *mat.SymDense) {
	p.SetSym(0, 0, p.At(0, 0)+m.cfg.InnovationVariance)
}

// ZX implements ssf.Loading.
func (m *AR1) ZX(pos int, x mat.Vector) float64 {
	return x.AtVec(0)
}

// ZVZ implements ssf.Loading.
func (m *AR1) ZVZ(pos int, v mat.Symmetric) float64 {
	return v.At(0, 0)
}

// ZM implements ssf.Loading.
func (m *AR1) ZM(pos int, x mat.Matrix, zm *mat.VecDense) {
	_, c := x.Dims()
	for j := 0; j < c; j++ {
		zm.SetVec(j, x.At(0, j))
	}
}

// VpZdZ implements ssf.Loading.
func (m *AR1) VpZdZ(pos int, v *mat.SymDense, d float64) {
	v.SetSym(0, 0, v.At(0, 0)+d)
}

// XpZd implements ssf.Loading.
func (m *AR1) XpZd(pos int, x *mat.VecDense, d float64) {
	x.SetVec(0, x.AtVec(0)+d)
}

// HasErrors implements ssf.Loading.
func (m *AR1) HasErrors() bool {
	return m.cfg.ObservationVariance > 0
}

// ErrorVariance implements ssf.Loading.
func (m *AR1) ErrorVariance(pos int) float64 {
	return m.cfg.ObservationVariance
}

// IsDiffuse implements ssf.Initialization.
func (m *AR1) IsDiffuse() bool {
	return false
}

// NonStationaryDim implements ssf.Initialization.
func (m *AR1) NonStationaryDim() int {
	return 0
}

// DiffuseConstraints implements ssf.Initialization.
func (m *AR1) DiffuseConstraints(b *mat.Dense) {}

// A0 implements ssf.Initialization.
func (m *AR1) A0(a0 *mat.VecDense) {
	a0.SetVec(0, m.cfg.Mean)
}

// Pf0 implements ssf.Initialization.
func (m *AR1) Pf0(pf0 *mat.SymDense) {
	pf0.SetSym(0, 0, m.StationaryVariance())
}

// Pi0 implements ssf.Initialization.
func (m *AR1) Pi0(pi0 *mat.SymDense) {
	pi0.Zero()
}
