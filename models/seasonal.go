package models

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SeasonalConfig holds the parameters of a Seasonal component. Period must be at least 2.
type SeasonalConfig struct {
	Period             int
	InnovationVariance float64
	// ObservationVariance is usually left to 0 when the seasonal component is part of a
	// Composite model.
	ObservationVariance float64
}

// Seasonal is the dummy seasonal component: the sum of the effects of s consecutive
// periods is a white noise. The state holds the last s-1 effects,
//
//	γ(t+1) = -γ(t) - ... - γ(t-s+2) + ω(t)
type Seasonal struct {
	cfg SeasonalConfig
}

// NewSeasonal returns a dummy seasonal component with Period-1 diffuse effects.
func NewSeasonal(cfg SeasonalConfig) *Seasonal {
	return &Seasonal{cfg: cfg}
}

// Validate implements ssf.Validator.
func (m *Seasonal) Validate() error {
	if m.cfg.Period < 2 {
		return errors.Errorf("invalid seasonal period %d", m.cfg.Period)
	}
	return nil
}

// StateDim implements ssf.Model.
func (m *Seasonal) StateDim() int {
	return m.cfg.Period - 1
}

// IsTimeInvariant implements ssf.Model.
func (m *Seasonal) IsTimeInvariant() bool {
	return true
}

// TX implements ssf.Transition.
func (m *Seasonal) TX(pos int, x *mat.VecDense) {
	n := x.Len()
	s := 0.0
	for i := 0; i < n; i++ {
		s += x.AtVec(i)
	}
	for i := n - 1; i > 0; i-- {
		x.SetVec(i, x.AtVec(i-1))
	}
	x.SetVec(0, -s)
}

// XT implements ssf.Transition.
func (m *Seasonal) XT(pos int, x *mat.VecDense) {
	n := x.Len()
	x0 := x.AtVec(0)
	for i := 0; i < n-1; i++ {
		x.SetVec(i, x.AtVec(i+1)-x0)
	}
	x.SetVec(n-1, -x0)
}

// TVT implements ssf.Transition.
func (m *Seasonal) TVT(pos int, v *mat.SymDense) {
	n := v.SymmetricDim()
	// T V Tᵗ(0,0) = Σ v, T V Tᵗ(0,j) = -Σ_k v(k,j-1), T V Tᵗ(i,j) = v(i-1,j-1)
	rows := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			rows[i] += v.At(k, i)
		}
		total += rows[i]
	}
	for i := n - 1; i > 0; i-- {
		for j := n - 1; j >= i; j-- {
			v.SetSym(i, j, v.At(i-1, j-1))
		}
	}
	v.SetSym(0, 0, total)
	for j := 1; j < n; j++ {
		v.SetSym(0, j, -rows[j-1])
	}
}

// AddV implements ssf.Innovation.
func (m *Seasonal) AddV(pos int, p *mat.SymDense) {
	p.SetSym(0, 0, p.At(0, 0)+m.cfg.InnovationVariance)
}

// ZX implements ssf.Loading.
func (m *Seasonal) ZX(pos int, x mat.Vector) float64 {
	return x.AtVec(0)
}

// ZVZ implements ssf.Loading.
func (m *Seasonal) ZVZ(pos int, v mat.Symmetric) float64 {
	return v.At(0, 0)
}

// ZM implements ssf.Loading.
func (m *Seasonal) ZM(pos int, x mat.Matrix, zm *mat.VecDense) {
	_, c := x.Dims()
	for j := 0; j < c; j++ {
		zm.SetVec(j, x.At(0, j))
	}
}

// VpZdZ implements ssf.Loading.
func (m *Seasonal) VpZdZ(pos int, v *mat.SymDense, d float64) {
	v.SetSym(0, 0, v.At(0, 0)+d)
}

// XpZd implements ssf.Loading.
func (m *Seasonal) XpZd(pos int, x *mat.VecDense, d float64) {
	x.SetVec(0, x.AtVec(0)+d)
}

// HasErrors implements ssf.Loading.
func (m *Seasonal) HasErrors() bool {
	return m.cfg.ObservationVariance > 0
}

// ErrorVariance implements ssf.Loading.
func (m *Seasonal) ErrorVariance(pos int) float64 {
	return m.cfg.ObservationVariance
}

// IsDiffuse implements ssf.Initialization.
func (m *Seasonal) IsDiffuse() bool {
	return true
}

// NonStationaryDim implements ssf.Initialization.
func (m *Seasonal) NonStationaryDim() int {
	return m.StateDim()
}

// DiffuseConstraints implements ssf.Initialization.
func (m *Seasonal) DiffuseConstraints(b *mat.Dense) {
	b.Zero()
	for i := 0; i < m.StateDim(); i++ {
		b.Set(i, i, 1)
	}
}

// A0 implements ssf.Initialization.
func (m *Seasonal) A0(a0 *mat.VecDense) {
	a0.Zero()
}

// Pf0 implements ssf.Initialization.
func (m *Seasonal) Pf0(pf0 *mat.SymDense) {
	pf0.Zero()
}

// Pi0 implements ssf.Initialization.
func (m *Seasonal) Pi0(pi0 *mat.SymDense) {
	pi0.Zero()
	for i := 0; i < m.StateDim(); i++ {
		pi0.SetSym(i, i, 1)
	}
}
