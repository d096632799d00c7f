package models

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	ssf "github.com/palatej/jdemetra-core2-sub000"
)

// DenseConfig holds the explicit matrices of a time-invariant model. B may be nil for
// a model without diffuse part; A0 and Pf0 default to 0.
type DenseConfig struct {
	T   *mat.Dense
	V   *mat.SymDense
	Z   *mat.VecDense
	H   float64
	A0  *mat.VecDense
	Pf0 *mat.SymDense
	B   *mat.Dense
}

// Dense is a time-invariant model defined by explicit matrices.
type Dense struct {
	cfg DenseConfig
	dim int
}

// NewDense returns the model defined by cfg. T, V and Z are required.
func NewDense(cfg DenseConfig) (*Dense, error) {
	if cfg.T == nil || cfg.V == nil || cfg.Z == nil {
		return nil, errors.Wrap(ssf.ErrStructural, "T, V and Z are required")
	}
	d := &Dense{cfg: cfg}
	d.dim, _ = cfg.T.Dims()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate implements ssf.Validator.
func (m *Dense) Validate() error {
	cfg := m.cfg
	if err := ssf.CheckMatDims(cfg.T, cfg.T, "T", "T", ssf.Rows2Cols); err != nil {
		return err
	}
	if err := ssf.CheckMatDims(cfg.T, cfg.V, "T", "V", ssf.RowsAndCols); err != nil {
		return err
	}
	if err := ssf.CheckMatDims(cfg.T, cfg.Z, "T", "Z", ssf.Cols2Rows); err != nil {
		return err
	}
	if cfg.A0 != nil {
		if err := ssf.CheckMatDims(cfg.T, cfg.A0, "T", "a0", ssf.Cols2Rows); err != nil {
			return err
		}
	}
	if cfg.Pf0 != nil {
		if err := ssf.CheckMatDims(cfg.T, cfg.Pf0, "T", "P*0", ssf.RowsAndCols); err != nil {
			return err
		}
	}
	if cfg.B != nil {
		if err := ssf.CheckMatDims(cfg.T, cfg.B, "T", "B", ssf.Rows2Rows); err != nil {
			return err
		}
	}
	if cfg.H < 0 {
		return errors.Wrapf(ssf.ErrStructural, "negative measurement variance %g", cfg.H)
	}
	return nil
}

// StateDim implements ssf.Model.
func (m *Dense) StateDim() int {
	return m.dim
}

// IsTimeInvariant implements ssf.Model.
func (m *Dense) IsTimeInvariant() bool {
	return true
}

// TX implements ssf.Transition.
func (m *Dense) TX(pos int, x *mat.VecDense) {
	ssf.MulVecInPlace(m.cfg.T, x, false)
}

// XT implements ssf.Transition.
func (m *Dense) XT(pos int, x *mat.VecDense) {
	ssf.MulVecInPlace(m.cfg.T, x, true)
}

// TVT implements ssf.Transition.
func (m *Dense) TVT(pos int, v *mat.SymDense) {
	ssf.TVT(m.cfg.T, v)
}

// AddV implements ssf.Innovation.
func (m *Dense) AddV(pos int, p *mat.SymDense) {
	p.AddSym(p, m.cfg.V)
}

// ZX implements ssf.Loading.
func (m *Dense) ZX(pos int, x mat.Vector) float64 {
	return mat.Dot(m.cfg.Z, x)
}

// ZVZ implements ssf.Loading.
func (m *Dense) ZVZ(pos int, v mat.Symmetric) float64 {
	return mat.Inner(m.cfg.Z, v, m.cfg.Z)
}

// ZM implements ssf.Loading.
func (m *Dense) ZM(pos int, x mat.Matrix, zm *mat.VecDense) {
	zm.MulVec(x.T(), m.cfg.Z)
}

// VpZdZ implements ssf.Loading.
func (m *Dense) VpZdZ(pos int, v *mat.SymDense, d float64) {
	v.SymRankOne(v, d, m.cfg.Z)
}

// XpZd implements ssf.Loading.
func (m *Dense) XpZd(pos int, x *mat.VecDense, d float64) {
	x.AddScaledVec(x, d, m.cfg.Z)
}

// HasErrors implements ssf.Loading.
func (m *Dense) HasErrors() bool {
	return m.cfg.H > 0
}

// ErrorVariance implements ssf.Loading.
func (m *Dense) ErrorVariance(pos int) float64 {
	return m.cfg.H
}

// IsDiffuse implements ssf.Initialization.
func (m *Dense) IsDiffuse() bool {
	return m.NonStationaryDim() > 0
}

// NonStationaryDim implements ssf.Initialization.
func (m *Dense) NonStationaryDim() int {
	if m.cfg.B == nil {
		return 0
	}
	_, nd := m.cfg.B.Dims()
	return nd
}

// DiffuseConstraints implements ssf.Initialization.
func (m *Dense) DiffuseConstraints(b *mat.Dense) {
	if m.cfg.B != nil {
		b.Copy(m.cfg.B)
	}
}

// A0 implements ssf.Initialization.
func (m *Dense) A0(a0 *mat.VecDense) {
	if m.cfg.A0 == nil {
		a0.Zero()
		return
	}
	a0.CopyVec(m.cfg.A0)
}

// Pf0 implements ssf.Initialization.
func (m *Dense) Pf0(pf0 *mat.SymDense) {
	if m.cfg.Pf0 == nil {
		pf0.Zero()
		return
	}
	pf0.CopySym(m.cfg.Pf0)
}

// Pi0 implements ssf.Initialization.
func (m *Dense) Pi0(pi0 *mat.SymDense) {
	ssf.PiFromConstraints(m, m.dim, pi0)
}
