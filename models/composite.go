package models

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	ssf "github.com/palatej/jdemetra-core2-sub000"
)

// Composite is the sum of independent components: the state is the concatenation of
// the states of the components, the transition is block diagonal and the measurement
// row is the concatenation of the measurement rows. The measurement variance is Noise
// plus the measurement variances of the components.
type Composite struct {
	components []ssf.Model
	noise      float64
	offsets    []int // position of each block in the state
	ndOffsets  []int // position of each block in the diffuse constraints
	dim, nd    int
}

// NewComposite returns the sum of the components, with an additional measurement
// noise of variance noise.
func NewComposite(noise float64, components ...ssf.Model) (*Composite, error) {
	if len(components) == 0 {
		return nil, errors.Wrap(ssf.ErrStructural, "composite model without component")
	}
	if noise < 0 {
		return nil, errors.Wrapf(ssf.ErrStructural, "negative measurement variance %g", noise)
	}
	c := &Composite{components: components, noise: noise}
	for i, cmp := range components {
		if err := ssf.CheckModel(cmp); err != nil {
			return nil, errors.Wrapf(err, "component #%d", i)
		}
		c.offsets = append(c.offsets, c.dim)
		c.ndOffsets = append(c.ndOffsets, c.nd)
		c.dim += cmp.StateDim()
		c.nd += cmp.NonStationaryDim()
	}
	return c, nil
}

// Block returns the part of x corresponding to the i-th component.
func (c *Composite) Block(i int, x *mat.VecDense) *mat.VecDense {
	return x.SliceVec(c.offsets[i], c.offsets[i]+c.components[i].StateDim()).(*mat.VecDense)
}

func (c *Composite) symBlock(i int, v *mat.SymDense) *mat.SymDense {
	return v.SliceSym(c.offsets[i], c.offsets[i]+c.components[i].StateDim()).(*mat.SymDense)
}

// StateDim implements ssf.Model.
func (c *Composite) StateDim() int {
	return c.dim
}

// IsTimeInvariant implements ssf.Model.
func (c *Composite) IsTimeInvariant() bool {
	for _, cmp := range c.components {
		if !cmp.IsTimeInvariant() {
			return false
		}
	}
	return true
}

// TX implements ssf.Transition.
func (c *Composite) TX(pos int, x *mat.VecDense) {
	for i, cmp := range c.components {
		cmp.TX(pos, c.Block(i, x))
	}
}

// XT implements ssf.Transition.
func (c *Composite) XT(pos int, x *mat.VecDense) {
	for i, cmp := range c.components {
		cmp.XT(pos, c.Block(i, x))
	}
}

// TVT implements ssf.Transition.
func (c *Composite) TVT(pos int, v *mat.SymDense) {
	ssf.Congruence(v, func(x *mat.VecDense) { c.TX(pos, x) })
}

// AddV implements ssf.Innovation.
func (c *Composite) AddV(pos int, p *mat.SymDense) {
	for i, cmp := range c.components {
		cmp.AddV(pos, c.symBlock(i, p))
	}
}

// ZX implements ssf.Loading.
func (c *Composite) ZX(pos int, x mat.Vector) float64 {
	xd := mat.VecDenseCopyOf(x)
	s := 0.0
	for i, cmp := range c.components {
		s += cmp.ZX(pos, c.Block(i, xd))
	}
	return s
}

// ZVZ implements ssf.Loading.
func (c *Composite) ZVZ(pos int, v mat.Symmetric) float64 {
	zv := mat.NewVecDense(c.dim, nil)
	c.ZM(pos, v, zv)
	return c.ZX(pos, zv)
}

// ZM implements ssf.Loading.
func (c *Composite) ZM(pos int, x mat.Matrix, zm *mat.VecDense) {
	xd := mat.DenseCopyOf(x)
	_, cols := xd.Dims()
	zm.Zero()
	tmp := mat.NewVecDense(cols, nil)
	for i, cmp := range c.components {
		rows := xd.Slice(c.offsets[i], c.offsets[i]+cmp.StateDim(), 0, cols)
		cmp.ZM(pos, rows, tmp)
		zm.AddVec(zm, tmp)
	}
}

func (c *Composite) z(pos int) *mat.VecDense {
	z := mat.NewVecDense(c.dim, nil)
	c.XpZd(pos, z, 1)
	return z
}

// VpZdZ implements ssf.Loading.
func (c *Composite) VpZdZ(pos int, v *mat.SymDense, d float64) {
	v.SymRankOne(v, d, c.z(pos))
}

// XpZd implements ssf.Loading.
func (c *Composite) XpZd(pos int, x *mat.VecDense, d float64) {
	for i, cmp := range c.components {
		cmp.XpZd(pos, c.Block(i, x), d)
	}
}

// HasErrors implements ssf.Loading.
func (c *Composite) HasErrors() bool {
	if c.noise > 0 {
		return true
	}
	for _, cmp := range c.components {
		if cmp.HasErrors() {
			return true
		}
	}
	return false
}

// ErrorVariance implements ssf.Loading.
func (c *Composite) ErrorVariance(pos int) float64 {
	h := c.noise
	for _, cmp := range c.components {
		if cmp.HasErrors() {
			h += cmp.ErrorVariance(pos)
		}
	}
	return h
}

// IsDiffuse implements ssf.Initialization.
func (c *Composite) IsDiffuse() bool {
	return c.nd > 0
}

// NonStationaryDim implements ssf.Initialization.
func (c *Composite) NonStationaryDim() int {
	return c.nd
}

// DiffuseConstraints implements ssf.Initialization.
func (c *Composite) DiffuseConstraints(b *mat.Dense) {
	b.Zero()
	for i, cmp := range c.components {
		nd := cmp.NonStationaryDim()
		if nd == 0 {
			continue
		}
		blk := b.Slice(c.offsets[i], c.offsets[i]+cmp.StateDim(), c.ndOffsets[i], c.ndOffsets[i]+nd).(*mat.Dense)
		cmp.DiffuseConstraints(blk)
	}
}

// A0 implements ssf.Initialization.
func (c *Composite) A0(a0 *mat.VecDense) {
	for i, cmp := range c.components {
		cmp.A0(c.Block(i, a0))
	}
}

// Pf0 implements ssf.Initialization.
func (c *Composite) Pf0(pf0 *mat.SymDense) {
	pf0.Zero()
	for i, cmp := range c.components {
		cmp.Pf0(c.symBlock(i, pf0))
	}
}

// Pi0 implements ssf.Initialization.
func (c *Composite) Pi0(pi0 *mat.SymDense) {
	pi0.Zero()
	for i, cmp := range c.components {
		if cmp.IsDiffuse() {
			cmp.Pi0(c.symBlock(i, pi0))
		}
	}
}
