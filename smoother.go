package ssf

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// SmoothingResults holds the state estimates conditioned on the whole sample.
type SmoothingResults struct {
	a []*mat.VecDense
	p []*mat.SymDense
}

// Len returns the number of positions.
func (sr *SmoothingResults) Len() int {
	return len(sr.a)
}

// Mean returns a(t|n).
func (sr *SmoothingResults) Mean(t int) mat.Vector {
	return sr.a[t]
}

// Variance returns P(t|n), or nil when the variances were not computed.
func (sr *SmoothingResults) Variance(t int) mat.Symmetric {
	if sr.p == nil {
		return nil
	}
	return sr.p[t]
}

// State returns the smoothed state at t.
func (sr *SmoothingResults) State(t int) *State {
	s := NewState(sr.a[t].Len())
	s.A.CopyVec(sr.a[t])
	if sr.p != nil {
		s.P.CopySym(sr.p[t])
	}
	s.Phase = Smoothed
	return s
}

// Component returns the smoothed values of the i-th element of the state.
func (sr *SmoothingResults) Component(i int) []float64 {
	c := make([]float64, len(sr.a))
	for t, a := range sr.a {
		c[t] = a.AtVec(i)
	}
	return c
}

// Smoother is the fixed-interval smoother working backwards on the buffered results
// of a forward pass.
type Smoother struct {
	SmoothVariances bool
	Logger          logrus.FieldLogger
}

// NewSmoother returns a smoother configured from opts.
func NewSmoother(opts Options) *Smoother {
	return &Smoother{SmoothVariances: opts.SmoothVariances, Logger: opts.Logger}
}

// adjoint is the backward recursion context. r0 and n0 are the ordinary adjoints; r1,
// n1 and n2 only live during the diffuse phase.
type adjoint struct {
	m          Model
	dim        int
	z          *mat.VecDense
	r0, r1     *mat.VecDense
	n0, n1, n2 *mat.SymDense
	u0, u1     *mat.VecDense
	variances  bool
}

func newAdjoint(m Model, variances bool) *adjoint {
	dim := m.StateDim()
	return &adjoint{
		m:         m,
		dim:       dim,
		z:         mat.NewVecDense(dim, nil),
		r0:        mat.NewVecDense(dim, nil),
		r1:        mat.NewVecDense(dim, nil),
		n0:        mat.NewSymDense(dim, nil),
		n1:        mat.NewSymDense(dim, nil),
		n2:        mat.NewSymDense(dim, nil),
		u0:        mat.NewVecDense(dim, nil),
		u1:        mat.NewVecDense(dim, nil),
		variances: variances,
	}
}

// Process runs the smoother on the results of a complete forward pass.
func (sm *Smoother) Process(m Model, res *FilteringResults) (*SmoothingResults, error) {
	if res == nil || res.last == nil {
		return nil, errors.Wrap(ErrPhase, "smoothing requires the results of a complete forward pass")
	}
	if m.StateDim() != res.Dim() {
		return nil, errors.Wrapf(ErrStructural, "state dimension %d, results dimension %d", m.StateDim(), res.Dim())
	}
	n := res.Len()
	sr := &SmoothingResults{a: make([]*mat.VecDense, n)}
	if sm.SmoothVariances {
		sr.p = make([]*mat.SymDense, n)
	}
	ctx := newAdjoint(m, sm.SmoothVariances)
	end := res.EndDiffusePosition()
	for t := n - 1; t >= 0; t-- {
		var a *mat.VecDense
		var p *mat.SymDense
		if t >= end {
			ctx.ordinaryStep(t, res)
			a, p = ctx.ordinarySmoothed(t, res)
		} else {
			ctx.diffuseStep(t, res)
			a, p = ctx.diffuseSmoothed(t, res)
		}
		sr.a[t] = a
		if sr.p != nil {
			sr.p[t] = p
		}
	}
	if sm.Logger != nil {
		sm.Logger.WithFields(logrus.Fields{"n": n, "diffuse": end}).Debug("smoothing done")
	}
	return sr, nil
}

// ordinaryStep computes r(t-1), N(t-1) from r(t), N(t).
func (ctx *adjoint) ordinaryStep(t int, res *FilteringResults) {
	m := ctx.m
	m.XT(t, ctx.r0)
	if res.missing[t] || res.f[t] == 0 {
		if ctx.variances {
			Congruence(ctx.n0, func(x *mat.VecDense) { m.XT(t, x) })
		}
		return
	}
	e, f, mv := res.e[t], res.f[t], res.m[t]
	m.XpZd(t, ctx.r0, (e-mat.Dot(ctx.r0, mv))/f)
	if ctx.variances {
		Congruence(ctx.n0, func(x *mat.VecDense) {
			m.XT(t, x)
			m.XpZd(t, x, -mat.Dot(x, mv)/f)
		})
		m.VpZdZ(t, ctx.n0, 1/f)
	}
}

func (ctx *adjoint) ordinarySmoothed(t int, res *FilteringResults) (*mat.VecDense, *mat.SymDense) {
	p := res.p[t]
	a := mat.NewVecDense(ctx.dim, nil)
	a.MulVec(p, ctx.r0)
	a.AddVec(a, res.a[t])
	if !ctx.variances {
		return a, nil
	}
	var pn, pnp mat.Dense
	pn.Mul(p, ctx.n0)
	pnp.Mul(&pn, p)
	v := mat.NewSymDense(ctx.dim, nil)
	setSym(v, &pnp)
	v.ScaleSym(-1, v)
	v.AddSym(p, v)
	return a, v
}

// diffuseStep computes r0(t-1), r1(t-1), N0(t-1), N1(t-1), N2(t-1).
func (ctx *adjoint) diffuseStep(t int, res *FilteringResults) {
	m := ctx.m
	fi := res.fi[t]
	if fi == 0 || res.missing[t] {
		// the observation carries no diffuse information: the diffuse adjoints are
		// propagated with the same L(t) as the ordinary ones
		var transform func(x *mat.VecDense)
		if res.missing[t] || res.f[t] == 0 {
			transform = func(x *mat.VecDense) { m.XT(t, x) }
			m.XT(t, ctx.r0)
		} else {
			f, mv := res.f[t], res.m[t]
			transform = func(x *mat.VecDense) {
				m.XT(t, x)
				m.XpZd(t, x, -mat.Dot(x, mv)/f)
			}
			m.XT(t, ctx.r0)
			m.XpZd(t, ctx.r0, (res.e[t]-mat.Dot(ctx.r0, mv))/f)
		}
		transform(ctx.r1)
		if ctx.variances {
			Congruence(ctx.n0, transform)
			Congruence(ctx.n1, transform)
			Congruence(ctx.n2, transform)
			if !res.missing[t] && res.f[t] != 0 {
				m.VpZdZ(t, ctx.n0, 1/res.f[t])
			}
		}
		return
	}

	e, f, mv, mi := res.e[t], res.f[t], res.m[t], res.mi[t]
	// K̃ = (M - Mi f/fi)/fi
	k := mat.NewVecDense(ctx.dim, nil)
	k.AddScaledVec(mv, -f/fi, mi)
	k.ScaleVec(1/fi, k)
	// x A = x - (x.Mi/fi) Z
	a := func(x *mat.VecDense) {
		m.XpZd(t, x, -mat.Dot(x, mi)/fi)
	}
	ctx.u0.CopyVec(ctx.r0)
	m.XT(t, ctx.u0)
	ctx.u1.CopyVec(ctx.r1)
	m.XT(t, ctx.u1)

	ctx.r0.CopyVec(ctx.u0)
	a(ctx.r0)
	ctx.r1.CopyVec(ctx.u1)
	m.XpZd(t, ctx.r1, (e-mat.Dot(mi, ctx.u1))/fi-mat.Dot(k, ctx.u0))

	if !ctx.variances {
		return
	}
	tt := func(x *mat.VecDense) { m.XT(t, x) }
	Congruence(ctx.n0, tt)
	Congruence(ctx.n1, tt)
	Congruence(ctx.n2, tt)
	// W0 K̃, W1 K̃, K̃ᵗ W0 K̃
	h0 := mat.NewVecDense(ctx.dim, nil)
	h0.MulVec(ctx.n0, k)
	h1 := mat.NewVecDense(ctx.dim, nil)
	h1.MulVec(ctx.n1, k)
	s := mat.Dot(k, h0)
	a(h0)
	a(h1)
	Congruence(ctx.n0, a)
	Congruence(ctx.n1, a)
	Congruence(ctx.n2, a)

	z := ctx.z
	z.Zero()
	m.XpZd(t, z, 1)
	m.VpZdZ(t, ctx.n1, 1/fi)
	ctx.n1.RankTwo(ctx.n1, -1, h0, z)
	m.VpZdZ(t, ctx.n2, s-f/(fi*fi))
	ctx.n2.RankTwo(ctx.n2, -1, h1, z)
}

func (ctx *adjoint) diffuseSmoothed(t int, res *FilteringResults) (*mat.VecDense, *mat.SymDense) {
	p, pi := res.p[t], res.pi[t]
	a := mat.NewVecDense(ctx.dim, nil)
	a.MulVec(p, ctx.r0)
	a.AddVec(a, res.a[t])
	var tmp mat.VecDense
	tmp.MulVec(pi, ctx.r1)
	a.AddVec(a, &tmp)
	if !ctx.variances {
		return a, nil
	}
	// P* N0 P* + Pi N1 P* + P* N1 Pi + Pi N2 Pi
	var q, w, acc mat.Dense
	q.Mul(p, ctx.n0)
	acc.Mul(&q, p)
	q.Mul(pi, ctx.n1)
	w.Mul(&q, p)
	acc.Add(&acc, &w)
	acc.Add(&acc, w.T())
	q.Mul(pi, ctx.n2)
	w.Mul(&q, pi)
	acc.Add(&acc, &w)
	v := mat.NewSymDense(ctx.dim, nil)
	setSym(v, &acc)
	v.ScaleSym(-1, v)
	v.AddSym(p, v)
	return a, v
}
