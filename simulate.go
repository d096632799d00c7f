package ssf

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Simulation is a series drawn from a model, with the states that generated it.
type Simulation struct {
	Y      Series
	States []*mat.VecDense
}

// Component returns the true values of the i-th element of the state.
func (s *Simulation) Component(i int) []float64 {
	c := make([]float64, len(s.States))
	for t, a := range s.States {
		c[t] = a.AtVec(i)
	}
	return c
}

// Simulate draws n observations from the model. The diffuse part of the initial state
// is set to the initial mean a0; the stationary part is drawn from N(0, P*0).
func Simulate(m Model, n int, seed uint64) (*Simulation, error) {
	if err := CheckModel(m); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, errors.Errorf("invalid number of observations %d", n)
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	draw := func(l *mat.Dense) *mat.VecDense {
		r, c := l.Dims()
		z := mat.NewVecDense(c, nil)
		for i := 0; i < c; i++ {
			z.SetVec(i, std.Rand())
		}
		x := mat.NewVecDense(r, nil)
		x.MulVec(l, z)
		return x
	}

	dim := m.StateDim()
	a := mat.NewVecDense(dim, nil)
	m.A0(a)
	pf0 := mat.NewSymDense(dim, nil)
	m.Pf0(pf0)
	if !IsNil(pf0) {
		if mvn, ok := distmv.NewNormal(make([]float64, dim), pf0, src); ok {
			a.AddVec(a, mat.NewVecDense(dim, mvn.Rand(nil)))
		} else {
			// singular P*0
			l, err := SquareRoot(pf0)
			if err != nil {
				return nil, errors.Wrap(err, "initial variance")
			}
			a.AddVec(a, draw(l))
		}
	}

	sim := &Simulation{Y: make(Series, n), States: make([]*mat.VecDense, n)}
	v := mat.NewSymDense(dim, nil)
	var sv *mat.Dense
	for t := 0; t < n; t++ {
		sim.States[t] = mat.VecDenseCopyOf(a)
		y := m.ZX(t, a)
		if m.HasErrors() {
			y += math.Sqrt(m.ErrorVariance(t)) * std.Rand()
		}
		sim.Y[t] = y

		m.TX(t, a)
		if sv == nil || !m.IsTimeInvariant() {
			v.Zero()
			m.AddV(t, v)
			var err error
			if sv, err = SquareRoot(v); err != nil {
				return nil, errors.Wrapf(err, "innovation variance at %d", t)
			}
		}
		a.AddVec(a, draw(sv))
	}
	return sim, nil
}
