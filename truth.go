package ssf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// GroundTruth computes the errors of estimates against a known sequence of states,
// typically the states of a Simulation.
type GroundTruth struct {
	states []*mat.VecDense
}

// NewGroundTruth initializes a new ground truth.
func NewGroundTruth(states []*mat.VecDense) *GroundTruth {
	return &GroundTruth{states}
}

// Error returns est - x(t).
func (g *GroundTruth) Error(t int, est mat.Vector) *mat.VecDense {
	if t >= len(g.states) {
		panic(fmt.Errorf("no ground truth at t=%d", t))
	}
	if est.Len() != g.states[t].Len() {
		panic(fmt.Errorf("ground truth state size different from estimated state size (t=%d)", t))
	}
	e := mat.NewVecDense(est.Len(), nil)
	e.SubVec(est, g.states[t])
	return e
}

// NEES returns the normalized estimation error squared (est - x)ᵗ P⁻¹ (est - x) of a
// state, or NaN if its variance is singular.
func (g *GroundTruth) NEES(t int, s *State) float64 {
	e := g.Error(t, s.A)
	var chol mat.Cholesky
	if ok := chol.Factorize(s.P); !ok {
		return nan
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, e); err != nil {
		return nan
	}
	return mat.Dot(e, &x)
}
