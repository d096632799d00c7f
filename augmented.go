package ssf

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// diffuseBatch accumulates the information on the diffuse effects δ of the augmented
// state a + A δ, in the manner of a batch least squares problem.
type diffuseBatch struct {
	A    *mat.Dense    // dim x nd, effect of δ on the state
	info *mat.SymDense // Σ (Z A)ᵗ (Z A) / f
	n    *mat.VecDense // Σ (Z A)ᵗ e / f
	za   *mat.VecDense
}

func newDiffuseBatch(m Model) *diffuseBatch {
	dim, nd := m.StateDim(), m.NonStationaryDim()
	b := &diffuseBatch{
		A:    mat.NewDense(dim, nd, nil),
		info: mat.NewSymDense(nd, nil),
		n:    mat.NewVecDense(nd, nil),
		za:   mat.NewVecDense(nd, nil),
	}
	m.DiffuseConstraints(b.A)
	return b
}

// add takes into account the observation at pos. za must hold Z(pos) A.
func (b *diffuseBatch) add(pe *PredictionError) {
	f := pe.F
	b.info.SymRankOne(b.info, 1/f, b.za)
	b.n.AddScaledVec(b.n, pe.E/f, b.za)
	b.A.RankOne(b.A, -1/f, pe.M, b.za)
}

// solve returns the Cholesky factorization of the information matrix, or false if the
// diffuse effects are not identified yet.
func (b *diffuseBatch) solve(tol float64) (*mat.Cholesky, bool) {
	var chol mat.Cholesky
	if ok := chol.Factorize(b.info); !ok {
		return nil, false
	}
	if tol > 0 && chol.Cond()*tol > 1 {
		return nil, false
	}
	return &chol, true
}

// AugmentedInitializer is the collapsing initializer of de Jong: the diffuse effects
// are estimated by generalized least squares along the recursion, and collapsed into
// the state as soon as they are identified.
type AugmentedInitializer struct {
	DiffuseTolerance float64
	ordinary         *OrdinaryFilter
}

// NewAugmentedInitializer returns an initializer configured from opts.
func NewAugmentedInitializer(opts Options) *AugmentedInitializer {
	return &AugmentedInitializer{DiffuseTolerance: opts.DiffuseTolerance, ordinary: NewOrdinaryFilter(opts)}
}

// Initialize processes the observations until the diffuse effects are identified and
// returns the first position to be processed by the ordinary filter. Only the
// non-diffuse part of s is used; Pi is reset to 0 on return.
func (ai *AugmentedInitializer) Initialize(m Model, data Data, s *DiffuseState, res *FilteringResults, acc *LikelihoodAccumulator) (int, error) {
	if m.NonStationaryDim() == 0 {
		if res != nil {
			res.closeDiffuse(-1)
		}
		return 0, nil
	}
	batch := newDiffuseBatch(m)
	pe := NewPredictionError(s.Dim())
	for t := 0; t < data.Len(); t++ {
		if res != nil {
			res.saveForecast(t, &s.State)
		}
		if err := ai.ordinary.Error(m, t, data, &s.State, pe); err != nil {
			return -1, err
		}
		m.ZM(t, batch.A, batch.za)
		if err := ai.ordinary.Update(t, &s.State, pe); err != nil {
			return -1, err
		}
		if !pe.Missing && pe.F > 0 {
			batch.add(pe)
			if acc != nil {
				// not an innovation of the exact filter: no residual is kept
				acc.add(pe.E, pe.F, false)
			}
		}
		if chol, ok := batch.solve(ai.DiffuseTolerance); ok {
			if err := ai.collapse(batch, chol, s, acc); err != nil {
				return -1, errors.Wrapf(err, "collapsing diffuse effects at %d", t)
			}
			if res != nil {
				res.saveError(t, pe)
				res.saveFiltered(t, &s.State)
				res.closeDiffuse(t)
			}
			if ai.ordinary.Logger != nil {
				ai.ordinary.Logger.WithField("pos", t).Debug("diffuse effects collapsed")
			}
			if err := ai.ordinary.Predict(m, t, &s.State); err != nil {
				return -1, err
			}
			s.Pi.Zero()
			return t + 1, nil
		}
		if res != nil {
			res.saveError(t, pe)
			res.saveFiltered(t, &s.State)
		}
		if err := ai.ordinary.Predict(m, t, &s.State); err != nil {
			return -1, err
		}
		applyCols(batch.A, func(x *mat.VecDense) { m.TX(t, x) })
	}
	if ai.ordinary.Logger != nil {
		ai.ordinary.Logger.WithFields(logrus.Fields{"n": data.Len(), "nd": m.NonStationaryDim()}).Warn("diffuse effects not identified")
	}
	return -1, errors.Wrapf(ErrDiffuseResolution, "diffuse effects not identified after %d observations", data.Len())
}

// collapse adds the estimated diffuse effects to the state: a += A δ, P += A S⁻¹ Aᵗ.
func (ai *AugmentedInitializer) collapse(b *diffuseBatch, chol *mat.Cholesky, s *DiffuseState, acc *LikelihoodAccumulator) error {
	nd := b.n.Len()
	delta := mat.NewVecDense(nd, nil)
	if err := chol.SolveVecTo(delta, b.n); err != nil {
		return err
	}
	var ad mat.VecDense
	ad.MulVec(b.A, delta)
	s.A.AddVec(s.A, &ad)

	var sinv mat.SymDense
	if err := chol.InverseTo(&sinv); err != nil {
		return err
	}
	var as, asa mat.Dense
	as.Mul(b.A, &sinv)
	asa.Mul(&as, b.A.T())
	cov := mat.NewSymDense(s.Dim(), nil)
	setSym(cov, &asa)
	s.P.AddSym(s.P, cov)

	if acc != nil {
		acc.AdjustSsq(mat.Dot(b.n, delta))
		acc.AddDiffuseCorrection(chol.LogDet())
	}
	return nil
}
