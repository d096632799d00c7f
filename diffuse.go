package ssf

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DurbinKoopmanInitializer processes the first observations of a model with a diffuse
// initial state. P* and Pinf are propagated separately until Pinf vanishes; the
// resulting state is fully specified and can be handed to the ordinary filter.
type DurbinKoopmanInitializer struct {
	// DiffuseTolerance is the relative Frobenius norm of Pinf at which the diffuse part
	// is considered resolved.
	DiffuseTolerance float64
	ordinary         *OrdinaryFilter
}

// NewDurbinKoopmanInitializer returns an initializer configured from opts.
func NewDurbinKoopmanInitializer(opts Options) *DurbinKoopmanInitializer {
	return &DurbinKoopmanInitializer{DiffuseTolerance: opts.DiffuseTolerance, ordinary: NewOrdinaryFilter(opts)}
}

// Error computes the diffuse prediction error at pos.
func (di *DurbinKoopmanInitializer) Error(m Model, pos int, data Data, s *DiffuseState, pe *DiffusePredictionError) error {
	if err := di.ordinary.Error(m, pos, data, &s.State, &pe.PredictionError); err != nil {
		return err
	}
	m.ZM(pos, s.Pi, pe.Mi)
	fi := m.ZX(pos, pe.Mi)
	if fi < di.ordinary.Tolerance {
		fi = 0
	}
	pe.Fi = fi
	return nil
}

// Update conditions the diffuse state on the observation at pos.
func (di *DurbinKoopmanInitializer) Update(pos int, s *DiffuseState, pe *DiffusePredictionError) error {
	if pe.Missing || !pe.IsDiffuse() {
		return di.ordinary.Update(pos, &s.State, &pe.PredictionError)
	}
	if err := s.expect(Forecast, "diffuse update"); err != nil {
		return err
	}
	fi, f := pe.Fi, pe.F
	s.A.AddScaledVec(s.A, pe.E/fi, pe.Mi)
	// P* - (1/f) M Mᵗ + (1/f)(M - (f/fi)Mi)(M - (f/fi)Mi)ᵗ, expanded so that f = 0 is
	// handled without division.
	s.P.RankTwo(s.P, -1/fi, pe.M, pe.Mi)
	if f != 0 {
		s.P.SymRankOne(s.P, f/(fi*fi), pe.Mi)
	}
	s.Pi.SymRankOne(s.Pi, -1/fi, pe.Mi)
	s.Phase = Concurrent
	return nil
}

// Predict moves a concurrent diffuse state at pos to the forecast state at pos+1.
func (di *DurbinKoopmanInitializer) Predict(m Model, pos int, s *DiffuseState) error {
	if err := di.ordinary.Predict(m, pos, &s.State); err != nil {
		return err
	}
	m.TVT(pos, s.Pi)
	return nil
}

// Initialize runs the diffuse recursion from position 0 until the diffuse part is
// resolved. It returns the first position to be processed by the ordinary filter;
// s is then the (non-diffuse) forecast state at that position.
func (di *DurbinKoopmanInitializer) Initialize(m Model, data Data, s *DiffuseState, res *FilteringResults, acc *LikelihoodAccumulator) (int, error) {
	norm0 := frobenius(s.Pi)
	if norm0 == 0 {
		if res != nil {
			res.closeDiffuse(-1)
		}
		return 0, nil
	}
	pe := NewDiffusePredictionError(s.Dim())
	for t := 0; t < data.Len(); t++ {
		if res != nil {
			res.saveForecast(t, &s.State)
		}
		if err := di.Error(m, t, data, s, pe); err != nil {
			return -1, err
		}
		if res != nil {
			res.saveDiffuse(t, s.Pi, pe)
		}
		if err := di.Update(t, s, pe); err != nil {
			return -1, err
		}
		if res != nil {
			res.saveError(t, &pe.PredictionError)
			res.saveFiltered(t, &s.State)
		}
		if acc != nil && !pe.Missing {
			if pe.IsDiffuse() {
				acc.AddDiffuse(pe.Fi)
			} else {
				acc.Add(pe.E, pe.F)
			}
		}
		if err := di.Predict(m, t, s); err != nil {
			return -1, err
		}
		if frobenius(s.Pi) <= di.DiffuseTolerance*norm0 {
			s.Pi.Zero()
			if res != nil {
				res.closeDiffuse(t)
			}
			if di.ordinary.Logger != nil {
				di.ordinary.Logger.WithField("pos", t).Debug("diffuse part resolved")
			}
			return t + 1, nil
		}
	}
	if di.ordinary.Logger != nil {
		di.ordinary.Logger.WithFields(logrus.Fields{"n": data.Len(), "norm": frobenius(s.Pi) / norm0}).Warn("diffuse part not resolved")
	}
	return -1, errors.Wrapf(ErrDiffuseResolution, "relative norm of Pinf is %g after %d observations", frobenius(s.Pi)/norm0, data.Len())
}
