package ssf

import (
	"github.com/sirupsen/logrus"
)

// OrdinaryFilter is the Kalman recursion used once the initial state is fully
// specified. The recursion follows the forecast form: the state stored at position t is
// a(t|t-1), P(t|t-1).
type OrdinaryFilter struct {
	// Tolerance is the value below which a prediction error variance is set to 0.
	Tolerance float64
	Logger    logrus.FieldLogger
}

// NewOrdinaryFilter returns an ordinary filter configured from opts.
func NewOrdinaryFilter(opts Options) *OrdinaryFilter {
	return &OrdinaryFilter{Tolerance: opts.Tolerance, Logger: opts.Logger}
}

// Error computes the prediction error of the observation at pos from a forecast state.
func (kf *OrdinaryFilter) Error(m Model, pos int, data Data, s *State, pe *PredictionError) error {
	if err := s.expect(Forecast, "prediction error"); err != nil {
		return err
	}
	m.ZM(pos, s.P, pe.M)
	f := m.ZX(pos, pe.M)
	if m.HasErrors() {
		f += m.ErrorVariance(pos)
	}
	if f < kf.Tolerance {
		f = 0
	}
	pe.F = f
	if data.IsMissing(pos) {
		pe.setMissing()
		return nil
	}
	pe.Missing = false
	pe.E = data.At(pos) - m.ZX(pos, s.A)
	return nil
}

// Update conditions the state on the observation whose prediction error is pe.
// Missing observations and degenerate errors leave the state unchanged.
func (kf *OrdinaryFilter) Update(pos int, s *State, pe *PredictionError) error {
	if err := s.expect(Forecast, "update"); err != nil {
		return err
	}
	s.Phase = Concurrent
	if pe.Missing {
		return nil
	}
	if pe.F == 0 {
		if kf.Logger != nil {
			kf.Logger.WithFields(logrus.Fields{"pos": pos, "e": pe.E}).Debug("degenerate prediction error")
		}
		return nil
	}
	s.A.AddScaledVec(s.A, pe.E/pe.F, pe.M)
	s.P.SymRankOne(s.P, -1/pe.F, pe.M)
	return nil
}

// Predict moves a concurrent state at pos to the forecast state at pos+1.
func (kf *OrdinaryFilter) Predict(m Model, pos int, s *State) error {
	if err := s.expect(Concurrent, "prediction"); err != nil {
		return err
	}
	m.TX(pos, s.A)
	m.TVT(pos, s.P)
	m.AddV(pos, s.P)
	s.Phase = Forecast
	return nil
}

// Process runs the recursion from the forecast state s at position start to the end of
// the data. Intermediate quantities are saved in res and the likelihood terms added to
// acc; both may be nil. On return, s is the forecast state following the last position.
func (kf *OrdinaryFilter) Process(m Model, data Data, start int, s *State, res *FilteringResults, acc *LikelihoodAccumulator) error {
	pe := NewPredictionError(s.Dim())
	for t := start; t < data.Len(); t++ {
		if res != nil {
			res.saveForecast(t, s)
		}
		if err := kf.Error(m, t, data, s, pe); err != nil {
			return err
		}
		if err := kf.Update(t, s, pe); err != nil {
			return err
		}
		if res != nil {
			res.saveError(t, pe)
			res.saveFiltered(t, s)
		}
		if acc != nil && !pe.Missing {
			acc.Add(pe.E, pe.F)
		}
		if err := kf.Predict(m, t, s); err != nil {
			return err
		}
	}
	if res != nil {
		res.last = s.Clone()
	}
	return nil
}
