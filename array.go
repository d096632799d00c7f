package ssf

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ArrayFilter is a square root version of the ordinary filter. It propagates a factor L
// of P(t|t-1) = L Lᵗ by triangularizing the pre-array
//
//	[ √h   Z L   0 ]
//	[ 0    T L   S ]      (S Sᵗ = V)
//
// with an orthogonal transformation, which gives √f, the normalized gain and the next
// factor. The results buffer still receives P, M and f, computed from the factors.
type ArrayFilter struct {
	Tolerance float64
	Logger    logrus.FieldLogger

	sqrtV *mat.Dense
}

// NewArrayFilter returns an array filter configured from opts.
func NewArrayFilter(opts Options) *ArrayFilter {
	return &ArrayFilter{Tolerance: opts.Tolerance, Logger: opts.Logger}
}

// SquareRoot returns a matrix L such that L Lᵗ = s. Negative eigenvalues are treated as 0.
func SquareRoot(s mat.Symmetric) (*mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(s, true); !ok {
		return nil, errors.New("eigen decomposition failed")
	}
	vals := es.Values(nil)
	var l mat.Dense
	es.VectorsTo(&l)
	r, _ := l.Dims()
	for j, v := range vals {
		sv := math.Sqrt(math.Max(v, 0))
		for i := 0; i < r; i++ {
			l.Set(i, j, l.At(i, j)*sv)
		}
	}
	return &l, nil
}

func (kf *ArrayFilter) innovationFactor(m Model, pos, dim int) (*mat.Dense, error) {
	if kf.sqrtV != nil && m.IsTimeInvariant() {
		return kf.sqrtV, nil
	}
	v := mat.NewSymDense(dim, nil)
	m.AddV(pos, v)
	s, err := SquareRoot(v)
	if err != nil {
		return nil, errors.Wrapf(err, "square root of V(%d)", pos)
	}
	kf.sqrtV = s
	return s, nil
}

// Process runs the recursion from the forecast state s at position start to the end of
// the data, with the same contract as OrdinaryFilter.Process.
func (kf *ArrayFilter) Process(m Model, data Data, start int, s *State, res *FilteringResults, acc *LikelihoodAccumulator) error {
	if err := s.expect(Forecast, "array filter"); err != nil {
		return err
	}
	dim := s.Dim()
	kf.sqrtV = nil
	l, err := SquareRoot(s.P)
	if err != nil {
		return errors.Wrap(err, "square root of the initial variance")
	}
	pe := NewPredictionError(dim)
	zl := mat.NewVecDense(dim, nil)
	for t := start; t < data.Len(); t++ {
		if res != nil {
			res.saveForecast(t, s)
		}
		sv, err := kf.innovationFactor(m, t, dim)
		if err != nil {
			return err
		}
		// M = L (Z L)ᵗ, f = |Z L|² + h
		m.ZM(t, l, zl)
		pe.M.MulVec(l, zl)
		h := 0.0
		if m.HasErrors() {
			h = m.ErrorVariance(t)
		}
		pe.F = mat.Dot(zl, zl) + h
		if pe.F < kf.Tolerance {
			pe.F = 0
		}
		if data.IsMissing(t) {
			pe.setMissing()
		} else {
			pe.Missing = false
			pe.E = data.At(t) - m.ZX(t, s.A)
		}

		s.Phase = Concurrent
		informative := !pe.Missing && pe.F > 0
		if res != nil {
			res.saveError(t, pe)
			filtered := s.Clone()
			if informative {
				filtered.A.AddScaledVec(filtered.A, pe.E/pe.F, pe.M)
				filtered.P.SymRankOne(filtered.P, -1/pe.F, pe.M)
			}
			res.saveFiltered(t, filtered)
		}

		if informative {
			if acc != nil {
				acc.Add(pe.E, pe.F)
			}
			gain, err := kf.measurementStep(m, t, l, zl, sv, h)
			if err != nil {
				return err
			}
			m.TX(t, s.A)
			s.A.AddScaledVec(s.A, pe.E/math.Sqrt(pe.F), gain)
		} else {
			if !pe.Missing && kf.Logger != nil {
				kf.Logger.WithField("pos", t).Debug("degenerate prediction error")
			}
			kf.timeStep(m, t, l, sv)
			m.TX(t, s.A)
		}
		p := mat.NewSymDense(dim, nil)
		p.SymOuterK(1, l)
		s.P.CopySym(p)
		s.Phase = Forecast
	}
	if res != nil {
		res.last = s.Clone()
	}
	return nil
}

// measurementStep triangularizes the full pre-array. On return, l is the factor of
// P(t+1|t) and the normalized gain T M / √f is returned.
func (kf *ArrayFilter) measurementStep(m Model, pos int, l *mat.Dense, zl *mat.VecDense, sv *mat.Dense, h float64) (*mat.VecDense, error) {
	dim, _ := l.Dims()
	_, q := sv.Dims()
	// transposed pre-array: (1 + dim + q) x (1 + dim)
	x := mat.NewDense(1+dim+q, 1+dim, nil)
	x.Set(0, 0, math.Sqrt(math.Max(h, 0)))
	tl := mat.DenseCopyOf(l)
	applyCols(tl, func(c *mat.VecDense) { m.TX(pos, c) })
	for j := 0; j < dim; j++ {
		x.Set(1+j, 0, zl.AtVec(j))
		for i := 0; i < dim; i++ {
			x.Set(1+j, 1+i, tl.At(i, j))
		}
	}
	for j := 0; j < q; j++ {
		for i := 0; i < dim; i++ {
			x.Set(1+dim+j, 1+i, sv.At(i, j))
		}
	}
	var qr mat.QR
	qr.Factorize(x)
	var r mat.Dense
	qr.RTo(&r)

	row := mat.Row(nil, 0, &r)
	if row[0] < 0 {
		floats.Scale(-1, row)
	}
	if row[0] == 0 {
		return nil, errors.Errorf("null innovation factor at %d", pos)
	}
	gain := mat.NewVecDense(dim, append([]float64(nil), row[1:]...))
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			l.Set(i, j, r.At(1+j, 1+i))
		}
	}
	return gain, nil
}

// timeStep triangularizes [T L  S]; l becomes the factor of T P Tᵗ + V.
func (kf *ArrayFilter) timeStep(m Model, pos int, l *mat.Dense, sv *mat.Dense) {
	dim, _ := l.Dims()
	_, q := sv.Dims()
	x := mat.NewDense(dim+q, dim, nil)
	tl := mat.DenseCopyOf(l)
	applyCols(tl, func(c *mat.VecDense) { m.TX(pos, c) })
	for j := 0; j < dim; j++ {
		for i := 0; i < dim; i++ {
			x.Set(j, i, tl.At(i, j))
		}
	}
	for j := 0; j < q; j++ {
		for i := 0; i < dim; i++ {
			x.Set(dim+j, i, sv.At(i, j))
		}
	}
	var qr mat.QR
	qr.Factorize(x)
	var r mat.Dense
	qr.RTo(&r)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			l.Set(i, j, r.At(j, i))
		}
	}
}
