package ssf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FilteringResults buffers the outputs of a forward pass, position by position.
// Each position is written once by the filter and read afterwards by the smoother.
type FilteringResults struct {
	dim int
	n   int

	a, af   []*mat.VecDense // forecast and filtered means
	p, pf   []*mat.SymDense // forecast and filtered variances
	e, f    []float64
	m       []*mat.VecDense
	missing []bool

	// diffuse part, for t < endDiffuse
	pi []*mat.SymDense
	fi []float64
	mi []*mat.VecDense

	collapse   int
	endDiffuse int
	last       *State
	lik        Likelihood
}

// NewFilteringResults allocates the buffer for n positions of a state of dimension dim.
func NewFilteringResults(dim, n int) *FilteringResults {
	return &FilteringResults{
		dim:      dim,
		n:        n,
		a:        make([]*mat.VecDense, n),
		af:       make([]*mat.VecDense, n),
		p:        make([]*mat.SymDense, n),
		pf:       make([]*mat.SymDense, n),
		e:        make([]float64, n),
		f:        make([]float64, n),
		m:        make([]*mat.VecDense, n),
		missing:  make([]bool, n),
		collapse: -1,
	}
}

// Len returns the number of positions.
func (r *FilteringResults) Len() int {
	return r.n
}

// Dim returns the dimension of the state.
func (r *FilteringResults) Dim() int {
	return r.dim
}

// CollapsePosition returns the position at which the diffuse part vanished, or -1 for
// a model without diffuse part.
func (r *FilteringResults) CollapsePosition() int {
	return r.collapse
}

// EndDiffusePosition returns the first position processed by the ordinary filter.
func (r *FilteringResults) EndDiffusePosition() int {
	return r.endDiffuse
}

// Likelihood returns the likelihood accumulated during the forward pass.
func (r *FilteringResults) Likelihood() Likelihood {
	return r.lik
}

// ForecastMean returns a(t|t-1).
func (r *FilteringResults) ForecastMean(t int) mat.Vector {
	return r.a[t]
}

// ForecastVariance returns P(t|t-1).
func (r *FilteringResults) ForecastVariance(t int) mat.Symmetric {
	return r.p[t]
}

// FilteredMean returns a(t|t).
func (r *FilteringResults) FilteredMean(t int) mat.Vector {
	return r.af[t]
}

// FilteredVariance returns P(t|t).
func (r *FilteringResults) FilteredVariance(t int) mat.Symmetric {
	return r.pf[t]
}

// DiffuseVariance returns Pi(t|t-1) for a position of the diffuse phase, nil otherwise.
func (r *FilteringResults) DiffuseVariance(t int) mat.Symmetric {
	if t >= len(r.pi) {
		return nil
	}
	return r.pi[t]
}

// Error returns the prediction error at position t.
func (r *FilteringResults) Error(t int) PredictionError {
	return PredictionError{E: r.e[t], F: r.f[t], M: r.m[t], Missing: r.missing[t]}
}

// DiffuseError returns the diffuse prediction error at a position of the diffuse phase.
func (r *FilteringResults) DiffuseError(t int) DiffusePredictionError {
	dpe := DiffusePredictionError{PredictionError: r.Error(t)}
	if t < len(r.fi) {
		dpe.Fi = r.fi[t]
		dpe.Mi = r.mi[t]
	}
	return dpe
}

// Errors returns the prediction errors e(t); missing positions are NaN.
func (r *FilteringResults) Errors() []float64 {
	return append([]float64(nil), r.e...)
}

// Variances returns the variances f(t) of the prediction errors.
func (r *FilteringResults) Variances() []float64 {
	return append([]float64(nil), r.f...)
}

// StandardizedErrors returns e(t)/sqrt(f(t)). Positions of the diffuse phase are NaN,
// unless their observation carried no information on the diffuse part (fi = 0).
func (r *FilteringResults) StandardizedErrors() []float64 {
	res := make([]float64, r.n)
	for t := 0; t < r.n; t++ {
		if t < r.endDiffuse && (t >= len(r.fi) || r.fi[t] != 0) {
			res[t] = nan
			continue
		}
		pe := r.Error(t)
		res[t] = pe.Standardized()
	}
	return res
}

// Last returns the forecast state following the last position, a(n|n-1), P(n|n-1).
func (r *FilteringResults) Last() *State {
	return r.last
}

func (r *FilteringResults) saveForecast(t int, s *State) {
	if r.a[t] != nil {
		panic(fmt.Errorf("forecast state already saved at t=%d", t))
	}
	r.a[t] = mat.VecDenseCopyOf(s.A)
	r.p[t] = mat.NewSymDense(r.dim, nil)
	r.p[t].CopySym(s.P)
}

func (r *FilteringResults) saveFiltered(t int, s *State) {
	r.af[t] = mat.VecDenseCopyOf(s.A)
	r.pf[t] = mat.NewSymDense(r.dim, nil)
	r.pf[t].CopySym(s.P)
}

func (r *FilteringResults) saveError(t int, pe *PredictionError) {
	r.missing[t] = pe.Missing
	r.e[t] = pe.E
	r.f[t] = pe.F
	r.m[t] = mat.VecDenseCopyOf(pe.M)
}

func (r *FilteringResults) saveDiffuse(t int, pi mat.Symmetric, pe *DiffusePredictionError) {
	if t != len(r.pi) {
		panic(fmt.Errorf("diffuse results must be saved in order (t=%d, saved=%d)", t, len(r.pi)))
	}
	cpi := mat.NewSymDense(r.dim, nil)
	cpi.CopySym(pi)
	r.pi = append(r.pi, cpi)
	r.fi = append(r.fi, pe.Fi)
	r.mi = append(r.mi, mat.VecDenseCopyOf(pe.Mi))
}

func (r *FilteringResults) closeDiffuse(collapse int) {
	r.collapse = collapse
	r.endDiffuse = collapse + 1
}
