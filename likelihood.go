package ssf

import (
	"fmt"
	"math"
)

var log2π = math.Log(2 * math.Pi)

// DegreesOfFreedom selects how the diffuse dimension enters the number of effective
// observations of the likelihood. The zero value is not a valid convention.
type DegreesOfFreedom uint8

const (
	// DFCorrected uses m = n - nd.
	DFCorrected DegreesOfFreedom = iota + 1
	// DFLegacy uses m = n, as older releases of the procedures did.
	DFLegacy
)

func (df DegreesOfFreedom) String() string {
	switch df {
	case DFCorrected:
		return "corrected"
	case DFLegacy:
		return "legacy"
	default:
		return "unset"
	}
}

// LikelihoodAccumulator is the running prediction-error decomposition of a run.
type LikelihoodAccumulator struct {
	n, nd         int
	ssq           float64
	logdet        float64
	diffuseLogdet float64
	keep          bool
	res           []float64
}

// NewLikelihoodAccumulator returns an empty accumulator for a model with nd diffuse
// directions. When keepResiduals is set, the standardized errors are retained.
func NewLikelihoodAccumulator(nd int, keepResiduals bool) *LikelihoodAccumulator {
	return &LikelihoodAccumulator{nd: nd, keep: keepResiduals}
}

// Add adds an ordinary prediction error. It returns false when the error is not
// informative (vanishing variance), in which case nothing is accumulated.
func (acc *LikelihoodAccumulator) Add(e, f float64) bool {
	return acc.add(e, f, acc.keep)
}

// add accumulates (e, f); the standardized error is retained only when keep is set.
func (acc *LikelihoodAccumulator) add(e, f float64, keep bool) bool {
	if f <= 0 || math.IsNaN(e) {
		return false
	}
	acc.n++
	acc.ssq += e * e / f
	acc.logdet += math.Log(f)
	if keep {
		acc.res = append(acc.res, e/math.Sqrt(f))
	}
	return true
}

// AddDiffuse adds the contribution of an observation of the diffuse phase.
func (acc *LikelihoodAccumulator) AddDiffuse(fi float64) {
	if fi <= 0 {
		return
	}
	acc.n++
	acc.diffuseLogdet += math.Log(fi)
}

// AddDiffuseCorrection adds a log-determinant to the diffuse correction without
// counting any observation. It is used by the augmented initializer.
func (acc *LikelihoodAccumulator) AddDiffuseCorrection(logdet float64) {
	acc.diffuseLogdet += logdet
}

// AdjustSsq subtracts a sum of squares that has been explained by the diffuse part.
func (acc *LikelihoodAccumulator) AdjustSsq(delta float64) {
	acc.ssq -= delta
	if acc.ssq < 0 {
		acc.ssq = 0
	}
}

// N returns the number of informative observations accumulated so far.
func (acc *LikelihoodAccumulator) N() int {
	return acc.n
}

// Likelihood builds the likelihood from the current content of the accumulator.
func (acc *LikelihoodAccumulator) Likelihood(df DegreesOfFreedom, concentrated bool) Likelihood {
	l := Likelihood{
		n:             acc.n,
		nd:            acc.nd,
		ssq:           acc.ssq,
		logdet:        acc.logdet,
		diffuseLogdet: acc.diffuseLogdet,
		df:            df,
		concentrated:  concentrated,
		valid:         true,
	}
	if acc.keep {
		l.res = append([]float64(nil), acc.res...)
	}
	l.ll = l.compute()
	if math.IsNaN(l.ll) || math.IsInf(l.ll, 0) {
		// the accumulated quantities stay available for inspection
		l.ll = math.Inf(-1)
		l.valid = false
	}
	return l
}

// Likelihood is the Gaussian log-likelihood of a series, expressed through its
// prediction-error decomposition.
type Likelihood struct {
	n, nd         int
	ssq           float64
	logdet        float64
	diffuseLogdet float64
	ll            float64
	res           []float64
	df            DegreesOfFreedom
	concentrated  bool
	valid         bool
}

// Invalid returns the likelihood of an inadmissible model.
func Invalid() Likelihood {
	return Likelihood{ll: math.Inf(-1), ssq: nan}
}

// Valid tells whether the likelihood could be computed.
func (l Likelihood) Valid() bool {
	return l.valid
}

// M returns the effective number of observations.
func (l Likelihood) M() int {
	if l.df == DFLegacy {
		return l.n
	}
	return l.n - l.nd
}

// N returns the number of informative observations, diffuse ones included.
func (l Likelihood) N() int {
	return l.n
}

// D returns the number of diffuse directions.
func (l Likelihood) D() int {
	return l.nd
}

// Ssq returns the sum of the squared standardized prediction errors.
func (l Likelihood) Ssq() float64 {
	return l.ssq
}

// LogDeterminant returns the sum of log f(t) over the ordinary steps.
func (l Likelihood) LogDeterminant() float64 {
	return l.logdet
}

// DiffuseCorrection returns the sum of log fi(t) over the diffuse steps.
func (l Likelihood) DiffuseCorrection() float64 {
	return l.diffuseLogdet
}

// Residuals returns the standardized prediction errors, if they were retained.
func (l Likelihood) Residuals() []float64 {
	return l.res
}

// LogLikelihood returns the log-likelihood, or -Inf for an invalid likelihood.
func (l Likelihood) LogLikelihood() float64 {
	return l.ll
}

// Sigma2 returns the maximum likelihood estimate of the scaling factor of the variances.
func (l Likelihood) Sigma2() float64 {
	m := l.M()
	if m <= 0 {
		return nan
	}
	return l.ssq / float64(m)
}

// Rescale returns the likelihood of the original series when the processed one was
// pre-multiplied by k.
func (l Likelihood) Rescale(k float64) Likelihood {
	if !l.valid || k == 1 || k <= 0 {
		return l
	}
	r := l
	r.ssq /= k * k
	r.ll += float64(l.M()) * math.Log(k)
	if l.res != nil {
		r.res = make([]float64, len(l.res))
		for i, e := range l.res {
			r.res[i] = e / k
		}
	}
	return r
}

// AIC returns the Akaike information criterion for np estimated hyper-parameters.
func (l Likelihood) AIC(np int) float64 {
	return -2*l.ll + 2*float64(np)
}

// AICC returns the corrected Akaike information criterion.
func (l Likelihood) AICC(np int) float64 {
	m := float64(l.M())
	k := float64(np)
	if m-k-1 <= 0 {
		return math.Inf(1)
	}
	return l.AIC(np) + 2*k*(k+1)/(m-k-1)
}

// BIC returns the Bayesian information criterion.
func (l Likelihood) BIC(np int) float64 {
	return -2*l.ll + float64(np)*math.Log(float64(l.M()))
}

func (l Likelihood) compute() float64 {
	m := float64(l.M())
	if m <= 0 {
		return -0.5 * (l.logdet + l.diffuseLogdet)
	}
	if l.concentrated {
		if l.ssq <= 0 {
			return nan
		}
		return -0.5 * (m*log2π + m*(1+math.Log(l.ssq/m)) + l.logdet + l.diffuseLogdet)
	}
	return -0.5 * (m*log2π + l.ssq + l.logdet + l.diffuseLogdet)
}

func (l Likelihood) String() string {
	if !l.valid {
		return "Likelihood{invalid}"
	}
	return fmt.Sprintf("Likelihood{ll=%g n=%d nd=%d ssq=%g logdet=%g dlogdet=%g df=%s}", l.ll, l.n, l.nd, l.ssq, l.logdet, l.diffuseLogdet, l.df)
}
