package ssf_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ssf "github.com/palatej/jdemetra-core2-sub000"
	"github.com/palatej/jdemetra-core2-sub000/models"
)

var nan = math.NaN()

func newEngine(t *testing.T, setup func(*ssf.Options)) *ssf.Engine {
	t.Helper()
	opts := ssf.DefaultOptions()
	if setup != nil {
		setup(&opts)
	}
	eng, err := ssf.NewEngine(opts)
	require.NoError(t, err)
	return eng
}

func bsm(t *testing.T) ssf.Model {
	t.Helper()
	m, err := models.NewComposite(0.5,
		models.NewLocalLinearTrend(models.LocalLinearTrendConfig{LevelVariance: 0.2, SlopeVariance: 0.01}),
		models.NewSeasonal(models.SeasonalConfig{Period: 4, InnovationVariance: 0.05}),
	)
	require.NoError(t, err)
	return m
}

func TestLocalLevelExactStart(t *testing.T) {
	m := models.NewLocalLevel(models.LocalLevelConfig{LevelVariance: 0.1, ObservationVariance: 1})
	y := ssf.Series{10, nan, 12, 11, 13}
	res, err := newEngine(t, nil).Filter(m, y)
	require.NoError(t, err)

	assert.Equal(t, 0, res.CollapsePosition())
	assert.Equal(t, 1, res.EndDiffusePosition())
	assert.Equal(t, 10.0, res.FilteredMean(0).AtVec(0))
	assert.InDelta(t, 1.0, res.FilteredVariance(0).At(0, 0), 1e-12)
	assert.True(t, res.DiffuseError(0).IsDiffuse())
	assert.True(t, res.Error(1).Missing)

	// after the first observation, the model is a random walk started at N(10, 1.1)
	a, p := 10.0, 1.1
	ssq, logdet := 0.0, 0.0
	for k := 1; k < len(y); k++ {
		if !math.IsNaN(y[k]) {
			e, f := y[k]-a, p+1
			ssq += e * e / f
			logdet += math.Log(f)
			a += p / f * e
			p -= p * p / f
		}
		p += 0.1
	}
	lik := res.Likelihood()
	require.True(t, lik.Valid())
	assert.Equal(t, 4, lik.N())
	assert.Equal(t, 3, lik.M())
	assert.InDelta(t, ssq, lik.Ssq(), 1e-12)
	assert.InDelta(t, logdet, lik.LogDeterminant(), 1e-12)
	assert.InDelta(t, 0.0, lik.DiffuseCorrection(), 1e-12)
	m3 := 3.0
	ll := -0.5 * (m3*math.Log(2*math.Pi) + m3*(1+math.Log(ssq/m3)) + logdet)
	assert.InDelta(t, ll, lik.LogLikelihood(), 1e-10)
}

func TestConstantSeries(t *testing.T) {
	m := models.NewLocalLevel(models.LocalLevelConfig{})
	y := ssf.Series{5, 5, 5, 5}
	res, err := newEngine(t, nil).Filter(m, y)
	require.NoError(t, err)

	lik := res.Likelihood()
	require.True(t, lik.Valid())
	assert.Equal(t, 0.0, lik.Ssq())
	assert.False(t, math.IsNaN(lik.LogLikelihood()))
	for k := 1; k < len(y); k++ {
		assert.True(t, res.Error(k).IsDegenerate(), "position %d", k)
	}
	assert.Equal(t, 1, lik.N())

	legacy := func(concentrated bool) ssf.Likelihood {
		res, err := newEngine(t, func(o *ssf.Options) {
			o.DegreesOfFreedom = ssf.DFLegacy
			o.Concentrated = concentrated
		}).Filter(m, y)
		require.NoError(t, err)
		return res.Likelihood()
	}
	// m = n = 1 and ssq = 0: log(ssq/m) is undefined
	lik = legacy(true)
	assert.False(t, lik.Valid())
	assert.Equal(t, 0.0, lik.Ssq())
	assert.Equal(t, 1, lik.N())
	assert.True(t, math.IsInf(lik.LogLikelihood(), -1))

	lik = legacy(false)
	require.True(t, lik.Valid())
	assert.Equal(t, 0.0, lik.Ssq())
	assert.InDelta(t, -0.5*(math.Log(2*math.Pi)+lik.DiffuseCorrection()), lik.LogLikelihood(), 1e-12)
}

func TestStationaryModel(t *testing.T) {
	m := models.NewAR1(models.AR1Config{Phi: 0.7, InnovationVariance: 1, ObservationVariance: 0.3})
	sim, err := ssf.Simulate(m, 60, 42)
	require.NoError(t, err)

	eng := newEngine(t, nil)
	res, err := eng.Filter(m, sim.Y)
	require.NoError(t, err)
	assert.Equal(t, -1, res.CollapsePosition())
	assert.Equal(t, 0, res.EndDiffusePosition())

	acc := ssf.NewLikelihoodAccumulator(0, false)
	s := ssf.InitialState(m)
	require.NoError(t, ssf.NewOrdinaryFilter(eng.Options()).Process(m, sim.Y, 0, &s.State, nil, acc))
	direct := acc.Likelihood(ssf.DFCorrected, true)
	assert.InDelta(t, direct.LogLikelihood(), res.Likelihood().LogLikelihood(), 1e-9)
	assert.True(t, mat.EqualApprox(s.A, res.Last().A, 1e-12))
}

func TestAllMissing(t *testing.T) {
	m := models.NewAR1(models.AR1Config{Phi: 0.5, InnovationVariance: 1, Mean: 2})
	y := ssf.Series{nan, nan, nan}
	res, err := newEngine(t, nil).Filter(m, y)
	require.NoError(t, err)
	for k := 0; k < y.Len(); k++ {
		assert.True(t, res.Error(k).Missing)
		assert.True(t, mat.Equal(res.ForecastMean(k), res.FilteredMean(k)))
	}
	assert.InDelta(t, 1.0, res.FilteredMean(1).AtVec(0), 1e-12)
	lik := res.Likelihood()
	assert.True(t, lik.Valid())
	assert.Equal(t, 0, lik.N())

	// the covariance follows the pure prediction P <- T P Tᵗ + V
	T := mat.NewDense(2, 2, []float64{1, 1, 0, 0.5})
	V := mat.NewSymDense(2, []float64{0.3, 0, 0, 0.1})
	d, err := models.NewDense(models.DenseConfig{
		T:   T,
		V:   V,
		Z:   mat.NewVecDense(2, []float64{1, 0}),
		H:   1,
		A0:  mat.NewVecDense(2, []float64{1, 2}),
		Pf0: mat.NewSymDense(2, []float64{1, 0.2, 0.2, 2}),
	})
	require.NoError(t, err)
	y4 := ssf.Series{nan, nan, nan, nan}
	res, err = newEngine(t, nil).Filter(d, y4)
	require.NoError(t, err)
	a := mat.NewVecDense(2, []float64{1, 2})
	p := mat.NewSymDense(2, []float64{1, 0.2, 0.2, 2})
	for k := 0; k < y4.Len(); k++ {
		assert.True(t, mat.EqualApprox(a, res.ForecastMean(k), 1e-12), "mean at %d", k)
		assert.True(t, mat.EqualApprox(p, res.ForecastVariance(k), 1e-12), "variance at %d", k)
		assert.True(t, mat.Equal(res.ForecastVariance(k), res.FilteredVariance(k)))
		a.MulVec(T, a)
		var tp, tpt mat.Dense
		tp.Mul(T, p)
		tpt.Mul(&tp, T.T())
		tpt.Add(&tpt, V)
		p, err = ssf.AsSymDense(&tpt)
		require.NoError(t, err)
	}
	assert.True(t, mat.EqualApprox(p, res.Last().P, 1e-12))
	assert.Equal(t, 0, res.Likelihood().N())

	// a diffuse model cannot be identified without observations
	_, err = newEngine(t, nil).Filter(models.NewLocalLevel(models.LocalLevelConfig{LevelVariance: 1}), y)
	assert.True(t, errors.Is(err, ssf.ErrDiffuseResolution))
}

func TestFilterErrors(t *testing.T) {
	eng := newEngine(t, nil)
	_, err := eng.Filter(nil, ssf.Series{1})
	assert.True(t, errors.Is(err, ssf.ErrStructural))
	_, err = eng.Filter(models.NewLocalLevel(models.LocalLevelConfig{}), nil)
	assert.Error(t, err)
	_, err = eng.Forecast(models.NewLocalLevel(models.LocalLevelConfig{}), nil, 2)
	assert.Error(t, err)
	assert.False(t, eng.Likelihood(models.NewAR1(models.AR1Config{Phi: 1.2}), ssf.Series{1, 2}).Valid())
}

func TestDiffuseVarianceVanishes(t *testing.T) {
	m := bsm(t)
	sim, err := ssf.Simulate(m, 40, 7)
	require.NoError(t, err)
	res, err := newEngine(t, nil).Filter(m, sim.Y)
	require.NoError(t, err)

	end := res.EndDiffusePosition()
	require.True(t, end > 0 && end < sim.Y.Len())
	// 2 trend + 3 seasonal directions, one per observation
	assert.Equal(t, 4, res.CollapsePosition())
	assert.Nil(t, res.DiffuseVariance(end))
	assert.NotNil(t, res.DiffuseVariance(0))
	assert.Equal(t, 5, res.Likelihood().D())
	assert.Equal(t, sim.Y.Len()-5, res.Likelihood().M())

	// step the initializer by hand: the relative norm of Pinf crosses the tolerance
	// exactly at the collapse
	opts := ssf.DefaultOptions()
	di := ssf.NewDurbinKoopmanInitializer(opts)
	s := ssf.InitialState(m)
	norm0 := mat.Norm(s.Pi, 2)
	require.True(t, norm0 > 0)
	pe := ssf.NewDiffusePredictionError(s.Dim())
	for k := 0; k <= res.CollapsePosition(); k++ {
		require.NoError(t, di.Error(m, k, sim.Y, s, pe))
		require.NoError(t, di.Update(k, s, pe))
		require.NoError(t, di.Predict(m, k, s))
		rel := mat.Norm(s.Pi, 2) / norm0
		if k < res.CollapsePosition() {
			assert.True(t, rel > opts.DiffuseTolerance, "relative norm %g at %d", rel, k)
		} else {
			assert.True(t, rel <= opts.DiffuseTolerance, "relative norm %g at %d", rel, k)
		}
	}
	assert.True(t, mat.EqualApprox(s.A, res.ForecastMean(end), 1e-9))
	assert.True(t, mat.EqualApprox(s.P, res.ForecastVariance(end), 1e-9))
}

func TestArrayFilter(t *testing.T) {
	m := bsm(t)
	sim, err := ssf.Simulate(m, 50, 11)
	require.NoError(t, err)
	sim.Y[17] = nan

	cres, err := newEngine(t, nil).Filter(m, sim.Y)
	require.NoError(t, err)
	ares, err := newEngine(t, func(o *ssf.Options) { o.Strategy = ssf.Array }).Filter(m, sim.Y)
	require.NoError(t, err)

	assert.InDelta(t, cres.Likelihood().LogLikelihood(), ares.Likelihood().LogLikelihood(), 1e-8)
	for k := 0; k < sim.Y.Len(); k++ {
		assert.True(t, mat.EqualApprox(cres.FilteredMean(k), ares.FilteredMean(k), 1e-8), "mean at %d", k)
		assert.True(t, mat.EqualApprox(cres.ForecastVariance(k), ares.ForecastVariance(k), 1e-8), "variance at %d", k)
	}
}

func TestAugmentedInitializer(t *testing.T) {
	m := bsm(t)
	sim, err := ssf.Simulate(m, 50, 3)
	require.NoError(t, err)
	sim.Y[2] = nan

	for _, concentrated := range []bool{true, false} {
		dk := newEngine(t, func(o *ssf.Options) { o.Concentrated = concentrated })
		aug := newEngine(t, func(o *ssf.Options) {
			o.Concentrated = concentrated
			o.Initializer = ssf.Augmented
		})
		ldk := dk.Likelihood(m, sim.Y)
		laug := aug.Likelihood(m, sim.Y)
		require.True(t, ldk.Valid())
		require.True(t, laug.Valid())
		assert.InDelta(t, ldk.LogLikelihood(), laug.LogLikelihood(), 1e-6)
		assert.InDelta(t, ldk.Ssq(), laug.Ssq(), 1e-6)
		assert.Equal(t, ldk.M(), laug.M())
	}

	_, _, err = newEngine(t, func(o *ssf.Options) { o.Initializer = ssf.Augmented }).Smooth(m, sim.Y)
	assert.True(t, errors.Is(err, ssf.ErrUnsupported))
}

func TestSmoother(t *testing.T) {
	m := bsm(t)
	sim, err := ssf.Simulate(m, 48, 5)
	require.NoError(t, err)
	sim.Y[30] = nan

	sr, res, err := newEngine(t, nil).Smooth(m, sim.Y)
	require.NoError(t, err)
	require.Equal(t, sim.Y.Len(), sr.Len())

	last := sim.Y.Len() - 1
	assert.True(t, mat.EqualApprox(res.FilteredMean(last), sr.Mean(last), 1e-9))
	assert.True(t, mat.EqualApprox(res.FilteredVariance(last), sr.Variance(last), 1e-9))
	assert.Equal(t, ssf.Smoothed, sr.State(0).Phase)

	for k := 0; k < sr.Len(); k++ {
		v := sr.Variance(k)
		for i := 0; i < v.SymmetricDim(); i++ {
			assert.True(t, v.At(i, i) > -1e-9, "variance (%d,%d) at %d", i, i, k)
			if k >= res.EndDiffusePosition() {
				assert.True(t, v.At(i, i) <= res.ForecastVariance(k).At(i, i)+1e-9, "variance (%d,%d) at %d", i, i, k)
			}
		}
	}

	// the measurement of a noiseless model is reproduced exactly
	ll := models.NewLocalLevel(models.LocalLevelConfig{LevelVariance: 1})
	y := ssf.Series{1, 3, nan, 2, 4}
	sr, _, err = newEngine(t, nil).Smooth(ll, y)
	require.NoError(t, err)
	for k, v := range y {
		if !math.IsNaN(v) {
			assert.InDelta(t, v, sr.Mean(k).AtVec(0), 1e-9)
			assert.InDelta(t, 0.0, sr.Variance(k).At(0, 0), 1e-9)
		}
	}
	assert.InDelta(t, 2.5, sr.Mean(2).AtVec(0), 1e-9)
	assert.InDelta(t, 0.5, sr.Variance(2).At(0, 0), 1e-9)
}

// largeVariance returns the model m with its diffuse directions replaced by a
// proper initial variance P*0 + κ B Bᵗ.
func largeVariance(t *testing.T, m ssf.Model, κ float64) ssf.Model {
	t.Helper()
	require.True(t, m.IsTimeInvariant())
	dim, nd := m.StateDim(), m.NonStationaryDim()
	T := mat.NewDense(dim, dim, nil)
	Z := mat.NewVecDense(dim, nil)
	for j := 0; j < dim; j++ {
		x := mat.NewVecDense(dim, nil)
		x.SetVec(j, 1)
		Z.SetVec(j, m.ZX(0, x))
		m.TX(0, x)
		T.SetCol(j, x.RawVector().Data)
	}
	V := mat.NewSymDense(dim, nil)
	m.AddV(0, V)
	a0 := mat.NewVecDense(dim, nil)
	m.A0(a0)
	p0 := mat.NewSymDense(dim, nil)
	m.Pf0(p0)
	B := mat.NewDense(dim, nd, nil)
	m.DiffuseConstraints(B)
	var bb mat.SymDense
	bb.SymOuterK(κ, B)
	p0.AddSym(p0, &bb)
	d, err := models.NewDense(models.DenseConfig{T: T, V: V, Z: Z, H: m.ErrorVariance(0), A0: a0, Pf0: p0})
	require.NoError(t, err)
	return d
}

func TestDiffuseSmootherLimit(t *testing.T) {
	m := bsm(t)
	sim, err := ssf.Simulate(m, 30, 13)
	require.NoError(t, err)
	sim.Y[2] = nan

	sr, res, err := newEngine(t, nil).Smooth(m, sim.Y)
	require.NoError(t, err)
	require.True(t, res.EndDiffusePosition() > 1)

	// the exact diffuse smoother is the limit κ -> ∞ of the ordinary one
	ksr, kres, err := newEngine(t, nil).Smooth(largeVariance(t, m, 1e4), sim.Y)
	require.NoError(t, err)
	assert.Equal(t, -1, kres.CollapsePosition())
	for k := 0; k < sr.Len(); k++ {
		assert.True(t, mat.EqualApprox(sr.Mean(k), ksr.Mean(k), 1e-3), "mean at %d", k)
		assert.True(t, mat.EqualApprox(sr.Variance(k), ksr.Variance(k), 1e-2), "variance at %d", k)
	}
}

func TestSmootherWithoutVariances(t *testing.T) {
	m := models.NewLocalLevel(models.LocalLevelConfig{LevelVariance: 0.1, ObservationVariance: 1})
	eng := newEngine(t, func(o *ssf.Options) { o.SmoothVariances = false })
	sr, _, err := eng.Smooth(m, ssf.Series{10, nan, 12, 11, 13})
	require.NoError(t, err)
	assert.Nil(t, sr.Variance(0))
	assert.Len(t, sr.Component(0), 5)

	_, err = ssf.NewSmoother(eng.Options()).Process(m, ssf.NewFilteringResults(1, 5))
	assert.True(t, errors.Is(err, ssf.ErrPhase))
}

func TestForecast(t *testing.T) {
	m := models.NewLocalLevel(models.LocalLevelConfig{LevelVariance: 0.1, ObservationVariance: 1})
	y := ssf.Series{10, nan, 12, 11, 13}
	eng := newEngine(t, nil)
	fcasts, err := eng.Forecast(m, y, 3)
	require.NoError(t, err)
	require.Len(t, fcasts, 3)

	res, err := eng.Filter(m, y)
	require.NoError(t, err)
	last := res.Last()
	for h, f := range fcasts {
		assert.InDelta(t, last.A.AtVec(0), f.Mean, 1e-12)
		assert.InDelta(t, last.P.At(0, 0)+0.1*float64(h)+1, f.Variance, 1e-12)
	}
	assert.True(t, fcasts[2].StdDev() > fcasts[0].StdDev())

	_, err = eng.Forecast(m, y, 0)
	assert.Error(t, err)
}

func TestStandardizedErrors(t *testing.T) {
	m := models.NewLocalLevel(models.LocalLevelConfig{LevelVariance: 0.1, ObservationVariance: 1})
	y := ssf.Series{10, nan, 12, 11, 13}
	eng := newEngine(t, func(o *ssf.Options) { o.KeepResiduals = true })
	res, err := eng.Filter(m, y)
	require.NoError(t, err)

	std := res.StandardizedErrors()
	require.Len(t, std, y.Len())
	assert.True(t, math.IsNaN(std[0]))
	assert.True(t, math.IsNaN(std[1]))
	assert.Equal(t, []float64{std[2], std[3], std[4]}, res.Likelihood().Residuals())

	// the first observation does not see the diffuse slope (fi = 0): it is an ordinary
	// innovation of the diffuse phase
	d, err := models.NewDense(models.DenseConfig{
		T: mat.NewDense(2, 2, []float64{1, 1, 0, 1}),
		V: mat.NewSymDense(2, []float64{0.1, 0, 0, 0.01}),
		Z: mat.NewVecDense(2, []float64{1, 0}),
		H: 1,
		B: mat.NewDense(2, 1, []float64{0, 1}),
	})
	require.NoError(t, err)
	y = ssf.Series{1, 2, 4, 5, 7}
	res, err = eng.Filter(d, y)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CollapsePosition())
	assert.False(t, res.DiffuseError(0).IsDiffuse())
	assert.True(t, res.DiffuseError(1).IsDiffuse())
	std = res.StandardizedErrors()
	assert.InDelta(t, 1.0, std[0], 1e-12)
	assert.True(t, math.IsNaN(std[1]))
	assert.Equal(t, []float64{std[0], std[2], std[3], std[4]}, res.Likelihood().Residuals())

	// the augmented initializer keeps no residual before the collapse
	aug := newEngine(t, func(o *ssf.Options) {
		o.KeepResiduals = true
		o.Initializer = ssf.Augmented
	})
	res, err = aug.Filter(d, y)
	require.NoError(t, err)
	std = res.StandardizedErrors()
	var kept []float64
	for _, v := range std {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	require.Len(t, kept, y.Len()-res.EndDiffusePosition())
	assert.InDeltaSlice(t, kept, res.Likelihood().Residuals(), 1e-12)
}
