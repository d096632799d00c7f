package ssf

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Diagnostics summarizes the standardized prediction errors of a forward pass. For a
// correctly specified model they are independent N(0, 1) variables.
type Diagnostics struct {
	N        int     // number of standardized errors
	Mean     float64 // mean of the standardized errors
	StdDev   float64
	NIS      float64 // mean normalized innovation squared, expected to be 1
	LjungBox float64 // Ljung-Box statistic
	Lags     int
	PValue   float64 // p-value of the Ljung-Box statistic
}

// NewDiagnostics computes the diagnostics of the standardized errors of res, using the
// given number of autocorrelation lags for the Ljung-Box test.
func NewDiagnostics(res *FilteringResults, lags int) (Diagnostics, error) {
	return ResidualDiagnostics(res.StandardizedErrors(), lags)
}

// ResidualDiagnostics computes the diagnostics of a sequence of standardized errors.
// NaN values are skipped.
func ResidualDiagnostics(res []float64, lags int) (Diagnostics, error) {
	x := make([]float64, 0, len(res))
	for _, v := range res {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	n := len(x)
	if lags <= 0 || n <= lags+1 {
		return Diagnostics{}, errors.Errorf("%d residuals are not enough for %d lags", n, lags)
	}
	d := Diagnostics{N: n, Lags: lags}
	d.Mean, d.StdDev = stat.MeanStdDev(x, nil)
	d.NIS = floats.Dot(x, x) / float64(n)
	d.LjungBox = LjungBox(x, lags)
	d.PValue = distuv.ChiSquared{K: float64(lags)}.Survival(d.LjungBox)
	return d, nil
}

// LjungBox returns n (n+2) Σ ρ(k)² / (n-k) for k = 1..lags, ρ(k) being the sample
// autocorrelation of x at lag k.
func LjungBox(x []float64, lags int) float64 {
	n := len(x)
	mean := stat.Mean(x, nil)
	c := make([]float64, n)
	copy(c, x)
	floats.AddConst(-mean, c)
	c0 := floats.Dot(c, c)
	if c0 == 0 {
		return 0
	}
	q := 0.0
	for k := 1; k <= lags; k++ {
		rho := floats.Dot(c[k:], c[:n-k]) / c0
		q += rho * rho / float64(n-k)
	}
	return float64(n) * float64(n+2) * q
}
