package ssf

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestResidualDiagnostics(t *testing.T) {
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(1, 2)}
	x := make([]float64, 500)
	for i := range x {
		x[i] = noise.Rand()
	}
	x[10] = math.NaN()

	d, err := ResidualDiagnostics(x, 12)
	require.NoError(t, err)
	assert.Equal(t, 499, d.N)
	assert.InDelta(t, 0, d.Mean, 0.2)
	assert.InDelta(t, 1, d.StdDev, 0.2)
	assert.InDelta(t, 1, d.NIS, 0.2)
	assert.True(t, d.PValue > 0.001, "white noise rejected: %+v", d)

	// a random walk is strongly autocorrelated
	for i := 1; i < len(x); i++ {
		if math.IsNaN(x[i]) {
			x[i] = 0
		}
		x[i] += x[i-1]
	}
	d, err = ResidualDiagnostics(x, 12)
	require.NoError(t, err)
	assert.True(t, d.PValue < 1e-6, "random walk accepted: %+v", d)

	_, err = ResidualDiagnostics(x[:5], 12)
	assert.Error(t, err)
	assert.Equal(t, 0.0, LjungBox([]float64{1, 1, 1, 1}, 2))
}
