package ssf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssf "github.com/palatej/jdemetra-core2-sub000"
	"github.com/palatej/jdemetra-core2-sub000/models"
)

func TestSimulate(t *testing.T) {
	m := models.NewAR1(models.AR1Config{Phi: 0.9, InnovationVariance: 1})
	sim, err := ssf.Simulate(m, 200, 3)
	require.NoError(t, err)
	require.Equal(t, 200, sim.Y.Len())
	require.Len(t, sim.States, 200)
	// without measurement noise, the series is the state
	assert.Equal(t, []float64(sim.Y), sim.Component(0))

	again, err := ssf.Simulate(m, 200, 3)
	require.NoError(t, err)
	assert.Equal(t, sim.Y, again.Y)
	other, err := ssf.Simulate(m, 200, 4)
	require.NoError(t, err)
	assert.NotEqual(t, sim.Y, other.Y)

	_, err = ssf.Simulate(m, 0, 3)
	assert.Error(t, err)
	_, err = ssf.Simulate(models.NewAR1(models.AR1Config{Phi: 2}), 10, 3)
	assert.Error(t, err)
}

func TestSimulateDiagnostics(t *testing.T) {
	m := bsm(t)
	sim, err := ssf.Simulate(m, 400, 9)
	require.NoError(t, err)
	res, err := newEngine(t, nil).Filter(m, sim.Y)
	require.NoError(t, err)

	d, err := ssf.NewDiagnostics(res, 8)
	require.NoError(t, err)
	assert.Equal(t, 400-res.EndDiffusePosition(), d.N)
	assert.InDelta(t, 1, d.NIS, 0.25)
	assert.True(t, d.PValue > 0.001, "%+v", d)
}
