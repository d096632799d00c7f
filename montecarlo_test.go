package ssf_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssf "github.com/palatej/jdemetra-core2-sub000"
	"github.com/palatej/jdemetra-core2-sub000/models"
)

func TestMCRuns(t *testing.T) {
	m := models.NewLocalLinearTrend(models.LocalLinearTrendConfig{LevelVariance: 0.5, SlopeVariance: 0.05, ObservationVariance: 1})
	steps := 30
	runs, err := ssf.NewMonteCarloRuns(newEngine(t, nil), m, 20, steps, 1)
	require.NoError(t, err)
	require.Equal(t, 20, runs.Len())
	for r, run := range runs.Runs {
		assert.Equal(t, steps, run.Smoothed.Len(), "sample #%d", r)
		assert.True(t, run.Likelihood.Valid(), "sample #%d", r)
	}
	assert.Len(t, runs.LogLikelihoods(), 20)

	// same seeds, same draws
	again, err := ssf.NewMonteCarloRuns(newEngine(t, nil), m, 20, steps, 1)
	require.NoError(t, err)
	assert.Equal(t, runs.LogLikelihoods(), again.LogLikelihoods())

	mean := runs.Mean(steps / 2)
	dev := runs.StdDev(steps / 2)
	require.Len(t, mean, 2)
	require.Len(t, dev, 2)
	assert.True(t, dev[0] > 0)

	nees := runs.NEES()
	require.Len(t, nees, steps)
	// the expected value is the dimension of the state
	assert.InDelta(t, 2, nees[steps/2], 1.5)

	files := runs.AsCSV([]string{"level", "slope"})
	require.Len(t, files, 2, "one document per state component")
	assert.Len(t, strings.Split(strings.TrimSpace(files[0]), "\n"), steps+1)

	_, err = ssf.NewMonteCarloRuns(newEngine(t, nil), m, 0, steps, 1)
	assert.Error(t, err)
}
