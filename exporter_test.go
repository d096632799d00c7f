package ssf_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssf "github.com/palatej/jdemetra-core2-sub000"
	"github.com/palatej/jdemetra-core2-sub000/models"
)

func TestImplementsExporter(t *testing.T) {
	implements := func(ssf.Exporter) {}
	implements(new(ssf.CSVExporter))
}

func TestCSVExportFail(t *testing.T) {
	_, err := ssf.NewCSVExporter([]string{"level", "slope"}, "/noNoNoNo/", "temp.csv")
	assert.Error(t, err, "no issue when trying to create a file in a missing directory")
}

func TestCSVExport(t *testing.T) {
	m := models.NewLocalLinearTrend(models.LocalLinearTrendConfig{LevelVariance: 0.1, SlopeVariance: 0.01, ObservationVariance: 1})
	y := ssf.Series{1, 2.5, 2.9, 4.2, 5, 6.1}
	sr, res, err := newEngine(t, nil).Smooth(m, y)
	require.NoError(t, err)

	dir := t.TempDir()
	for name, export := range map[string]func(ssf.Exporter) error{
		"smoothed.csv": func(e ssf.Exporter) error { return ssf.ExportSmoothing(e, sr) },
		"filtered.csv": func(e ssf.Exporter) error { return ssf.ExportFiltering(e, res) },
	} {
		ce, err := ssf.NewCSVExporter([]string{"level", "slope"}, dir, name)
		require.NoError(t, err, "could not create file")
		require.NoError(t, export(ce), "could not write states")
		require.NoError(t, ce.Close(), "could not close file")

		data, err := os.ReadFile(ce.Name())
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		// creation date, header, states, closing date
		require.Len(t, lines, y.Len()+3)
		assert.Equal(t, "level,level+2s,level-2s,slope,slope+2s,slope-2s", lines[1])
		assert.Len(t, strings.Split(lines[2], ","), 6)
	}
}
