package ssf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions([]byte(`
strategy: Array
initializer: augmented
degreesOfFreedom: legacy
concentrated: false
tolerance: 1e-12
`))
	require.NoError(t, err)
	assert.Equal(t, Array, opts.Strategy)
	assert.Equal(t, Augmented, opts.Initializer)
	assert.Equal(t, DFLegacy, opts.DegreesOfFreedom)
	assert.False(t, opts.Concentrated)
	assert.Equal(t, 1e-12, opts.Tolerance)
	// defaults
	assert.Equal(t, 1e-9, opts.DiffuseTolerance)
	assert.True(t, opts.SmoothVariances)
	assert.NotNil(t, opts.Logger)

	opts, err = ParseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().Strategy, opts.Strategy)
}

func TestParseOptionsErrors(t *testing.T) {
	for _, doc := range []string{
		"strategy: information",
		"initializer: [1, 2]",
		"degreesOfFreedom: unset",
		"tolerance: -1",
		"concentrated: maybe",
	} {
		_, err := ParseOptions([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.DegreesOfFreedom = 0
	assert.Error(t, opts.Validate())
	_, err := NewEngine(opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Strategy = 0
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.Logger = nil
	require.NoError(t, opts.Validate())
	assert.NotNil(t, opts.Logger)
}

func TestOptionsRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = Array
	data, err := yaml.Marshal(opts)
	require.NoError(t, err)
	assert.Contains(t, string(data), "strategy: array")
	assert.Contains(t, string(data), "initializer: durbin-koopman")
	assert.Contains(t, string(data), "degreesOfFreedom: corrected")

	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	loaded, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, opts.Strategy, loaded.Strategy)
	assert.Equal(t, opts.Tolerance, loaded.Tolerance)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
