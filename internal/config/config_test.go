package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nllfacts/internal/analysis"
)

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nllfacts.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, &Config{
		Algorithm: "naive",
		Log:       LogConfig{Level: "info", Format: "text"},
		Jobs:      4,
	}, cfg)

	algo, err := cfg.AlgorithmValue()
	require.NoError(t, err)
	assert.Equal(t, analysis.Naive, algo)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
algorithm: "location_insensitive"
log: level: "debug"
store: path: "units.db"
jobs: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "location_insensitive", cfg.Algorithm)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "units.db", cfg.Store.Path)
	assert.Equal(t, "", cfg.Dump.Dir)
	assert.Equal(t, 2, cfg.Jobs)

	opts := cfg.LoggingOptions()
	assert.Equal(t, "debug", opts.Level)
}

func TestLoad_RejectsUnknownAlgorithm(t *testing.T) {
	path := writeConfig(t, `algorithm: "fastest"`)
	_, err := Load(path)
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "algorithm")
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "jobs: 2\ncolour: \"red\"\n")
	_, err := Load(path)
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "colour")
}

func TestLoad_RejectsZeroJobs(t *testing.T) {
	_, err := Load(writeConfig(t, "jobs: 0"))
	require.Error(t, err)
}

func TestLoad_SyntaxErrorHasPosition(t *testing.T) {
	path := writeConfig(t, "jobs: 2\nalgorithm: \n")
	_, err := Load(path)
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "nllfacts.cue")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
