package config

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v, err := New(t.TempDir())
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "tm.utils", cfg.Utils.Module)
	assert.Equal(t, []string{"ts_plot", "format_args"}, cfg.Utils.Functions)
	assert.Equal(t, 2, cfg.Splice.MarkerOccurrence)
	assert.Equal(t, 2*time.Minute, cfg.Lint.Timeout)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`utils:
  module: sandbox.utils
  functions: [plot_series]
splice:
  policy: import
lint:
  timeout: 30s
`), 0644))

	v, err := New(dir)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "sandbox.utils", cfg.Utils.Module)
	assert.Equal(t, []string{"plot_series"}, cfg.Utils.Functions)
	assert.Equal(t, "import", cfg.Splice.Policy)
	assert.Equal(t, 30*time.Second, cfg.Lint.Timeout)
	assert.Equal(t, "share", cfg.Output.Dir)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PYSHARE_OUTPUT_DIR", "shared")
	t.Setenv("PYSHARE_SPLICE_MARKER_OCCURRENCE", "3")

	v, err := New(t.TempDir())
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "shared", cfg.Output.Dir)
	assert.Equal(t, 3, cfg.Splice.MarkerOccurrence)
}

func TestLoadRejectsInvalidOccurrence(t *testing.T) {
	v, err := New(t.TempDir())
	require.NoError(t, err)
	v.Set(SpliceOccurrenceKey, 0)

	_, err = Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), SpliceOccurrenceKey)
}

func TestNewRejectsMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("utils: [\n"), 0644))

	_, err := New(dir)
	require.Error(t, err)
}

func TestMarshalRoundTripsThroughViper(t *testing.T) {
	dir := t.TempDir()
	want := Default()
	want.Output.Dir = "export"

	data, err := Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), data, 0644))

	v, err := New(dir)
	require.NoError(t, err)
	got, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseSlogLevel("DEBUG", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, parseSlogLevel("warning", slog.LevelInfo))
	assert.Equal(t, slog.Level(-4), parseSlogLevel("-4", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, parseSlogLevel("bogus", slog.LevelError))
	assert.Equal(t, slog.LevelInfo, parseSlogLevel("", slog.LevelInfo))
}

func TestNewLoggerVerboseEnablesDebug(t *testing.T) {
	cfg := Default().Log
	cfg.Filename = filepath.Join(t.TempDir(), "pyshare.log")

	logger := NewLogger(cfg, true, io.Discard)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = NewLogger(cfg, false, io.Discard)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLoggerWithoutFilenameWritesToFallback(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	var buf bytes.Buffer
	logger := NewLogger(Default().Log, false, &buf)
	logger.Info("planned share")
	logger.Warn("mutually recursive utils functions", "cycle", "a -> b")

	assert.NotContains(t, buf.String(), "planned share")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `cycle="a -> b"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no log file without log.filename")
}
