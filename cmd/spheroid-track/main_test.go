package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/LdDl/spheroid-mot/internal/config"
	"github.com/LdDl/spheroid-mot/internal/monitoring"
	"github.com/LdDl/spheroid-mot/internal/store"
	"github.com/LdDl/spheroid-mot/mot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recording = `
frames:
  - name: day_00.png
    detections:
      - polygon: [[0.0625, 0.0625], [0.1875, 0.0625], [0.1875, 0.1875], [0.0625, 0.1875]]
        confidence: 0.9
      - polygon: [[0.5, 0.5], [0.75, 0.5], [0.75, 0.75], [0.5, 0.75]]
        confidence: 0.8
  - name: day_01.png
    detections:
      - polygon: [[0.5, 0.5], [0.8125, 0.5], [0.8125, 0.8125], [0.5, 0.8125]]
        confidence: 0.8
      - polygon: [[0.0625, 0.0625], [0.1875, 0.0625], [0.1875, 0.1875], [0.0625, 0.1875]]
        confidence: 0.85
  - name: day_02.png
    error: model timeout
`

func setupRun(t *testing.T) (*config.Config, runOptions) {
	t.Helper()
	monitoring.SetLogger(nil)
	dir := t.TempDir()
	detections := filepath.Join(dir, "recording.yaml")
	require.NoError(t, os.WriteFile(detections, []byte(recording), 0o644))
	cfg := config.Default()
	cfg.CanvasSize = 128
	return cfg, runOptions{
		detections: detections,
		outDir:     filepath.Join(dir, "out"),
		dbPath:     filepath.Join(dir, "tracking.db"),
		charts:     true,
	}
}

func TestRun(t *testing.T) {
	cfg, opts := setupRun(t)
	cfg.Smoothing = true

	out, err := run(context.Background(), cfg, opts)
	require.NoError(t, err)
	assert.Equal(t, mot.StateFinalized, out.result.State)
	assert.Equal(t, 1, out.result.FailedFrames)
	assert.Equal(t, []mot.TrackID{0, 1}, out.result.TrackIDs)
	require.Len(t, out.result.Records, 4)

	// Two track tables, combined table and three charts
	require.Len(t, out.files, 6)
	for _, path := range out.files {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
	assert.FileExists(t, filepath.Join(opts.outDir, "spheroid_01.csv"))

	db, err := store.Open(opts.dbPath)
	require.NoError(t, err)
	defer db.Close()
	row, err := db.Session(out.result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "finalized", row.State)
	stored, err := db.Records(out.result.SessionID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestRunCancelled(t *testing.T) {
	cfg, opts := setupRun(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := run(ctx, cfg, opts)
	require.Error(t, err)
	require.NotNil(t, out)
	assert.Equal(t, mot.StateInit, out.result.State)
	assert.Empty(t, out.files)
	assert.NoFileExists(t, filepath.Join(opts.outDir, "general_t_series_data.csv"))
}

func TestRunMissingDetections(t *testing.T) {
	cfg, opts := setupRun(t)
	opts.detections = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := run(context.Background(), cfg, opts)
	assert.Error(t, err)
}
