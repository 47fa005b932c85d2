package session

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dld-tools/dld/internal/config"
)

func TestOutputDirFor(t *testing.T) {
	assert.Equal(t, filepath.Join("output", "notes"), OutputDirFor("output", "/apks/notes.apk"))
	assert.Equal(t, filepath.Join("out", "app-release"), OutputDirFor("out", "app-release.apk"))
	assert.Equal(t, filepath.Join("out", "noext"), OutputDirFor("out", "noext"))
}

func TestNewResolvesOutputDir(t *testing.T) {
	cfg := config.Config{OutputRoot: "runs"}

	s := New(cfg, Options{APK: "demo.apk"}, nil)
	assert.Equal(t, filepath.Join("runs", "demo"), s.OutputDir())

	s = New(cfg, Options{APK: "demo.apk", OutputDir: "elsewhere"}, nil)
	assert.Equal(t, "elsewhere", s.OutputDir())
}

func TestManifestJSON(t *testing.T) {
	started := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	m := NewManifest("run-1", Options{
		APK:        "demo.apk",
		OutputDir:  "out/demo",
		Serial:     "emulator-5554",
		Rotate:     true,
		HomeButton: true,
		Duration:   10 * time.Minute,
	}, started)
	m.FinishedAt = started.Add(10 * time.Minute)
	m.Perturbations.Rotations = 4

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "emulator-5554", got["device"])

	settings := got["settings"].(map[string]any)
	assert.Equal(t, true, settings["rotate"])
	assert.Equal(t, false, settings["power_cycle"])
	assert.Equal(t, "10m0s", settings["duration"])
}

func TestManifestOmitsZeroDuration(t *testing.T) {
	m := NewManifest("run-2", Options{APK: "a.apk"}, time.Now())
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "duration")
}
