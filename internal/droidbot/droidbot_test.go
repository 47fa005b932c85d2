package droidbot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event_2024.json")
	writeFile(t, path, `{
		"tag": "2024-05-01_120000",
		"event": {
			"event_type": "touch",
			"view": {
				"resource_id": "com.foo:id/submit",
				"class": "android.widget.Button",
				"text": "OK",
				"visible": true
			}
		}
	}`)

	ev, err := LoadEvent(path)
	require.NoError(t, err)
	assert.Equal(t, "touch", ev.Event.EventType)
	require.NotNil(t, ev.Event.View)
	assert.Equal(t, "com.foo:id/submit", ev.Event.View.ID())
	assert.True(t, ev.Event.View.IsVisible())
}

func TestLoadEventCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, path, "{not json")

	_, err := LoadEvent(path)
	assert.Error(t, err)
}

func TestViewIDFallsBackToSignature(t *testing.T) {
	v := &View{Signature: "sig-abc"}
	assert.Equal(t, "sig-abc", v.ID())
}

func TestViewVisibleDefaultsTrue(t *testing.T) {
	v := &View{}
	assert.True(t, v.IsVisible())

	hidden := false
	v.Visible = &hidden
	assert.False(t, v.IsVisible())
}

func TestTriggerSets(t *testing.T) {
	assert.True(t, RotateTriggers.Contains("touch"))
	assert.False(t, RotateTriggers.Contains("scroll"))

	assert.True(t, PowerCycleTriggers.Contains("key"))
	assert.False(t, PowerCycleTriggers.Contains("touch"))

	assert.True(t, HomeButtonTriggers.Contains("scroll"))
	assert.False(t, HomeButtonTriggers.Contains("key"))
}

func TestLoadAppInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	writeFile(t, path, `{"package": "com.foo.notes", "main_activity": "NotesActivity"}`)

	info, err := LoadAppInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "com.foo.notes/com.foo.notes.NotesActivity", info.Component())
}

func TestLoadAppInfoMissingUsesDefault(t *testing.T) {
	info, err := LoadAppInfo(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	assert.Equal(t, "com.example.app", info.Package)
	assert.Equal(t, "com.example.app/com.example.app.MainActivity", info.Component())
}

func TestLoadAppInfoIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	writeFile(t, path, `{"package": "com.foo"}`)

	info, err := LoadAppInfo(path)
	assert.Error(t, err)
	assert.Equal(t, "com.example.app", info.Package)
}

func TestLayoutPaths(t *testing.T) {
	l := Layout{Root: "out/notes"}
	assert.Equal(t, filepath.Join("out", "notes", "events"), l.EventsDir())
	assert.Equal(t, filepath.Join("out", "notes", "states"), l.StatesDir())
	assert.Equal(t, filepath.Join("out", "notes", "home_button_screenshots"), l.HomeButtonShotsDir())
	assert.Equal(t, filepath.Join("out", "notes", "home_button_data_loss.json"), l.DataLossReportPath())
	assert.Equal(t, filepath.Join("out", "notes", "run_manifest.json"), l.ManifestPath())
}

func TestRunnerArgs(t *testing.T) {
	r := NewRunner("droidbot", "notes.apk", "out/notes", nil)
	assert.Equal(t, []string{"-a", "notes.apk", "-o", "out/notes"}, r.Args())

	r.Serial = "emulator-5554"
	r.KeepEnv = true
	assert.Equal(t,
		[]string{"-a", "notes.apk", "-o", "out/notes", "-d", "emulator-5554", "-keep_env"},
		r.Args())
}

func TestRunnerStopBeforeStart(t *testing.T) {
	r := NewRunner("droidbot", "a.apk", t.TempDir(), nil)
	assert.ErrorIs(t, r.Stop(0), ErrNotStarted)
}
