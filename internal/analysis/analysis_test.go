package analysis

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dld-tools/dld/internal/imaging"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

// leftWhite and topWhite hash far apart; two copies of the same pattern
// hash identically. Solid fills are useless here since an average hash of
// a uniform image is all zeros regardless of the color.
func leftWhite(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := black
			if x < w/2 {
				c = white
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func topWhite(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := black
			if y < h/2 {
				c = white
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func saveImage(t *testing.T, img *image.NRGBA, path string) {
	t.Helper()
	require.NoError(t, imaging.Save(img, path))
}

func writeEvent(t *testing.T, dir, name, eventType string) {
	t.Helper()
	body := fmt.Sprintf(`{"event": {"event_type": %q}}`, eventType)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestDetectDataLoss(t *testing.T) {
	out := t.TempDir()
	shots := filepath.Join(out, "home_button_screenshots")
	require.NoError(t, os.Mkdir(shots, 0o755))

	// pair 1 unchanged, pair 2 changed
	saveImage(t, leftWhite(64, 64), filepath.Join(shots, "before_1.png"))
	saveImage(t, leftWhite(64, 64), filepath.Join(shots, "after_1.png"))
	saveImage(t, leftWhite(64, 64), filepath.Join(shots, "before_2.png"))
	saveImage(t, topWhite(64, 64), filepath.Join(shots, "after_2.png"))
	// orphan before, no after
	saveImage(t, leftWhite(64, 64), filepath.Join(shots, "before_3.png"))

	report, err := DetectDataLoss(out, shots, DefaultDataLossThreshold, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Statistics.TotalActionsAnalyzed)
	assert.Equal(t, 1, report.Statistics.PotentialDataLoss)
	assert.Equal(t, 0.5, report.Statistics.DataLossRate)

	require.Len(t, report.Actions, 2)
	assert.False(t, report.Actions[0].IsPotentialDataLoss)
	assert.True(t, report.Actions[1].IsPotentialDataLoss)
	assert.Equal(t, 2, report.Actions[1].ActionIndex)
}

func TestDetectDataLossNoShotsDir(t *testing.T) {
	out := t.TempDir()

	report, err := DetectDataLoss(out, filepath.Join(out, "missing"), DefaultDataLossThreshold, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Statistics.TotalActionsAnalyzed)
	assert.Empty(t, report.Actions)
}

func TestDetectStateLoss(t *testing.T) {
	root := t.TempDir()
	events := filepath.Join(root, "events")
	states := filepath.Join(root, "states")
	require.NoError(t, os.Mkdir(events, 0o755))
	require.NoError(t, os.Mkdir(states, 0o755))

	writeEvent(t, events, "event_1.json", "touch")
	writeEvent(t, events, "event_2.json", "touch")
	writeEvent(t, events, "event_3.json", "scroll")

	// states 1-2 match, state 3 differs, state 4 matches 3
	saveImage(t, leftWhite(64, 64), filepath.Join(states, "state_1.png"))
	saveImage(t, leftWhite(64, 64), filepath.Join(states, "state_2.png"))
	saveImage(t, topWhite(64, 64), filepath.Join(states, "state_3.png"))
	saveImage(t, topWhite(64, 64), filepath.Join(states, "state_4.png"))

	report, err := DetectStateLoss(events, states, DefaultStateLossThreshold, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Statistics.TotalEventStatePairs)
	assert.Equal(t, 2, report.Statistics.StateTransitionsAnalyzed)
	assert.Equal(t, 1, report.Issues.StateHashMismatches)

	require.Len(t, report.Issues.StateHashMismatchList, 1)
	mm := report.Issues.StateHashMismatchList[0]
	assert.Equal(t, "state_2.png", mm.PreviousState)
	assert.Equal(t, "state_3.png", mm.CurrentState)
	assert.Greater(t, mm.HashDifference, DefaultStateLossThreshold)
	assert.Greater(t, mm.PixelDistance, int64(0))
}

func TestDetectStateLossEmpty(t *testing.T) {
	root := t.TempDir()
	events := filepath.Join(root, "events")
	states := filepath.Join(root, "states")
	require.NoError(t, os.Mkdir(events, 0o755))
	require.NoError(t, os.Mkdir(states, 0o755))

	report, err := DetectStateLoss(events, states, DefaultStateLossThreshold, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Statistics.TotalEventStatePairs)
	assert.Zero(t, report.Issues.StateHashMismatches)
}

func TestDetectStateLossEditTextChange(t *testing.T) {
	root := t.TempDir()
	events := filepath.Join(root, "events")
	states := filepath.Join(root, "states")
	require.NoError(t, os.Mkdir(events, 0o755))
	require.NoError(t, os.Mkdir(states, 0o755))

	view := `"view": {"resource_id": "com.foo:id/field", "class": "android.widget.EditText", "text": %q}`
	first := fmt.Sprintf(`{"event": {"event_type": "set_text", `+view+`}}`, "hello")
	second := fmt.Sprintf(`{"event": {"event_type": "touch", `+view+`}}`, "")
	require.NoError(t, os.WriteFile(filepath.Join(events, "event_1.json"), []byte(first), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(events, "event_2.json"), []byte(second), 0o644))

	for i := 1; i <= 3; i++ {
		saveImage(t, leftWhite(64, 64), filepath.Join(states, fmt.Sprintf("state_%d.png", i)))
	}

	report, err := DetectStateLoss(events, states, DefaultStateLossThreshold, nil)
	require.NoError(t, err)

	require.Len(t, report.Issues.EditTextValueChanges, 1)
	change := report.Issues.EditTextValueChanges[0]
	assert.Equal(t, "com.foo:id/field", change.View)
	assert.Equal(t, "hello", change.PreviousText)
	assert.Equal(t, "", change.CurrentText)
}

func TestDetectStateLossDisappearedDialog(t *testing.T) {
	root := t.TempDir()
	events := filepath.Join(root, "events")
	states := filepath.Join(root, "states")
	require.NoError(t, os.Mkdir(events, 0o755))
	require.NoError(t, os.Mkdir(states, 0o755))

	first := `{"event": {"event_type": "touch",
		"view": {"resource_id": "com.foo:id/dlg", "class": "android.app.AlertDialog", "visible": true}}}`
	second := `{"event": {"event_type": "touch",
		"view": {"resource_id": "com.foo:id/dlg", "class": "android.app.AlertDialog", "visible": false}}}`
	require.NoError(t, os.WriteFile(filepath.Join(events, "event_1.json"), []byte(first), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(events, "event_2.json"), []byte(second), 0o644))

	for i := 1; i <= 3; i++ {
		saveImage(t, leftWhite(64, 64), filepath.Join(states, fmt.Sprintf("state_%d.png", i)))
	}

	report, err := DetectStateLoss(events, states, DefaultStateLossThreshold, nil)
	require.NoError(t, err)

	require.Len(t, report.Issues.DisappearedDialogs, 1)
	assert.Equal(t, "com.foo:id/dlg", report.Issues.DisappearedDialogs[0].View)
}

func TestDetectCrashes(t *testing.T) {
	root := t.TempDir()
	events := filepath.Join(root, "events")
	states := filepath.Join(root, "states")
	require.NoError(t, os.Mkdir(events, 0o755))
	require.NoError(t, os.Mkdir(states, 0o755))

	// state 3 looks like the initial screen again
	saveImage(t, leftWhite(64, 64), filepath.Join(states, "state_1.png"))
	saveImage(t, topWhite(64, 64), filepath.Join(states, "state_2.png"))
	saveImage(t, leftWhite(64, 64), filepath.Join(states, "state_3.png"))

	writeEvent(t, events, "event_1.json", "touch")
	writeEvent(t, events, "event_2.json", "touch")
	writeEvent(t, events, "event_3.json", "scroll")

	report, err := DetectCrashes(states, events, DefaultCrashThreshold, nil)
	require.NoError(t, err)

	assert.Equal(t, "state_1.png", report.Metadata.InitialState)
	require.Len(t, report.CrashPoints, 1)
	point := report.CrashPoints[0]
	assert.Equal(t, 2, point.StateIndex)
	assert.Equal(t, "state_3.png", point.StateFile)
	assert.Equal(t, "event_3.json", point.EventFile)
	assert.Equal(t, "scroll", point.EventType)
}

func TestDetectCrashesNoStates(t *testing.T) {
	root := t.TempDir()
	states := filepath.Join(root, "states")
	require.NoError(t, os.Mkdir(states, 0o755))

	report, err := DetectCrashes(states, filepath.Join(root, "events"), DefaultCrashThreshold, nil)
	require.NoError(t, err)
	assert.Empty(t, report.CrashPoints)
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(path, map[string]int{"a": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))
}
