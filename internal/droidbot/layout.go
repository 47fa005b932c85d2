// Package droidbot wraps the droidbot UI-automation tool: subprocess
// lifecycle, output directory layout, and the event/app JSON formats it
// produces.
package droidbot

import "path/filepath"

// Layout resolves paths inside one droidbot output directory.
type Layout struct {
	Root string
}

func (l Layout) EventsDir() string   { return filepath.Join(l.Root, "events") }
func (l Layout) StatesDir() string   { return filepath.Join(l.Root, "states") }
func (l Layout) AppJSONPath() string { return filepath.Join(l.Root, "app.json") }

// HomeButtonShotsDir holds the before/after screenshots taken around
// home-button round trips.
func (l Layout) HomeButtonShotsDir() string {
	return filepath.Join(l.Root, "home_button_screenshots")
}

func (l Layout) DataLossReportPath() string {
	return filepath.Join(l.Root, "home_button_data_loss.json")
}

func (l Layout) StateLossReportPath() string {
	return filepath.Join(l.Root, "state_loss_analysis.json")
}

func (l Layout) CrashReportPath() string {
	return filepath.Join(l.Root, "crash_analysis.json")
}

func (l Layout) ManifestPath() string {
	return filepath.Join(l.Root, "run_manifest.json")
}

func (l Layout) FramesArchivePath() string {
	return filepath.Join(l.Root, "frames.sz")
}
