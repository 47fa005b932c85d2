package session

import "time"

// Manifest is the machine-readable summary written at the end of a run.
type Manifest struct {
	RunID      string    `json:"run_id"`
	APK        string    `json:"apk"`
	OutputDir  string    `json:"output_dir"`
	Device     string    `json:"device,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Settings      ManifestSettings      `json:"settings"`
	Perturbations ManifestPerturbations `json:"perturbations"`
	Analysis      ManifestAnalysis      `json:"analysis"`
}

type ManifestSettings struct {
	Rotate     bool   `json:"rotate"`
	PowerCycle bool   `json:"power_cycle"`
	HomeButton bool   `json:"home_button"`
	Duration   string `json:"duration,omitempty"`
	KeepEnv    bool   `json:"keep_env"`
}

type ManifestPerturbations struct {
	Rotations         int `json:"rotations"`
	PowerCycles       int `json:"power_cycles"`
	HomeButtonActions int `json:"home_button_actions"`
}

type ManifestAnalysis struct {
	ActionsAnalyzed     int     `json:"actions_analyzed"`
	PotentialDataLoss   int     `json:"potential_data_loss"`
	DataLossRate        float64 `json:"data_loss_rate"`
	StateHashMismatches int     `json:"state_hash_mismatches"`
	CrashPoints         int     `json:"crash_points"`
	CrashStateIndices   []int   `json:"crash_state_indices,omitempty"`
}

// NewManifest seeds a manifest from the run options.
func NewManifest(runID string, opts Options, started time.Time) *Manifest {
	m := &Manifest{
		RunID:     runID,
		APK:       opts.APK,
		OutputDir: opts.OutputDir,
		Device:    opts.Serial,
		StartedAt: started,
		Settings: ManifestSettings{
			Rotate:     opts.Rotate,
			PowerCycle: opts.PowerCycle,
			HomeButton: opts.HomeButton,
			KeepEnv:    opts.KeepEnv,
		},
	}
	if opts.Duration > 0 {
		m.Settings.Duration = opts.Duration.String()
	}
	return m
}
