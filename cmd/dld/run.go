package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dld-tools/dld/internal/session"
)

var (
	runOut        string
	runDuration   time.Duration
	runKeepEnv    bool
	noRotate      bool
	noPowerCycle  bool
	noHomeButton  bool
	keepRawFrames bool
)

var runCmd = &cobra.Command{
	Use:   "run <apk>",
	Short: "Run droidbot against an APK with state perturbation",
	Long: `Launches droidbot against the given APK, perturbs device state while
it explores, and analyzes the collected artifacts once it finishes.

Artifacts land under <output-root>/<apk name>/:
  events/, states/                droidbot's own output
  home_button_screenshots/        before/after pairs per home-button trip
  home_button_data_loss.json      data-loss report
  state_loss_analysis.json        state-loss report
  crash_analysis.json             crash report
  run_manifest.json               run summary`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if keepRawFrames {
			cfg.KeepRawFrames = true
		}

		s := session.New(cfg, session.Options{
			APK:        args[0],
			OutputDir:  runOut,
			Serial:     device,
			KeepEnv:    runKeepEnv,
			Rotate:     !noRotate,
			PowerCycle: !noPowerCycle,
			HomeButton: !noHomeButton,
			Duration:   runDuration,
		}, logger)

		manifest, err := s.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("run %s finished\n", manifest.RunID)
		fmt.Printf("  rotations:           %d\n", manifest.Perturbations.Rotations)
		fmt.Printf("  power cycles:        %d\n", manifest.Perturbations.PowerCycles)
		fmt.Printf("  home-button actions: %d\n", manifest.Perturbations.HomeButtonActions)
		fmt.Printf("  potential data loss: %d/%d (rate %.4f)\n",
			manifest.Analysis.PotentialDataLoss,
			manifest.Analysis.ActionsAnalyzed,
			manifest.Analysis.DataLossRate)
		fmt.Printf("  state mismatches:    %d\n", manifest.Analysis.StateHashMismatches)
		fmt.Printf("  crash points:        %d\n", manifest.Analysis.CrashPoints)
		fmt.Printf("reports written to %s\n", s.OutputDir())
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOut, "output", "o", "", "output directory (default <output-root>/<apk name>)")
	runCmd.Flags().DurationVarP(&runDuration, "duration", "t", 0, "stop the run after this long (default: until droidbot exits)")
	runCmd.Flags().BoolVar(&runKeepEnv, "keep-env", false, "pass -keep_env to droidbot (keep app installed)")
	runCmd.Flags().BoolVar(&noRotate, "no-rotate", false, "disable rotation perturbation")
	runCmd.Flags().BoolVar(&noPowerCycle, "no-power-cycle", false, "disable power-cycle perturbation")
	runCmd.Flags().BoolVar(&noHomeButton, "no-home-button", false, "disable home-button perturbation")
	runCmd.Flags().BoolVar(&keepRawFrames, "keep-raw-frames", false, "archive raw screencap frames alongside screenshots")
}
