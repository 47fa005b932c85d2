package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dld-tools/dld/internal/analysis"
	"github.com/dld-tools/dld/internal/droidbot"
)

var (
	dataLossThreshold  int
	stateLossThreshold int
	crashThreshold     int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <output-dir>",
	Short: "Re-run analysis over an existing run directory",
	Long: `Runs the data-loss, state-loss, and crash detectors over artifacts
collected by an earlier run and rewrites the three report files.
Useful for trying different thresholds without re-running droidbot.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := droidbot.Layout{Root: args[0]}

		if cmd.Flags().Changed("data-loss-threshold") {
			cfg.Analysis.DataLossThreshold = dataLossThreshold
		}
		if cmd.Flags().Changed("state-loss-threshold") {
			cfg.Analysis.StateLossThreshold = stateLossThreshold
		}
		if cmd.Flags().Changed("crash-threshold") {
			cfg.Analysis.CrashThreshold = crashThreshold
		}

		dataLoss, err := analysis.DetectDataLoss(args[0], layout.HomeButtonShotsDir(),
			cfg.Analysis.DataLossThreshold, logger)
		if err != nil {
			return err
		}
		if err := analysis.WriteReport(layout.DataLossReportPath(), dataLoss); err != nil {
			return err
		}

		stateLoss, err := analysis.DetectStateLoss(layout.EventsDir(), layout.StatesDir(),
			cfg.Analysis.StateLossThreshold, logger)
		if err != nil {
			return err
		}
		if err := analysis.WriteReport(layout.StateLossReportPath(), stateLoss); err != nil {
			return err
		}

		crashes, err := analysis.DetectCrashes(layout.StatesDir(), layout.EventsDir(),
			cfg.Analysis.CrashThreshold, logger)
		if err != nil {
			return err
		}
		if err := analysis.WriteReport(layout.CrashReportPath(), crashes); err != nil {
			return err
		}

		fmt.Printf("data loss:   %d/%d actions (rate %.4f)\n",
			dataLoss.Statistics.PotentialDataLoss,
			dataLoss.Statistics.TotalActionsAnalyzed,
			dataLoss.Statistics.DataLossRate)
		fmt.Printf("state loss:  %d mismatches, %d disappeared dialogs, %d edittext changes\n",
			stateLoss.Issues.StateHashMismatches,
			len(stateLoss.Issues.DisappearedDialogs),
			len(stateLoss.Issues.EditTextValueChanges))
		fmt.Printf("crashes:     %d points\n", len(crashes.CrashPoints))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&dataLossThreshold, "data-loss-threshold", 10, "hash distance above which a before/after pair counts as data loss")
	analyzeCmd.Flags().IntVar(&stateLossThreshold, "state-loss-threshold", 10, "hash distance above which consecutive states mismatch")
	analyzeCmd.Flags().IntVar(&crashThreshold, "crash-threshold", 5, "hash distance at or below which a state matches the initial screen")
}
