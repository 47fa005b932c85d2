package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dld-tools/dld/internal/frames"
)

var framesOut string

var framesCmd = &cobra.Command{
	Use:   "frames <archive>",
	Short: "Export a raw frame archive to PNG files",
	Long: `Decodes a frames.sz archive recorded with --keep-raw-frames and writes
each frame as a numbered PNG for review.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := frames.ExportPNGs(args[0], framesOut)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d frames to %s\n", n, framesOut)
		return nil
	},
}

func init() {
	framesCmd.Flags().StringVarP(&framesOut, "output", "o", "frames", "directory to write PNGs into")
}
