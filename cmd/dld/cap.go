package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dld-tools/dld/internal/adb"
)

var capOut string

var capCmd = &cobra.Command{
	Use:   "cap",
	Short: "Capture a screenshot from the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client := adb.New(cfg.ADBPath,
			adb.WithSerial(device),
			adb.WithLogger(logger),
			adb.WithTimeout(cfg.CommandTimeout))
		if err := client.WaitForDevice(ctx); err != nil {
			return err
		}

		file := capOut
		if file == "" {
			file = time.Now().Format("20060102_150405") + ".png"
		}
		if err := client.SaveScreen(ctx, file); err != nil {
			return err
		}
		fmt.Println(file)
		return nil
	},
}

func init() {
	capCmd.Flags().StringVarP(&capOut, "output", "o", "", "output file (default <timestamp>.png)")
}
