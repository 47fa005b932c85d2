package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dld-tools/dld/internal/adb"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices and emulators",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client := adb.New(cfg.ADBPath, adb.WithLogger(logger), adb.WithTimeout(cfg.CommandTimeout))
		devices, err := client.Devices(ctx)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("no devices attached")
			return nil
		}
		for _, d := range devices {
			kind := "device"
			if d.Emu {
				kind = "emulator"
			}
			fmt.Printf("%-24s %-10s %s\n", d.Serial, kind, d.Model)
		}
		return nil
	},
}
