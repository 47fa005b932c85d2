package adb

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// DeviceInfo describes one entry from "adb devices".
type DeviceInfo struct {
	Serial string
	Model  string
	Emu    bool
}

// Devices lists connected devices in the "device" state. The model name is
// resolved per device via getprop and falls back to the serial.
func (c *Client) Devices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := c.Run(ctx, "devices")
	if err != nil {
		return nil, err
	}

	var devices []DeviceInfo
	lines := strings.Split(string(out), "\n")
	for i := 1; i < len(lines); i++ {
		fields := strings.Fields(strings.TrimSpace(lines[i]))
		if len(fields) != 2 || fields[1] != "device" {
			continue
		}
		serial := fields[0]
		devices = append(devices, DeviceInfo{
			Serial: serial,
			Model:  c.deviceModel(ctx, serial),
			Emu:    strings.HasPrefix(serial, "emulator-"),
		})
	}
	return devices, nil
}

func (c *Client) deviceModel(ctx context.Context, serial string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"-s", serial, "shell", "getprop", "ro.product.model"}
	c.log.Debug("adb", zap.Strings("args", args))
	out, err := c.run(ctx, c.path, args...)
	if err != nil || len(out) == 0 {
		return serial
	}
	model := strings.TrimSpace(string(out))
	if model == "" {
		return serial
	}
	return model
}
