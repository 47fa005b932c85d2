package adb

import (
	"context"

	"github.com/dld-tools/dld/internal/imaging"
)

// SaveScreen captures the screen and writes it to imagefile. The format
// follows the file extension.
func (c *Client) SaveScreen(ctx context.Context, imagefile string) error {
	img, err := c.Screencap(ctx)
	if err != nil {
		return err
	}
	return imaging.Save(img, imagefile)
}
