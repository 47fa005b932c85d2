package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dld-tools/dld/internal/adb"
	"github.com/dld-tools/dld/internal/droidbot"
	"github.com/dld-tools/dld/internal/frames"
	"github.com/dld-tools/dld/internal/imaging"
)

// captureDevice wraps the adb client so every screenshot taken during
// perturbation can also be appended to the raw frame archive. With
// recording off it is a plain pass-through.
type captureDevice struct {
	*adb.Client

	log    *zap.Logger
	record bool
	path   string

	mu      sync.Mutex
	archive *frames.Writer
}

func newCaptureDevice(client *adb.Client, layout droidbot.Layout, record bool, log *zap.Logger) *captureDevice {
	return &captureDevice{
		Client: client,
		log:    log,
		record: record,
		path:   layout.FramesArchivePath(),
	}
}

// SaveScreen captures once and writes the PNG; the same pixels feed the
// archive so recording never costs a second screencap.
func (d *captureDevice) SaveScreen(ctx context.Context, imagefile string) error {
	if !d.record {
		return d.Client.SaveScreen(ctx, imagefile)
	}

	img, err := d.Client.Screencap(ctx)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, imagefile); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.archive == nil {
		w, err := frames.Create(d.path)
		if err != nil {
			d.log.Warn("frame archive unavailable, disabling recording", zap.Error(err))
			d.record = false
			return nil
		}
		d.archive = w
	}
	if err := d.archive.Append(img); err != nil {
		d.log.Warn("frame append failed", zap.Error(err))
	}
	return nil
}

func (d *captureDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.archive == nil {
		return nil
	}
	err := d.archive.Close()
	d.archive = nil
	return err
}
