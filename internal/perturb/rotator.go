package perturb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dld-tools/dld/internal/adb"
	"github.com/dld-tools/dld/internal/droidbot"
)

// orientation positions in the clockwise cycle. "Reverse landscape" has no
// emulator console name; it is reached by sending landscape a second time.
const (
	posPortrait = iota
	posLandscape
	posReverseLandscape
)

// Rotator rotates the emulator screen clockwise on UI events, at most once
// per MinInterval.
type Rotator struct {
	dev      Device
	triggers droidbot.TriggerSet
	log      *zap.Logger
	clk      clock

	minInterval time.Duration
	pos         int
	last        time.Time
	rotations   int
}

// NewRotator builds a Rotator starting from portrait.
func NewRotator(dev Device, minInterval time.Duration, log *zap.Logger) *Rotator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rotator{
		dev:         dev,
		triggers:    droidbot.RotateTriggers,
		log:         log,
		clk:         realClock(),
		minInterval: minInterval,
	}
}

func (r *Rotator) Name() string { return "rotate" }

// Rotations reports how many rotations were performed.
func (r *Rotator) Rotations() int { return r.rotations }

func (r *Rotator) Handle(ctx context.Context, ev droidbot.Event) error {
	if !r.triggers.Contains(ev.Event.EventType) {
		return nil
	}

	now := r.clk.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.minInterval {
		return nil
	}

	next := (r.pos + 1) % 3
	switch next {
	case posLandscape:
		r.log.Info("rotating to landscape", zap.String("trigger", ev.File))
		if err := r.dev.EmuRotate(ctx, adb.Landscape); err != nil {
			r.log.Warn("rotation failed", zap.Error(err))
			return err
		}
	case posReverseLandscape:
		r.log.Info("rotating to reverse landscape", zap.String("trigger", ev.File))
		if err := r.dev.EmuRotate(ctx, adb.Landscape); err != nil {
			r.log.Warn("rotation failed", zap.Error(err))
			return err
		}
		r.clk.sleep(ctx, time.Second)
		if err := r.dev.EmuRotate(ctx, adb.Landscape); err != nil {
			r.log.Warn("rotation failed", zap.Error(err))
			return err
		}
	case posPortrait:
		r.log.Info("rotating to portrait", zap.String("trigger", ev.File))
		if err := r.dev.EmuRotate(ctx, adb.Portrait); err != nil {
			r.log.Warn("rotation failed", zap.Error(err))
			return err
		}
	}

	r.pos = next
	r.last = now
	r.rotations++
	return nil
}

// Shutdown resets the screen to portrait so the emulator is never left
// rotated for the next run.
func (r *Rotator) Shutdown(ctx context.Context) error {
	r.pos = posPortrait
	return r.dev.EmuRotate(ctx, adb.Portrait)
}
