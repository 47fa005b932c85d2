package perturb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dld-tools/dld/internal/droidbot"
)

// PowerCycler simulates the power button: screen off, wait, screen on,
// swipe to unlock. The first accepted trigger only arms the cycler; the
// app has to reach a real state before the first cycle is worth doing.
type PowerCycler struct {
	dev      Device
	triggers droidbot.TriggerSet
	log      *zap.Logger
	clk      clock

	minInterval time.Duration
	offDelay    time.Duration
	maxCycles   int

	count int
	last  time.Time
}

// NewPowerCycler builds a PowerCycler. offDelay is how long the screen
// stays off before waking.
func NewPowerCycler(dev Device, minInterval, offDelay time.Duration, maxCycles int, log *zap.Logger) *PowerCycler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PowerCycler{
		dev:         dev,
		triggers:    droidbot.PowerCycleTriggers,
		log:         log,
		clk:         realClock(),
		minInterval: minInterval,
		offDelay:    offDelay,
		maxCycles:   maxCycles,
	}
}

func (p *PowerCycler) Name() string { return "power-cycle" }

// Cycles reports how many accepted triggers occurred, including the
// arming one.
func (p *PowerCycler) Cycles() int { return p.count }

func (p *PowerCycler) Handle(ctx context.Context, ev droidbot.Event) error {
	if !p.triggers.Contains(ev.Event.EventType) {
		return nil
	}

	now := p.clk.now()
	if !p.last.IsZero() && now.Sub(p.last) < p.minInterval {
		return nil
	}
	if p.count >= p.maxCycles {
		p.log.Debug("max power cycles reached", zap.Int("max", p.maxCycles))
		return nil
	}

	if p.count != 0 {
		p.log.Info("power cycling",
			zap.String("trigger", ev.File),
			zap.Int("cycle", p.count))

		if err := p.dev.Keyevent(ctx, "KEYCODE_POWER"); err != nil {
			p.log.Warn("screen off failed", zap.Error(err))
			return err
		}
		p.clk.sleep(ctx, p.offDelay)

		if err := p.dev.Keyevent(ctx, "KEYCODE_POWER"); err != nil {
			p.log.Warn("screen on failed", zap.Error(err))
			return err
		}
		if err := p.dev.Unlock(ctx); err != nil {
			p.log.Warn("unlock swipe failed", zap.Error(err))
			return err
		}
	}

	p.last = now
	p.count++
	return nil
}

func (p *PowerCycler) Shutdown(ctx context.Context) error { return nil }
