package perturb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dld-tools/dld/internal/droidbot"
)

// HomeButton pushes the app to the background with the home key and
// relaunches it, capturing before/after screenshots for the data-loss
// analyzer. Like PowerCycler, the first accepted trigger only arms it.
type HomeButton struct {
	dev      Device
	app      droidbot.AppInfo
	shotsDir string
	triggers droidbot.TriggerSet
	log      *zap.Logger
	clk      clock

	minInterval time.Duration
	maxActions  int

	count int
	last  time.Time
}

// NewHomeButton builds a HomeButton perturbator writing screenshots into
// shotsDir (created lazily on the first action).
func NewHomeButton(dev Device, app droidbot.AppInfo, shotsDir string, minInterval time.Duration, maxActions int, log *zap.Logger) *HomeButton {
	if log == nil {
		log = zap.NewNop()
	}
	return &HomeButton{
		dev:         dev,
		app:         app,
		shotsDir:    shotsDir,
		triggers:    droidbot.HomeButtonTriggers,
		log:         log,
		clk:         realClock(),
		minInterval: minInterval,
		maxActions:  maxActions,
	}
}

func (h *HomeButton) Name() string { return "home-button" }

// Actions reports how many accepted triggers occurred, including the
// arming one.
func (h *HomeButton) Actions() int { return h.count }

func (h *HomeButton) Handle(ctx context.Context, ev droidbot.Event) error {
	if !h.triggers.Contains(ev.Event.EventType) {
		return nil
	}

	now := h.clk.now()
	if !h.last.IsZero() && now.Sub(h.last) < h.minInterval {
		return nil
	}
	if h.count >= h.maxActions {
		h.log.Debug("max home-button actions reached", zap.Int("max", h.maxActions))
		return nil
	}

	if h.count != 0 {
		h.log.Info("home-button round trip",
			zap.String("trigger", ev.File),
			zap.Int("action", h.count),
			zap.String("component", h.app.Component()))

		if err := os.MkdirAll(h.shotsDir, 0o755); err != nil {
			return fmt.Errorf("perturb: create screenshots dir: %w", err)
		}

		before := filepath.Join(h.shotsDir, fmt.Sprintf("before_%d.png", h.count))
		if err := h.dev.SaveScreen(ctx, before); err != nil {
			h.log.Warn("before screenshot failed", zap.Error(err))
		}

		if err := h.dev.Keyevent(ctx, "KEYCODE_HOME"); err != nil {
			h.log.Warn("home key failed", zap.Error(err))
			return err
		}
		h.clk.sleep(ctx, time.Second)

		if err := h.dev.StartActivity(ctx, h.app.Component()); err != nil {
			h.log.Warn("relaunch failed", zap.Error(err))
			return err
		}
		h.clk.sleep(ctx, 3*time.Second)

		after := filepath.Join(h.shotsDir, fmt.Sprintf("after_%d.png", h.count))
		if err := h.dev.SaveScreen(ctx, after); err != nil {
			h.log.Warn("after screenshot failed", zap.Error(err))
		}
	}

	h.last = now
	h.count++
	return nil
}

func (h *HomeButton) Shutdown(ctx context.Context) error { return nil }
