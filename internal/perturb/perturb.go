// Package perturb injects device-state disturbances while droidbot
// explores an app: screen rotation, power cycling, and home-button round
// trips. Each perturbator consumes the droidbot event stream and acts on
// its own trigger set, rate-limited against the last accepted action.
package perturb

import (
	"context"
	"time"

	"github.com/dld-tools/dld/internal/adb"
	"github.com/dld-tools/dld/internal/droidbot"
)

// Device is the control surface perturbators need. *adb.Client implements it.
type Device interface {
	EmuRotate(ctx context.Context, o adb.Orientation) error
	Keyevent(ctx context.Context, code string) error
	Unlock(ctx context.Context) error
	StartActivity(ctx context.Context, component string) error
	SaveScreen(ctx context.Context, imagefile string) error
}

// Perturbator reacts to droidbot events. Handle must be cheap to skip:
// it is called for every event and filters by trigger set internally.
type Perturbator interface {
	Name() string
	Handle(ctx context.Context, ev droidbot.Event) error
	Shutdown(ctx context.Context) error
}

// clock abstracts time for tests.
type clock struct {
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func realClock() clock {
	return clock{
		now: time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
}
