// Package session orchestrates one dld run: droidbot subprocess, event
// watcher, perturbators, cleanup, and the post-run analysis pass.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dld-tools/dld/internal/adb"
	"github.com/dld-tools/dld/internal/analysis"
	"github.com/dld-tools/dld/internal/config"
	"github.com/dld-tools/dld/internal/droidbot"
	"github.com/dld-tools/dld/internal/perturb"
	"github.com/dld-tools/dld/internal/watch"
)

// Options selects what a run does.
type Options struct {
	APK       string
	OutputDir string // empty: <output_root>/<apk stem>
	Serial    string
	KeepEnv   bool

	Rotate     bool
	PowerCycle bool
	HomeButton bool

	// Duration bounds the whole run; zero means until droidbot exits.
	Duration time.Duration
}

// OutputDirFor derives the default per-APK output directory.
func OutputDirFor(root, apkPath string) string {
	base := filepath.Base(apkPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(root, stem)
}

// Session is one launch-perturb-collect-analyze cycle.
type Session struct {
	cfg  config.Config
	opts Options
	log  *zap.Logger

	id     uuid.UUID
	layout droidbot.Layout
}

// New builds a Session. The output directory is resolved here.
func New(cfg config.Config, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = OutputDirFor(cfg.OutputRoot, opts.APK)
	}
	return &Session{
		cfg:    cfg,
		opts:   opts,
		log:    log,
		id:     uuid.New(),
		layout: droidbot.Layout{Root: opts.OutputDir},
	}
}

// OutputDir reports the resolved output directory.
func (s *Session) OutputDir() string { return s.opts.OutputDir }

// Run executes the session. It returns once droidbot has exited (or the
// duration elapsed / ctx was cancelled), cleanup completed, and reports
// were written.
func (s *Session) Run(ctx context.Context) (*Manifest, error) {
	started := time.Now()
	s.log.Info("starting run",
		zap.String("run_id", s.id.String()),
		zap.String("apk", s.opts.APK),
		zap.String("output", s.opts.OutputDir),
		zap.Bool("rotate", s.opts.Rotate),
		zap.Bool("power_cycle", s.opts.PowerCycle),
		zap.Bool("home_button", s.opts.HomeButton))

	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create output dir: %w", err)
	}

	client := adb.New(s.cfg.ADBPath,
		adb.WithSerial(s.opts.Serial),
		adb.WithTimeout(s.cfg.CommandTimeout),
		adb.WithLogger(s.log))

	if err := client.WaitForDevice(ctx); err != nil {
		return nil, fmt.Errorf("session: wait for device: %w", err)
	}

	runner := droidbot.NewRunner(s.cfg.DroidbotPath, s.opts.APK, s.opts.OutputDir, s.log)
	runner.Serial = s.opts.Serial
	runner.KeepEnv = s.opts.KeepEnv
	if err := runner.Start(); err != nil {
		return nil, err
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if s.opts.Duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.opts.Duration)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	perturbators, device := s.buildPerturbators(client)

	var g *errgroup.Group
	var watcher *watch.Watcher
	if len(perturbators) > 0 {
		watcher = watch.New(s.layout.EventsDir(), s.log)
		if err := watcher.Start(runCtx); err != nil {
			s.log.Warn("event watcher unavailable, running without perturbation", zap.Error(err))
			watcher = nil
		} else {
			g = s.dispatch(runCtx, watcher, perturbators)
		}
	}

	// Block until droidbot exits or the run is cut short.
	select {
	case <-runner.Done():
		if err := runner.Err(); err != nil {
			s.log.Warn("droidbot exited with error", zap.Error(err))
		}
	case <-runCtx.Done():
		s.log.Info("run deadline reached, stopping droidbot")
	}

	cancel()
	if err := runner.Stop(s.cfg.StopGrace); err != nil && err != droidbot.ErrNotStarted {
		s.log.Warn("droidbot stop", zap.Error(err))
	}
	if watcher != nil {
		watcher.Stop()
	}
	if g != nil {
		_ = g.Wait() // handler errors are logged where they occur
	}

	s.cleanup(perturbators, device, client)

	manifest := s.analyze(started, perturbators)
	if err := analysis.WriteReport(s.layout.ManifestPath(), manifest); err != nil {
		return manifest, fmt.Errorf("session: write manifest: %w", err)
	}
	s.log.Info("run finished",
		zap.String("manifest", s.layout.ManifestPath()),
		zap.Duration("took", time.Since(started)))
	return manifest, nil
}

// buildPerturbators assembles the enabled perturbators. The returned
// device is the capture wrapper (raw frame recording included when
// configured); the caller closes it during cleanup.
func (s *Session) buildPerturbators(client *adb.Client) ([]perturb.Perturbator, *captureDevice) {
	device := newCaptureDevice(client, s.layout, s.cfg.KeepRawFrames, s.log)

	var list []perturb.Perturbator
	if s.opts.Rotate {
		list = append(list, perturb.NewRotator(device, s.cfg.Rotate.MinInterval, s.log))
	}
	if s.opts.PowerCycle {
		list = append(list, perturb.NewPowerCycler(device,
			s.cfg.PowerCycle.MinInterval, s.cfg.PowerCycle.OffDelay,
			s.cfg.PowerCycle.MaxCycles, s.log))
	}
	if s.opts.HomeButton {
		app, err := droidbot.LoadAppInfo(s.layout.AppJSONPath())
		if err != nil {
			s.log.Warn("app.json unavailable, using placeholder app info", zap.Error(err))
		}
		list = append(list, perturb.NewHomeButton(device, app,
			s.layout.HomeButtonShotsDir(),
			s.cfg.HomeButton.MinInterval, s.cfg.HomeButton.MaxActions, s.log))
	}
	return list, device
}

// dispatch fans the event stream out to every perturbator, each on its
// own goroutine so a sleeping perturbator does not stall the others.
func (s *Session) dispatch(ctx context.Context, watcher *watch.Watcher, perturbators []perturb.Perturbator) *errgroup.Group {
	g, gctx := errgroup.WithContext(ctx)

	subs := make([]chan droidbot.Event, len(perturbators))
	for i := range perturbators {
		subs[i] = make(chan droidbot.Event, 64)
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range subs {
				close(ch)
			}
		}()
		for ev := range watcher.Events() {
			for i, ch := range subs {
				select {
				case ch <- ev:
				default:
					s.log.Warn("perturbator lagging, dropping event",
						zap.String("perturbator", perturbators[i].Name()),
						zap.String("event", ev.File))
				}
			}
		}
		return nil
	})

	for i, p := range perturbators {
		i, p := i, p
		g.Go(func() error {
			for ev := range subs[i] {
				if err := p.Handle(gctx, ev); err != nil {
					s.log.Warn("perturbation failed",
						zap.String("perturbator", p.Name()),
						zap.Error(err))
				}
			}
			return nil
		})
	}
	return g
}

// cleanup restores device state: rotation back to portrait, app
// force-stopped. Runs on a fresh context since the run context is gone.
func (s *Session) cleanup(perturbators []perturb.Perturbator, device *captureDevice, client *adb.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, p := range perturbators {
		if err := p.Shutdown(ctx); err != nil {
			s.log.Warn("perturbator shutdown", zap.String("perturbator", p.Name()), zap.Error(err))
		}
	}
	if err := device.Close(); err != nil {
		s.log.Warn("frame archive close", zap.Error(err))
	}

	if app, err := droidbot.LoadAppInfo(s.layout.AppJSONPath()); err == nil {
		if err := client.KillApp(ctx, app.Package); err != nil {
			s.log.Warn("force-stop app", zap.Error(err))
		}
	}
}

// analyze runs all detectors over the collected artifacts and folds the
// results into the manifest. Analyzer failures degrade to warnings; a run
// with partial artifacts still gets a manifest.
func (s *Session) analyze(started time.Time, perturbators []perturb.Perturbator) *Manifest {
	m := NewManifest(s.id.String(), s.opts, started)

	for _, p := range perturbators {
		switch p := p.(type) {
		case *perturb.Rotator:
			m.Perturbations.Rotations = p.Rotations()
		case *perturb.PowerCycler:
			m.Perturbations.PowerCycles = p.Cycles()
		case *perturb.HomeButton:
			m.Perturbations.HomeButtonActions = p.Actions()
		}
	}

	if report, err := analysis.DetectDataLoss(s.opts.OutputDir, s.layout.HomeButtonShotsDir(),
		s.cfg.Analysis.DataLossThreshold, s.log); err != nil {
		s.log.Warn("data-loss analysis failed", zap.Error(err))
	} else {
		if err := analysis.WriteReport(s.layout.DataLossReportPath(), report); err != nil {
			s.log.Warn("write data-loss report", zap.Error(err))
		}
		m.Analysis.ActionsAnalyzed = report.Statistics.TotalActionsAnalyzed
		m.Analysis.PotentialDataLoss = report.Statistics.PotentialDataLoss
		m.Analysis.DataLossRate = report.Statistics.DataLossRate
	}

	if report, err := analysis.DetectStateLoss(s.layout.EventsDir(), s.layout.StatesDir(),
		s.cfg.Analysis.StateLossThreshold, s.log); err != nil {
		s.log.Warn("state-loss analysis failed", zap.Error(err))
	} else {
		if err := analysis.WriteReport(s.layout.StateLossReportPath(), report); err != nil {
			s.log.Warn("write state-loss report", zap.Error(err))
		}
		m.Analysis.StateHashMismatches = report.Issues.StateHashMismatches
	}

	if report, err := analysis.DetectCrashes(s.layout.StatesDir(), s.layout.EventsDir(),
		s.cfg.Analysis.CrashThreshold, s.log); err != nil {
		s.log.Warn("crash analysis failed", zap.Error(err))
	} else {
		if err := analysis.WriteReport(s.layout.CrashReportPath(), report); err != nil {
			s.log.Warn("write crash report", zap.Error(err))
		}
		m.Analysis.CrashPoints = len(report.CrashPoints)
		for _, point := range report.CrashPoints {
			m.Analysis.CrashStateIndices = append(m.Analysis.CrashStateIndices, point.StateIndex)
		}
	}

	m.FinishedAt = time.Now()
	return m
}
