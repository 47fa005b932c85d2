package droidbot

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var ErrNotStarted = errors.New("droidbot: runner not started")

// Runner manages one droidbot subprocess.
type Runner struct {
	Bin     string // droidbot executable, usually "droidbot"
	APK     string
	Out     string // output directory (-o)
	Serial  string // device serial (-d), optional
	KeepEnv bool   // forward -keep_env

	log  *zap.Logger
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// NewRunner builds a Runner; Start launches the process.
func NewRunner(bin, apk, out string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Bin: bin, APK: apk, Out: out, log: log}
}

// Args returns the droidbot command line (excluding the binary).
func (r *Runner) Args() []string {
	args := []string{"-a", r.APK, "-o", r.Out}
	if r.Serial != "" {
		args = append(args, "-d", r.Serial)
	}
	if r.KeepEnv {
		args = append(args, "-keep_env")
	}
	return args
}

// Start launches droidbot. Output streams to the parent's stdout/stderr so
// droidbot's own progress stays visible.
func (r *Runner) Start() error {
	if err := os.MkdirAll(r.Out, 0o755); err != nil {
		return fmt.Errorf("droidbot: create output dir: %w", err)
	}

	cmd := exec.Command(r.Bin, r.Args()...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("droidbot: start %s: %w", r.Bin, err)
	}
	r.cmd = cmd
	r.done = make(chan struct{})
	go func() {
		r.err = cmd.Wait()
		close(r.done)
	}()

	r.log.Info("droidbot started",
		zap.String("bin", r.Bin),
		zap.Strings("args", r.Args()),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

// Done is closed when the process exits; Err then holds the Wait result.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Err reports how the process exited. Valid only after Done is closed.
func (r *Runner) Err() error {
	return r.err
}

// Stop terminates droidbot: SIGTERM, then SIGKILL after the grace period.
// Safe to call after the process already exited.
func (r *Runner) Stop(grace time.Duration) error {
	if r.cmd == nil || r.cmd.Process == nil {
		return ErrNotStarted
	}

	select {
	case <-r.done:
		return nil // already exited
	default:
	}

	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		r.log.Warn("droidbot terminate failed", zap.Error(err))
	}

	select {
	case <-r.done:
		return nil
	case <-time.After(grace):
	}

	r.log.Warn("droidbot did not exit, killing", zap.Duration("grace", grace))
	if err := r.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("droidbot: kill: %w", err)
	}
	<-r.done
	return nil
}
