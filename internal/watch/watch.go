// Package watch streams droidbot events as they land in the output
// directory's events/ folder.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dld-tools/dld/internal/droidbot"
)

var ErrEventsDirTimeout = errors.New("watch: events directory was not created in time")

// DirWaitTimeout bounds how long Start waits for droidbot to create the
// events directory.
const DirWaitTimeout = 30 * time.Second

// Watcher tails a droidbot events directory. Existing event files are
// replayed in sorted order before new ones stream in.
type Watcher struct {
	dir string
	log *zap.Logger

	dirWait time.Duration
	events  chan droidbot.Event
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a Watcher over the given events directory.
func New(dir string, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dir:     dir,
		log:     log,
		dirWait: DirWaitTimeout,
		events:  make(chan droidbot.Event, 64),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Events yields parsed droidbot events. Closed when the watcher stops.
func (w *Watcher) Events() <-chan droidbot.Event {
	return w.events
}

// Start waits for the events directory to exist, then begins streaming in
// a goroutine: files already on disk are replayed in sorted order first,
// new ones follow. Replay happens inside the goroutine so a large backlog
// cannot block Start against the channel buffer before a consumer attaches.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.waitForDir(ctx); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw
	w.log.Info("watching events directory", zap.String("dir", w.dir))

	// Files that landed before the watch was registered. Names that also
	// arrive through fsnotify are deduplicated in run.
	backlog := w.listExisting()

	go w.run(ctx, backlog)
	return nil
}

// Stop shuts the stream down and closes the events channel.
func (w *Watcher) Stop() {
	select {
	case <-w.stopCh:
		return
	default:
		close(w.stopCh)
	}
	<-w.doneCh
}

func (w *Watcher) waitForDir(ctx context.Context) error {
	deadline := time.Now().Add(w.dirWait)
	for {
		if _, err := os.Stat(w.dir); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrEventsDirTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return errors.New("watch: stopped")
		case <-time.After(time.Second):
		}
	}
}

func (w *Watcher) listExisting() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("read events dir failed", zap.Error(err))
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (w *Watcher) run(ctx context.Context, backlog []string) {
	defer close(w.doneCh)
	defer close(w.events)
	defer w.fsw.Close()

	seen := make(map[string]bool, len(backlog))
	for _, name := range backlog {
		seen[name] = true
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}
		w.emit(ctx, name)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == 0 || !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			name := filepath.Base(ev.Name)
			if seen[name] {
				continue
			}
			seen[name] = true
			w.emit(ctx, name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
		}
	}
}

// emit parses one event file and delivers it. Decode failures are logged
// and dropped; droidbot occasionally writes files we race against.
func (w *Watcher) emit(ctx context.Context, name string) {
	ev, err := droidbot.LoadEvent(filepath.Join(w.dir, name))
	if err != nil {
		w.log.Warn("skipping event file", zap.String("file", name), zap.Error(err))
		return
	}
	ev.File = name

	select {
	case w.events <- ev:
	case <-ctx.Done():
	case <-w.stopCh:
	}
}
