package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/repolens/internal/debug"
)

// Watcher reruns a session's analysis when the repository changes on disk.
// Events are debounced so an editor save burst triggers one incremental run.
type Watcher struct {
	session  *Session
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onRun    func(error)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher bound to a session. onRun, if non-nil, is
// invoked after every triggered analysis with its outcome.
func NewWatcher(s *Session, onRun func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := time.Duration(s.cfg.Performance.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		session:  s,
		watcher:  fsw,
		debounce: debounce,
		onRun:    onRun,
	}, nil
}

// Start adds watches for the repository tree and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatches(w.session.cfg.Project.Root); err != nil {
		w.watcher.Close()
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	debug.LogScan("watching %s (debounce %s)\n", w.session.cfg.Project.Root, w.debounce)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are the scanner's problem, keep walking
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && len(name) > 0 && name[0] == '.' {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			debug.LogScan("watch %s failed: %v\n", path, addErr)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	// The timer is armed by the first event of a burst and pushed back by
	// each follow-up; analysis runs when the burst goes quiet.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories must be watched before files appear in them.
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addWatches(event.Name); err != nil {
						debug.LogScan("watch new dir %s failed: %v\n", event.Name, err)
					}
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.LogScan("watcher error: %v\n", err)

		case <-timer.C:
			err := w.session.Analyze(ctx)
			if err != nil {
				debug.LogAnalysis("watch-triggered analysis failed: %v\n", err)
			}
			if w.onRun != nil {
				w.onRun(err)
			}
		}
	}
}
