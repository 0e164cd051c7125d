// Package watch reloads data when a local candidate file changes on
// disk, so edits to exported files show up on the dashboard without a
// manual refresh.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches event bursts: exporters often write a file in
// several chunks, or write a temp file and rename it into place.
const debounceWindow = 500 * time.Millisecond

// Watcher invokes onChange once per debounced burst of changes to any
// of the watched files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool
	onChange func()

	mu    sync.Mutex
	timer *time.Timer
}

// New sets up a watcher over the parent directories of paths. Watching
// the directory rather than the file catches atomic replace-by-rename.
// Unresolvable paths are skipped with a log line; the watcher still
// covers the rest.
func New(paths []string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool),
		onChange: onChange,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			log.Printf("[watch] skipping %s: %v", p, err)
			continue
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			log.Printf("[watch] cannot watch %s: %v", dir, err)
		}
	}

	return w, nil
}

// Run consumes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			log.Printf("[watch] %s changed (%s)", event.Name, event.Op)
			w.bump()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[watch] error: %v", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// bump starts the debounce timer, or pushes it out if already running.
func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		w.timer = time.AfterFunc(debounceWindow, w.fire)
		return
	}
	w.timer.Reset(debounceWindow)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	w.timer = nil
	w.mu.Unlock()
	w.onChange()
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
