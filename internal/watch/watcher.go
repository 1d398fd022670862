// Package watch observes the program source file and reconciles reloadable
// functions against the running build.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tshot-runtime/internal/observability"
)

// Watcher debounces change events on a single source file. The parent
// directory is watched rather than the file itself because editors commonly
// save by rename-replace, which would otherwise drop the watch.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
	log      *observability.Logger
}

// NewWatcher creates a watcher that invokes onChange after content-change
// events on path have settled for the debounce interval.
func NewWatcher(path string, debounce time.Duration, onChange func(), log *observability.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		log:      log,
	}
}

// Run watches until the context is cancelled. Rename and removal of the
// source are logged and ignored; the prior program state stays live.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	fire := make(chan struct{}, 1)
	var mu sync.Mutex
	var timer *time.Timer
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create):
				schedule()
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				w.log.Info("source %s renamed or removed; keeping the running program", w.path)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error: %v", err)

		case <-fire:
			w.onChange()

		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		}
	}
}
