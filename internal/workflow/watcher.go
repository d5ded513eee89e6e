package workflow

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"wardroom/internal/logging"
)

// Watcher hot-reloads the registry when the overlay file changes on
// disk. It watches the containing directory because editors typically
// replace the file rather than write it in place.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	registry    *Registry
	path        string
	debounce    map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the registry's overlay file.
func NewWatcher(registry *Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		registry:    registry,
		path:        registry.Path(),
		debounce:    make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // rapid saves collapse to one reload
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		// The directory may appear later; reloads just won't be live.
		logging.Workflow("watch failed for %s: %v (hot reload disabled)", dir, err)
	} else {
		logging.Workflow("watching %s for definition changes", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Workflow("error closing watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Workflow("watch error: %v", err)

		case <-ticker.C:
			w.processSettled()
		}
	}
}

// handleEvent records a relevant event for debounced processing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.mu.Lock()
	w.debounce[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled reloads once events have settled past the debounce
// window. A failed reload keeps the previous definitions.
func (w *Watcher) processSettled() {
	w.mu.Lock()
	now := time.Now()
	settled := false
	for path, at := range w.debounce {
		if now.Sub(at) >= w.debounceDur {
			delete(w.debounce, path)
			settled = true
		}
	}
	w.mu.Unlock()

	if !settled {
		return
	}

	if err := w.registry.Reload(); err != nil {
		logging.Workflow("hot reload failed, keeping previous definitions: %v", err)
		return
	}
	logging.Workflow("definitions hot-reloaded from %s", w.path)
}
