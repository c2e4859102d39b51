package manifest

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/consoleroutes/internal/errors"
	"github.com/vango-dev/consoleroutes/pkg/router"
	"github.com/vango-dev/consoleroutes/pkg/views"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a manifest file into a live table when it changes.
// A manifest that fails to load or validate leaves the table as it was.
type Watcher struct {
	path     string
	table    *router.Table
	registry *views.Registry
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	onReload []func(error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits after the last event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for the manifest at path.
func NewWatcher(path string, table *router.Table, reg *views.Registry, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New("E205").Wrap(err)
	}
	w := &Watcher{
		path:     abs,
		table:    table,
		registry: reg,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// OnReload registers fn to run after every reload attempt with its result.
func (w *Watcher) OnReload(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Reload reads the manifest and swaps it into the table.
func (w *Watcher) Reload() error {
	err := w.reload()
	if err != nil {
		w.logger.Error("manifest reload failed, keeping current table", "path", w.path, "error", err)
	} else {
		w.logger.Info("manifest reloaded", "path", w.path, "records", w.table.Len())
	}

	w.mu.Lock()
	callbacks := append(([]func(error))(nil), w.onReload...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(err)
	}
	return err
}

func (w *Watcher) reload() error {
	routes, err := LoadFile(w.path, w.registry)
	if err != nil {
		return err
	}
	if err := w.table.Replace(routes); err != nil {
		return errors.New("E203").Wrap(err)
	}
	return nil
}

// Start begins watching the manifest's directory. Watching the directory
// keeps working across editors that save by rename.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("E205").Wrap(err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return errors.New("E205").Wrap(err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	w.logger.Info("watching manifest for changes", "path", w.path)
	return nil
}

// Run processes file events until ctx is done. Start must have been called.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return errors.New("E205").WithDetail("Run called before Start")
	}
	defer fsw.Close()

	filename := filepath.Base(w.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("manifest changed", "event", event.Op.String(), "file", event.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.Reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("manifest watcher error", "error", err)
		}
	}
}

// Watch starts the watcher and runs it until ctx is done.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	return w.Run(ctx)
}
