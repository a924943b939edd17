package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler receives the freshly loaded configuration.
type ChangeHandler func(Loaded)

// Watcher reloads the config file when it changes on disk.
// Bursts of events are debounced so editors that write in several steps
// trigger one reload.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	handlers []ChangeHandler
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWatcher creates a watcher for path. The parent directory is watched so
// atomic rename-over-file saves are observed.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  w,
		logger:   logger.With("component", "config-watcher"),
		debounce: 300 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers a handler called after each reload.
func (cw *Watcher) OnChange(handler ChangeHandler) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.handlers = append(cw.handlers, handler)
}

// Start begins watching.
func (cw *Watcher) Start() error {
	if err := cw.watcher.Add(filepath.Dir(cw.path)); err != nil {
		return err
	}
	go cw.watchLoop()
	cw.logger.Info("config watcher started", "path", cw.path)
	return nil
}

// Stop halts the watcher and waits for the loop to exit.
func (cw *Watcher) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.stop)
		_ = cw.watcher.Close()
	})
}

// Done is closed when the watch loop exits.
func (cw *Watcher) Done() <-chan struct{} {
	return cw.done
}

func (cw *Watcher) watchLoop() {
	defer close(cw.done)
	var debounceTimer *time.Timer

	for {
		select {
		case <-cw.stop:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(cw.debounce, cw.reload)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("config watcher error", "error", err)
		}
	}
}

func (cw *Watcher) reload() {
	loaded := Load(cw.path)
	for _, w := range loaded.Warnings {
		cw.logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	cw.mu.Lock()
	handlers := make([]ChangeHandler, len(cw.handlers))
	copy(handlers, cw.handlers)
	cw.mu.Unlock()

	for _, h := range handlers {
		h(loaded)
	}
	cw.logger.Info("config reloaded", "path", cw.path, "exists", loaded.Exists)
}
