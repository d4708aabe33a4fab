package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the burst of events editors emit on save.
const reloadDebounce = 300 * time.Millisecond

// Reloader watches the config file and reloads it on change. Only settings
// that can change without rebinding (the log level) are expected to be
// consumed by callbacks.
type Reloader struct {
	mu        sync.RWMutex
	current   *Config
	cli       CLI
	logger    *slog.Logger
	callbacks []func(*Config)
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewReloader creates a Reloader for the file the initial config came from.
func NewReloader(cli *CLI, initial *Config, logger *slog.Logger) *Reloader {
	return &Reloader{
		current: initial,
		cli:     *cli,
		logger:  logger.With("component", "config_reloader"),
		stopCh:  make(chan struct{}),
	}
}

// Current returns the active configuration.
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnReload registers a callback invoked with the new config after a
// successful reload.
func (r *Reloader) OnReload(fn func(*Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Start begins watching the config file. It is a no-op when the
// configuration did not come from a file.
func (r *Reloader) Start() error {
	path := r.Current().FilePath()
	if path == "" {
		r.logger.Debug("no config file loaded; reload disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory so atomic renames by editors are still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}
	r.watcher = watcher

	r.logger.Info("config file watcher started", "path", path)
	go r.watchLoop(filepath.Clean(path))
	return nil
}

// Stop terminates the file watcher.
func (r *Reloader) Stop() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// Reload loads the config from disk, validates it and, if valid, swaps it
// in and notifies callbacks. It reports whether the reload succeeded.
func (r *Reloader) Reload() bool {
	cli := r.cli
	cli.Config = r.Current().FilePath()

	r.logger.Info("reloading configuration", "path", cli.Config)

	next, err := Load(&cli)
	if err != nil {
		r.logger.Error("config reload failed, keeping current", "path", cli.Config, "err", err)
		return false
	}

	r.mu.Lock()
	prev := r.current
	r.current = next
	callbacks := make([]func(*Config), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	r.logChanges(prev, next)

	for _, cb := range callbacks {
		cb(next)
	}
	return true
}

func (r *Reloader) watchLoop(path string) {
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() { r.Reload() })
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("file watcher error", "err", err)
		case <-r.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

// logChanges logs settings that changed. Listener settings need a restart.
func (r *Reloader) logChanges(prev, next *Config) {
	if prev.Log.Level != next.Log.Level {
		r.logger.Info("log level changed", "old", prev.Log.Level, "new", next.Log.Level)
	}
	if prev.Server.Addr() != next.Server.Addr() || prev.Server.Workers != next.Server.Workers {
		r.logger.Warn("server settings changed; restart to apply",
			"addr", next.Server.Addr(),
			"workers", next.Server.Workers,
		)
	}
}
