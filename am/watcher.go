package am

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
)

// DefaultDebounce is how long the watcher waits for writes to a config file
// to settle before reloading.
const DefaultDebounce = 500 * time.Millisecond

// ReloadCallback receives a validated config after a change on disk.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the configuration when its file changes and hands
// the result to registered callbacks. The parent directory is watched so
// editors that save by renaming a temporary file are still seen.
type ConfigWatcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	load      func() (*Config, error)
	callbacks []ReloadCallback
	current   *Config
	debounce  time.Duration
	pending   *time.Timer
	reloads   int
}

// NewConfigWatcher prepares a watcher for path. Nothing happens until Start.
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch directory of %s", abs)
	}
	return &ConfigWatcher{
		path:     abs,
		watcher:  w,
		load:     reloadGlobal,
		debounce: DefaultDebounce,
	}, nil
}

func reloadGlobal() (*Config, error) {
	Reset()
	return Load()
}

// OnReload registers fn. Callbacks run in registration order; an error from
// one is logged and does not stop the rest.
func (cw *ConfigWatcher) OnReload(fn ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, fn)
}

// SetLoader replaces how the config is read on change. The default resets
// and reloads the full cascade.
func (cw *ConfigWatcher) SetLoader(load func() (*Config, error)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.load = load
}

// SetDebounce changes how long the watcher waits for writes to settle.
func (cw *ConfigWatcher) SetDebounce(d time.Duration) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.debounce = d
}

// Current returns the last config that passed validation, or nil before the
// first successful reload.
func (cw *ConfigWatcher) Current() *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.current
}

// Reloads returns how many reloads have been applied.
func (cw *ConfigWatcher) Reloads() int {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.reloads
}

// Start watches in the background until Stop.
func (cw *ConfigWatcher) Start() {
	go cw.run()
}

// Stop ends watching and cancels a pending reload.
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	if cw.pending != nil {
		cw.pending.Stop()
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

func (cw *ConfigWatcher) run() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			logger.Debugw("Config file changed", "file", event.Name, "op", event.Op.String())
			cw.schedule()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

// relevant reports whether event touches the watched file itself.
func (cw *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if isScratchFile(event.Name) {
		return false
	}
	return filepath.Clean(event.Name) == cw.path
}

func (cw *ConfigWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.pending != nil {
		cw.pending.Stop()
	}
	cw.pending = time.AfterFunc(cw.debounce, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload rejected", "path", cw.path, logger.FieldError, err)
		}
	})
}

// reload reads and validates the config, then runs the callbacks. An
// invalid config leaves the previous one in effect.
func (cw *ConfigWatcher) reload() error {
	cw.mu.RLock()
	load := cw.load
	cw.mu.RUnlock()

	cfg, err := load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.WithHint(
			errors.Wrap(err, "reloaded config is invalid"),
			"the previous settings stay in effect until the file is fixed")
	}

	cw.mu.Lock()
	cw.current = cfg
	cw.reloads++
	callbacks := append([]ReloadCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	logger.Infow("Config reloaded", "path", cw.path)
	for _, fn := range callbacks {
		if err := fn(cfg); err != nil {
			logger.Warnw("Config reload callback failed", logger.FieldError, err)
		}
	}
	return nil
}

// isScratchFile matches editor swap, backup and temporary files.
func isScratchFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") {
		return true
	}
	switch filepath.Ext(base) {
	case ".swp", ".swx", ".tmp", ".bak":
		return true
	}
	return false
}
