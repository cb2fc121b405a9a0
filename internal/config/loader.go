package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Loader reads a YAML or TOML config file and watches it, together with the
// input file it names, for changes.
type Loader struct {
	path     string // empty for a static config
	static   Config
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// NewStaticLoader serves cfg without a backing file. Watch still follows the
// input file when cfg.Input.Watch is set.
func NewStaticLoader(cfg *Config) *Loader {
	c := *cfg
	applyDefaults(&c)
	l := &Loader{static: c}
	l.current = &c
	return l
}

// Path returns the config file path, or "" for a static config.
func (l *Loader) Path() string {
	return l.path
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that reloads on changes to the config
// file or the input file. Directories are watched rather than the files
// themselves so editors that replace a file by rename are still seen.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	watched := make(map[string]bool)
	addDir := func(file string) error {
		if file == "" {
			return nil
		}
		dir := filepath.Dir(file)
		if watched[dir] {
			return nil
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("config watcher add %s: %w", dir, err)
		}
		watched[dir] = true
		return nil
	}
	if err := addDir(l.path); err != nil {
		w.Close()
		return nil, err
	}
	if cfg := l.Config(); cfg.Input.Watch {
		if err := addDir(cfg.Input.Path); err != nil {
			w.Close()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if !l.relevant(ev.Name) {
					continue
				}
				cfg, err := l.Reload()
				if err != nil {
					slog.Warn("reload failed, keeping previous config", "path", ev.Name, "err", err)
					continue
				}
				if cfg.Input.Watch {
					if err := addDir(cfg.Input.Path); err != nil {
						slog.Warn("cannot watch input", "path", cfg.Input.Path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

func (l *Loader) relevant(name string) bool {
	name = filepath.Clean(name)
	if l.path != "" && name == filepath.Clean(l.path) {
		return true
	}
	cfg := l.Config()
	return cfg.Input.Watch && name == filepath.Clean(cfg.Input.Path)
}

// Reload forces an immediate re-read of the config file and notifies every
// OnChange callback.
func (l *Loader) Reload() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*Config, error) {
	if l.path == "" {
		c := l.static
		return &c, nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	cfg, err := Decode(l.path, data)
	if err != nil {
		return nil, err
	}
	// A relative input path is taken from the config file's directory.
	if cfg.Input.Path != "" && !filepath.IsAbs(cfg.Input.Path) {
		cfg.Input.Path = filepath.Join(filepath.Dir(l.path), cfg.Input.Path)
	}
	return cfg, nil
}

// Decode parses data as YAML or TOML depending on name's extension and
// applies defaults.
func Decode(name string, data []byte) (*Config, error) {
	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", name, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}
