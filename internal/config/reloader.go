package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
)

// Reload is what listeners receive: the new config and the top-level
// sections that differ from the previous one.
type Reload struct {
	Config  *Config
	Changed []string
}

// Touches reports whether any of the named sections changed.
func (r Reload) Touches(sections ...string) bool {
	for _, s := range sections {
		for _, c := range r.Changed {
			if c == s {
				return true
			}
		}
	}
	return false
}

// Reloader swaps the config atomically on reload and notifies listeners.
type Reloader struct {
	configPath string
	dotenvPath string
	current    atomic.Pointer[Config]
	mu         sync.Mutex // serializes reload
	listeners  []func(Reload)
	logger     *slog.Logger
}

// NewReloader creates a Reloader with the given initial config.
func NewReloader(configPath, dotenvPath string, initial *Config) *Reloader {
	r := &Reloader{
		configPath: configPath,
		dotenvPath: dotenvPath,
		logger:     slog.Default(),
	}
	r.current.Store(initial)
	return r
}

// Current returns the current config (lock-free atomic read).
func (r *Reloader) Current() *Config {
	return r.current.Load()
}

// Path returns the config file being reloaded.
func (r *Reloader) Path() string {
	return r.configPath
}

// OnReload registers a callback invoked after a successful reload.
func (r *Reloader) OnReload(fn func(Reload)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload re-reads the .env file and the config, then notifies listeners. On
// error the current config is kept.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ReloadDotenv(r.dotenvPath); err != nil {
		return fmt.Errorf("reload dotenv: %w", err)
	}
	cfg, err := Load(r.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	prev := r.current.Swap(cfg)
	ev := Reload{Config: cfg, Changed: ChangedSections(prev, cfg)}
	r.logger.Info("config reloaded", "path", r.configPath, "changed", ev.Changed)

	for _, fn := range r.listeners {
		fn(ev)
	}
	return nil
}

// Watch reloads on every value received from signals until ctx is done.
// Failed reloads are logged and the previous config stays active.
func (r *Reloader) Watch(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-signals:
			if err := r.Reload(); err != nil {
				r.logger.Warn("config reload failed", "path", r.configPath, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// ChangedSections lists the top-level sections (by JSON name) that differ
// between a and b. A nil a counts as every section changed.
func ChangedSections(a, b *Config) []string {
	if b == nil {
		return nil
	}
	if a == nil {
		a = &Config{}
	}
	va, vb := reflect.ValueOf(*a), reflect.ValueOf(*b)
	t := va.Type()

	var changed []string
	for i := 0; i < t.NumField(); i++ {
		if !reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			changed = append(changed, t.Field(i).Tag.Get("json"))
		}
	}
	return changed
}
