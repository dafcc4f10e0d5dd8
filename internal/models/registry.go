// Package models builds the vision chat models used to read facial expressions.
package models

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/moodstream/internal/config"
)

type provider struct {
	cfg   config.ProviderConfig
	once  sync.Once
	model model.BaseChatModel
	err   error
}

// ProviderInfo describes a configured provider without building it.
type ProviderInfo struct {
	Name    string `json:"name" yaml:"name"`
	Driver  string `json:"driver" yaml:"driver"`
	Model   string `json:"model" yaml:"model"`
	Default bool   `json:"default,omitempty" yaml:"default,omitempty"`
}

// Label returns "driver/model".
func (p ProviderInfo) Label() string {
	return p.Driver + "/" + p.Model
}

// Registry builds named models on first use. Its provider set is fixed at
// construction; a config reload builds a new Registry.
type Registry struct {
	providers   map[string]*provider
	defaultName string
}

// NewRegistry creates a model registry from config.
func NewRegistry(cfg config.ModelsConfig) *Registry {
	r := &Registry{
		providers:   make(map[string]*provider, len(cfg.Providers)),
		defaultName: cfg.Default,
	}
	for name, pc := range cfg.Providers {
		r.providers[name] = &provider{cfg: pc}
	}
	return r
}

// Get returns the named model, or the default one when name is empty,
// creating it on first use. A failed creation is remembered.
func (r *Registry) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		if r.defaultName == "" {
			return nil, fmt.Errorf("no default model configured")
		}
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("model provider %q not found", name)
	}

	p.once.Do(func() {
		p.model, p.err = CreateModel(ctx, p.cfg)
	})
	return p.model, p.err
}

// Default returns the default model.
func (r *Registry) Default(ctx context.Context) (model.BaseChatModel, error) {
	return r.Get(ctx, "")
}

// Info describes the named provider, or the default one when name is empty.
func (r *Registry) Info(name string) (ProviderInfo, bool) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return ProviderInfo{Name: name}, false
	}
	return ProviderInfo{
		Name:    name,
		Driver:  p.cfg.Driver,
		Model:   p.cfg.Model,
		Default: name == r.defaultName,
	}, true
}

// List describes every configured provider, sorted by name.
func (r *Registry) List() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(r.providers))
	for name := range r.providers {
		info, _ := r.Info(name)
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b ProviderInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
