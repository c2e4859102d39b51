// Package views registers the console's view modules by component id.
package views

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/vango-dev/consoleroutes/pkg/router"
)

// ErrUnknownComponent is returned when a component id is not registered.
var ErrUnknownComponent = errors.New("views: unknown component")

// Module is an opaque view module identified by its component id and the
// source file that implements it.
type Module struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// ViewName implements router.View.
func (m Module) ViewName() string {
	return m.ID
}

// Registry maps component ids to lazy loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]router.ComponentLoader
	modules map[string]Module
	assets  fs.FS
}

// Option configures a Registry.
type Option func(*Registry)

// WithAssets makes module loaders check that the module's source exists in
// fsys. A missing source is a load failure.
func WithAssets(fsys fs.FS) Option {
	return func(r *Registry) {
		r.assets = fsys
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		loaders: make(map[string]router.ComponentLoader),
		modules: make(map[string]Module),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a loader under id, replacing any previous one.
func (r *Registry) Register(id string, load router.ComponentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[id] = router.Lazy(load)
}

// RegisterModule registers a Module view backed by source.
func (r *Registry) RegisterModule(id, source string) {
	m := Module{ID: id, Source: source}
	r.mu.Lock()
	r.modules[id] = m
	r.mu.Unlock()

	r.Register(id, func(ctx context.Context) (router.View, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.assets != nil {
			if _, err := fs.Stat(r.assets, source); err != nil {
				return nil, fmt.Errorf("module %s: %w", id, err)
			}
		}
		return m, nil
	})
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaders[id]
	return ok
}

// Load returns a loader for id. The id is looked up when the loader runs,
// so views registered later are found; an id still unknown at that point
// fails with ErrUnknownComponent.
func (r *Registry) Load(id string) router.ComponentLoader {
	return func(ctx context.Context) (router.View, error) {
		r.mu.RLock()
		load, ok := r.loaders[id]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, id)
		}
		return load(ctx)
	}
}

// Module returns the module registered under id, if it was registered with
// RegisterModule.
func (r *Registry) Module(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	return m, ok
}

// IDs returns the registered component ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.loaders))
	for id := range r.loaders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
