package build

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnresolvedModule = errors.New("unresolved module")
	ErrModuleNotLoaded  = errors.New("no plugin loaded module")
)

type moduleEntry struct {
	module *Module
	err    error
}

// ModuleGraph resolves specifiers through plugins in registration order and
// loads every resolved id at most once.
type ModuleGraph struct {
	mu      sync.Mutex
	plugins []Plugin
	modules map[string]moduleEntry
}

// NewModuleGraph creates an empty module graph
func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{modules: make(map[string]moduleEntry)}
}

// Use appends plugins to the graph.
func (g *ModuleGraph) Use(plugins ...Plugin) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.plugins = append(g.plugins, plugins...)
}

// Plugins returns the registered plugin names in order.
func (g *ModuleGraph) Plugins() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.plugins))
	for _, p := range g.plugins {
		names = append(names, p.Name)
	}
	return names
}

// Import resolves and loads specifier. Load results, including failures, are
// cached for the lifetime of the graph.
func (g *ModuleGraph) Import(ctx context.Context, specifier string) (*Module, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	plugin, id, ok := g.resolve(specifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedModule, specifier)
	}

	if entry, cached := g.modules[id]; cached {
		return entry.module, entry.err
	}

	module, err := plugin.Load(ctx, id)
	if err == nil && module == nil {
		err = fmt.Errorf("%w: %s", ErrModuleNotLoaded, specifier)
	}
	if err != nil {
		err = fmt.Errorf("plugin %s: %w", plugin.Name, err)
	}
	g.modules[id] = moduleEntry{module: module, err: err}
	return module, err
}

func (g *ModuleGraph) resolve(specifier string) (Plugin, string, bool) {
	for _, p := range g.plugins {
		if p.ResolveID == nil || p.Load == nil {
			continue
		}
		if id, ok := p.ResolveID(specifier); ok {
			return p, id, true
		}
	}
	return Plugin{}, "", false
}
