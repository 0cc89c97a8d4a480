// Package build provides the host-side plugin model: declarative plugin
// descriptors, virtual modules and the module graph that resolves them.
package build

import "context"

// virtualPrefix marks resolved ids that have no backing file.
const virtualPrefix = "\x00"

// Module is a loaded module. Exports is what Go hosts consume; Source is the
// equivalent JS module text for hosts that evaluate JavaScript.
type Module struct {
	ID      string         `json:"id"`
	Exports map[string]any `json:"-"`
	Source  string         `json:"source"`
}

// Plugin is a build-time plugin descriptor. ResolveID claims a specifier and
// returns its resolved id; Load produces the module for a resolved id, or nil
// when the id belongs to another plugin.
type Plugin struct {
	Name      string
	ResolveID func(specifier string) (string, bool)
	Load      func(ctx context.Context, id string) (*Module, error)
}

func virtualResolver(specifier string) func(string) (string, bool) {
	resolved := virtualPrefix + specifier
	return func(id string) (string, bool) {
		if id == specifier {
			return resolved, true
		}
		return "", false
	}
}
