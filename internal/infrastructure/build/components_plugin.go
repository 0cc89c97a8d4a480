package build

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
)

const (
	// ComponentsModuleID exports the content-type to component mapping.
	ComponentsModuleID = "virtual:storyblok-components"
	// ComponentsExport is the components module's only export.
	ComponentsExport = "components"
)

// ComponentsPlugin registers components unchanged. A nil mapping registers an
// empty one.
func ComponentsPlugin(components integration.ComponentMapping) Plugin {
	mapping := components.Clone()
	resolvedID := virtualPrefix + ComponentsModuleID

	return Plugin{
		Name:      "vite-plugin-storyblok-components",
		ResolveID: virtualResolver(ComponentsModuleID),
		Load: func(_ context.Context, id string) (*Module, error) {
			if id != resolvedID {
				return nil, nil
			}
			return &Module{
				ID:      id,
				Exports: map[string]any{ComponentsExport: mapping.Clone()},
				Source:  componentsModuleSource(mapping),
			}, nil
		},
	}
}

func componentsModuleSource(mapping integration.ComponentMapping) string {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var imports, entries strings.Builder
	for i, key := range keys {
		ident := "c" + strconv.Itoa(i)
		imports.WriteString("import " + ident + " from " + strconv.Quote("/src/"+mapping[key]+".astro") + ";\n")
		entries.WriteString("  " + strconv.Quote(key) + ": " + ident + ",\n")
	}
	return imports.String() + "export default {\n" + entries.String() + "};\n"
}

// ComponentsFrom extracts the mapping from a loaded components module.
func ComponentsFrom(m *Module) integration.ComponentMapping {
	if m == nil {
		return integration.ComponentMapping{}
	}
	mapping, ok := m.Exports[ComponentsExport].(integration.ComponentMapping)
	if !ok {
		return integration.ComponentMapping{}
	}
	return mapping
}
