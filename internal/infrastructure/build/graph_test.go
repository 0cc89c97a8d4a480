package build

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingPlugin(name, specifier string, loads *int) Plugin {
	return Plugin{
		Name:      name,
		ResolveID: virtualResolver(specifier),
		Load: func(_ context.Context, id string) (*Module, error) {
			*loads++
			return &Module{ID: id, Exports: map[string]any{"name": name}}, nil
		},
	}
}

func TestModuleGraph_ResolvesInOrderAndCaches(t *testing.T) {
	var firstLoads, secondLoads int
	g := NewModuleGraph()
	g.Use(countingPlugin("first", "virtual:a", &firstLoads), countingPlugin("second", "virtual:a", &secondLoads))

	m, err := g.Import(context.Background(), "virtual:a")
	require.NoError(t, err)
	assert.Equal(t, "first", m.Exports["name"])
	assert.Equal(t, "\x00virtual:a", m.ID)

	again, err := g.Import(context.Background(), "virtual:a")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, 1, firstLoads)
	assert.Zero(t, secondLoads)
	assert.Equal(t, []string{"first", "second"}, g.Plugins())
}

func TestModuleGraph_Unresolved(t *testing.T) {
	_, err := NewModuleGraph().Import(context.Background(), "virtual:missing")
	assert.ErrorIs(t, err, ErrUnresolvedModule)
}

func TestModuleGraph_LoadErrorsAreCached(t *testing.T) {
	loads := 0
	boom := errors.New("boom")
	g := NewModuleGraph()
	g.Use(Plugin{
		Name:      "failing",
		ResolveID: virtualResolver("virtual:x"),
		Load: func(context.Context, string) (*Module, error) {
			loads++
			return nil, boom
		},
	})

	_, err := g.Import(context.Background(), "virtual:x")
	assert.ErrorIs(t, err, boom)
	_, err = g.Import(context.Background(), "virtual:x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, loads)
}

func TestModuleGraph_NilModule(t *testing.T) {
	g := NewModuleGraph()
	g.Use(Plugin{
		Name:      "empty",
		ResolveID: virtualResolver("virtual:x"),
		Load:      func(context.Context, string) (*Module, error) { return nil, nil },
	})

	_, err := g.Import(context.Background(), "virtual:x")
	assert.ErrorIs(t, err, ErrModuleNotLoaded)
}
