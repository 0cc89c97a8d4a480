package build

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/rendering"
)

type fakeClient struct{}

func (fakeClient) RichTextResolver() rendering.RichTextResolver { return nil }

func importInit(t *testing.T, p Plugin) (*Module, error) {
	t.Helper()
	g := NewModuleGraph()
	g.Use(p)
	return g.Import(context.Background(), InitModuleID)
}

func TestInitPlugin_ConstructsClientOnce(t *testing.T) {
	calls := 0
	var gotOpts integration.APIOptions
	factory := func(token string, opts integration.APIOptions) (rendering.Client, error) {
		calls++
		assert.Equal(t, "tok", token)
		gotOpts = opts
		return &fakeClient{}, nil
	}

	cfg := integration.ResolvedConfig{
		AccessToken: "tok",
		APIOptions:  integration.APIOptions{Region: "us", ResolveNestedRelations: true, Extra: map[string]any{"maxRetries": 2}},
	}
	g := NewModuleGraph()
	g.Use(StoryblokInitPlugin(cfg, nil, factory))

	m, err := g.Import(context.Background(), InitModuleID)
	require.NoError(t, err)
	_, err = g.Import(context.Background(), InitModuleID)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "us", gotOpts.Region)
	assert.IsType(t, &fakeClient{}, m.Exports[ClientExport])
	assert.Contains(t, m.Source, `accessToken: "tok"`)
	assert.Contains(t, m.Source, "use: [apiPlugin]")
	assert.Contains(t, m.Source, `"resolveNestedRelations":true`)
	assert.Contains(t, m.Source, `"maxRetries":2`)
	assert.Contains(t, m.Source, "export const storyblokApiInstance = storyblokApi;")
}

func TestInitPlugin_MissingAccessToken(t *testing.T) {
	factory := func(string, integration.APIOptions) (rendering.Client, error) {
		t.Fatal("client must not be constructed without a token")
		return nil, nil
	}

	_, err := importInit(t, StoryblokInitPlugin(integration.ResolvedConfig{AccessToken: "  "}, nil, factory))
	assert.ErrorIs(t, err, ErrMissingAccessToken)
}

func TestInitPlugin_CustomAPI(t *testing.T) {
	factory := func(string, integration.APIOptions) (rendering.Client, error) {
		t.Fatal("bundled client must not be constructed with useCustomApi")
		return nil, nil
	}
	custom := &fakeClient{}
	cfg := integration.ResolvedConfig{AccessToken: "tok", UseCustomAPI: true}

	m, err := importInit(t, StoryblokInitPlugin(cfg, func(integration.ResolvedConfig) (rendering.Client, error) {
		return custom, nil
	}, factory))
	require.NoError(t, err)
	assert.Same(t, custom, m.Exports[ClientExport])
	assert.Contains(t, m.Source, "use: []")

	m, err = importInit(t, StoryblokInitPlugin(cfg, nil, factory))
	require.NoError(t, err)
	assert.Nil(t, m.Exports[ClientExport])
}

func TestInitPlugin_FactoryError(t *testing.T) {
	boom := errors.New("bad region")
	_, err := importInit(t, StoryblokInitPlugin(integration.ResolvedConfig{AccessToken: "tok"}, nil,
		func(string, integration.APIOptions) (rendering.Client, error) { return nil, boom }))
	assert.ErrorIs(t, err, boom)
}
