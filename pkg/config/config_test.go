package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
)

const sampleOptions = `
accessToken: file-token
bridge: false
apiOptions:
  region: us
  cache:
    type: memory
  resolveRelations: [article.author]
  https: true
components:
  page: storyblok/Page.astro
  teaser: storyblok/Teaser.astro
`

func writeOptions(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "storyblok.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORYBLOK_BRIDGE", "")
	Load()
	assert.Equal(t, "8080", Port)
	assert.Nil(t, Bridge)
	assert.Equal(t, time.Hour, PreviewTokenTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORYBLOK_BRIDGE", "false")
	t.Setenv("STORYBLOK_USE_CUSTOM_API", "maybe")
	t.Setenv("PREVIEW_SESSION_TTL", "30m")
	t.Cleanup(Load)
	Load()

	assert.Equal(t, "9090", Port)
	require.NotNil(t, Bridge)
	assert.False(t, *Bridge)
	assert.Nil(t, UseCustomAPI)
	assert.Equal(t, 30*time.Minute, PreviewSessionTTL)
}

func TestLoadOptions(t *testing.T) {
	path := writeOptions(t, t.TempDir(), sampleOptions)

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", opts.AccessToken)
	require.NotNil(t, opts.Bridge)
	assert.False(t, *opts.Bridge)
	require.NotNil(t, opts.APIOptions)
	assert.Equal(t, "us", opts.APIOptions.Region)
	assert.Equal(t, "memory", opts.APIOptions.Cache.Type)
	assert.Equal(t, []string{"article.author"}, opts.APIOptions.ResolveRelations)
	assert.Equal(t, true, opts.APIOptions.Extra["https"])
	assert.Equal(t, integration.ComponentMapping{
		"page":   "storyblok/Page.astro",
		"teaser": "storyblok/Teaser.astro",
	}, opts.Components)
}

func TestLoadOptions_Errors(t *testing.T) {
	opts, err := LoadOptions("")
	require.NoError(t, err)
	assert.Empty(t, opts.AccessToken)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeOptions(t, t.TempDir(), "accessToken: [unterminated")
	_, err = LoadOptions(bad)
	assert.ErrorIs(t, err, ErrOptionsFile)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STORYBLOK_ACCESS_TOKEN", "env-token")
	t.Setenv("STORYBLOK_BRIDGE", "true")
	t.Setenv("STORYBLOK_REGION", "eu")
	t.Cleanup(Load)
	Load()

	opts := ApplyEnv(integration.IntegrationOptions{AccessToken: "file", Bridge: integration.BoolPtr(false)})
	assert.Equal(t, "env-token", opts.AccessToken)
	assert.True(t, *opts.Bridge)
	assert.Equal(t, "eu", opts.APIOptions.Region)

	kept := ApplyEnv(integration.IntegrationOptions{APIOptions: &integration.APIOptions{Region: "us"}})
	assert.Equal(t, "us", kept.APIOptions.Region)
}

func TestOptionsWatcher_DisabledWithoutPath(t *testing.T) {
	w := NewOptionsWatcher("", time.Millisecond, nil, nil)
	assert.NoError(t, w.Run(context.Background()))
}

func TestOptionsWatcher_ReloadsOnWrite(t *testing.T) {
	t.Setenv("STORYBLOK_ACCESS_TOKEN", "")
	t.Cleanup(Load)
	Load()

	dir := t.TempDir()
	path := writeOptions(t, dir, "accessToken: first\n")

	var mu sync.Mutex
	var got []string
	reload := func(_ context.Context, opts integration.IntegrationOptions) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, opts.AccessToken)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewOptionsWatcher(path, 20*time.Millisecond, reload, nil)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("accessToken: second\n"), 0o600)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "second", got[len(got)-1])
}

func TestOptionsWatcher_AppliesOneReloadAtATime(t *testing.T) {
	t.Setenv("STORYBLOK_ACCESS_TOKEN", "")
	t.Cleanup(Load)
	Load()

	dir := t.TempDir()
	path := writeOptions(t, dir, "accessToken: v0\n")

	var (
		mu      sync.Mutex
		running int
		overlap bool
		got     []string
	)
	reload := func(_ context.Context, opts integration.IntegrationOptions) error {
		mu.Lock()
		running++
		if running > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)

		mu.Lock()
		running--
		got = append(got, opts.AccessToken)
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewOptionsWatcher(path, 5*time.Millisecond, reload, nil)
	go func() { done <- w.Run(ctx) }()

	i := 0
	require.Eventually(t, func() bool {
		i++
		_ = os.WriteFile(path, []byte(fmt.Sprintf("accessToken: v%d\n", i)), 0o600)
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, overlap)
}
