package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-storyblok/pkg/config"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORYBLOK_OPTIONS_FILE", "")
	t.Setenv("STORYBLOK_ACCESS_TOKEN", "tok")
	t.Setenv("STORYBLOK_USE_CUSTOM_API", "true")
	t.Setenv("LOG_LEVEL", "error")
	t.Cleanup(config.Load)
	config.Load()
}

func TestPrintScripts(t *testing.T) {
	setupEnv(t)
	c, err := buildContainer(context.Background())
	require.NoError(t, err)
	defer c.Hub.Close()

	var out bytes.Buffer
	require.NoError(t, printScripts(&out, c))
	assert.Contains(t, out.String(), "// stage: page-ssr")
	assert.Contains(t, out.String(), "// stage: page")
	assert.Contains(t, out.String(), "storyblokApiInstance")
}

func TestPrintModules(t *testing.T) {
	setupEnv(t)
	c, err := buildContainer(context.Background())
	require.NoError(t, err)
	defer c.Hub.Close()

	var out bytes.Buffer
	require.NoError(t, printModules(context.Background(), &out, c))
	assert.Contains(t, out.String(), "// virtual:storyblok-init")
	assert.Contains(t, out.String(), "// virtual:storyblok-components")
}

func TestBuildContainer_MissingToken(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYBLOK_ACCESS_TOKEN", "")
	config.Load()

	_, err := buildContainer(context.Background())
	assert.Error(t, err)
}
