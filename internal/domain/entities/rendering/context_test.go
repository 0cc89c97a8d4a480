package rendering

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingResolver struct {
	calls []recordedCall
	out   string
}

type recordedCall struct {
	doc  json.RawMessage
	opts *RichTextOptions
}

func (r *recordingResolver) Render(doc json.RawMessage, opts *RichTextOptions) string {
	r.calls = append(r.calls, recordedCall{doc: doc, opts: opts})
	return r.out
}

type stubClient struct {
	resolver RichTextResolver
}

func (c *stubClient) RichTextResolver() RichTextResolver { return c.resolver }

func newTestContext(t *testing.T) (*RenderContext, *bytes.Buffer, *[]string) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rc := NewRenderContext("pass-1", logger)
	var diagnostics []string
	rc.OnDiagnostic(func(accessor string) { diagnostics = append(diagnostics, accessor) })
	return rc, &buf, &diagnostics
}

func TestGetClient_BeforeInstall(t *testing.T) {
	rc, buf, diagnostics := newTestContext(t)

	assert.Nil(t, rc.GetClient())
	assert.False(t, rc.Initialized())
	assert.Contains(t, buf.String(), msgClientUninitialized)
	assert.Equal(t, []string{"getClient"}, *diagnostics)
}

func TestGetClient_ReturnsInstalledInstance(t *testing.T) {
	rc, buf, diagnostics := newTestContext(t)
	client := &stubClient{}

	require.NoError(t, rc.Install(client))

	got := rc.GetClient()
	assert.Same(t, client, got)
	assert.True(t, rc.Initialized())
	assert.Empty(t, buf.String())
	assert.Empty(t, *diagnostics)
}

func TestInstall_OncePerPass(t *testing.T) {
	rc, _, _ := newTestContext(t)

	require.NoError(t, rc.Install(&stubClient{}))
	assert.ErrorIs(t, rc.Install(&stubClient{}), ErrAlreadyBootstrapped)
}

func TestInstall_NilClientStaysUninitialized(t *testing.T) {
	rc, _, diagnostics := newTestContext(t)

	require.NoError(t, rc.Install(nil))
	assert.False(t, rc.Initialized())
	assert.Nil(t, rc.GetClient())
	assert.Equal(t, []string{"getClient"}, *diagnostics)
	assert.ErrorIs(t, rc.Install(&stubClient{}), ErrAlreadyBootstrapped)
}

func TestInstall_TypedNilClientStaysUninitialized(t *testing.T) {
	rc, _, diagnostics := newTestContext(t)

	var client *stubClient
	require.NoError(t, rc.Install(client))
	assert.False(t, rc.Initialized())
	assert.Nil(t, rc.GetClient())

	assert.NotPanics(t, func() {
		out, ok := rc.RenderRichText(json.RawMessage(`{"type":"doc"}`), nil)
		assert.False(t, ok)
		assert.Empty(t, out)
	})
	assert.Equal(t, []string{"getClient", "renderRichText"}, *diagnostics)
}

func TestRenderRichText_TypedNilResolver(t *testing.T) {
	rc, _, diagnostics := newTestContext(t)
	var resolver *recordingResolver
	require.NoError(t, rc.Install(&stubClient{resolver: resolver}))

	assert.NotPanics(t, func() {
		_, ok := rc.RenderRichText(json.RawMessage(`{}`), nil)
		assert.False(t, ok)
	})
	assert.Equal(t, []string{"renderRichText"}, *diagnostics)
}

func TestIsNilClient(t *testing.T) {
	var typed *stubClient
	assert.True(t, IsNilClient(nil))
	assert.True(t, IsNilClient(typed))
	assert.False(t, IsNilClient(&stubClient{}))
}

func TestRenderRichText_BeforeInstall(t *testing.T) {
	rc, buf, diagnostics := newTestContext(t)

	assert.NotPanics(t, func() {
		out, ok := rc.RenderRichText(json.RawMessage(`{"type":"doc"}`), nil)
		assert.False(t, ok)
		assert.Empty(t, out)
	})
	assert.Contains(t, buf.String(), msgRichTextUninitialized)
	assert.Equal(t, []string{"renderRichText"}, *diagnostics)
}

func TestRenderRichText_MissingResolverCapability(t *testing.T) {
	rc, _, diagnostics := newTestContext(t)
	require.NoError(t, rc.Install(&stubClient{}))

	out, ok := rc.RenderRichText(json.RawMessage(`{}`), nil)
	assert.False(t, ok)
	assert.Empty(t, out)
	assert.Equal(t, []string{"renderRichText"}, *diagnostics)
}

func TestRenderRichText_ForwardsToResolver(t *testing.T) {
	rc, _, _ := newTestContext(t)
	resolver := &recordingResolver{out: "<p>hello</p>"}
	require.NoError(t, rc.Install(&stubClient{resolver: resolver}))

	doc := json.RawMessage(`{"type":"doc","content":[]}`)
	opts := &RichTextOptions{}
	out, ok := rc.RenderRichText(doc, opts)

	require.True(t, ok)
	assert.Equal(t, "<p>hello</p>", out)
	require.Len(t, resolver.calls, 1)
	assert.Equal(t, doc, resolver.calls[0].doc)
	assert.Same(t, opts, resolver.calls[0].opts)
}

func TestContextAccessors(t *testing.T) {
	t.Run("no render context", func(t *testing.T) {
		ctx := context.Background()
		assert.Nil(t, GetClient(ctx))
		out, ok := RenderRichText(ctx, json.RawMessage(`{}`), nil)
		assert.False(t, ok)
		assert.Empty(t, out)
	})

	t.Run("with render context", func(t *testing.T) {
		rc, _, _ := newTestContext(t)
		client := &stubClient{resolver: &recordingResolver{out: "ok"}}
		require.NoError(t, rc.Install(client))
		ctx := WithRenderContext(context.Background(), rc)

		got, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, rc, got)
		assert.Same(t, client, GetClient(ctx))

		out, ok := RenderRichText(ctx, json.RawMessage(`{}`), nil)
		assert.True(t, ok)
		assert.Equal(t, "ok", out)
	})
}
