// Package rendering provides domain entities for page rendering: the per-pass
// render context that carries the Storyblok client and its accessors.
package rendering

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"sync"
)

// ErrAlreadyBootstrapped is returned when a second SSR bootstrap tries to install a
// client into a render pass that already ran its bootstrap.
var ErrAlreadyBootstrapped = errors.New("render pass already bootstrapped")

const (
	msgClientUninitialized   = "storyblokApiInstance has not been initialized correctly"
	msgRichTextUninitialized = "Please initialize the Storyblok SDK before calling the renderRichText function"
)

// RichTextOptions tune a single rich-text render.
type RichTextOptions struct {
	// Schema overrides node and mark renderers by type name.
	Schema map[string]NodeRenderFunc
	// ResolveComponent renders embedded bloks. Nil drops them.
	ResolveComponent func(component string, blok json.RawMessage) string
}

// NodeRenderFunc renders one rich-text node or mark. children is the already
// rendered inner markup; for marks it is the wrapped text.
type NodeRenderFunc func(node json.RawMessage, children string) string

// RichTextResolver turns a rich-text document into markup.
type RichTextResolver interface {
	Render(doc json.RawMessage, opts *RichTextOptions) string
}

// Client is the Storyblok client handle as seen by page code. RichTextResolver
// may return nil when the client carries no resolver capability.
type Client interface {
	RichTextResolver() RichTextResolver
}

// IsNilClient reports whether c is nil or an interface holding a nil pointer.
func IsNilClient(c Client) bool {
	return isNil(c)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// clientSlot is Uninitialized until a non-nil client is installed.
type clientSlot struct {
	client      Client
	initialized bool
}

// RenderContext is scoped to one server-side render pass.
type RenderContext struct {
	PassID  string `json:"passId"`
	Slug    string `json:"slug,omitempty"`
	Version string `json:"version,omitempty"`

	mu           sync.RWMutex
	slot         clientSlot
	bootstrapped bool

	diag         *slog.Logger
	onDiagnostic func(accessor string)
}

// NewRenderContext creates an uninitialized render context. A nil logger falls back
// to slog.Default.
func NewRenderContext(passID string, diag *slog.Logger) *RenderContext {
	if diag == nil {
		diag = slog.Default()
	}
	return &RenderContext{PassID: passID, diag: diag}
}

// OnDiagnostic registers a callback invoked for every soft accessor failure.
func (rc *RenderContext) OnDiagnostic(fn func(accessor string)) {
	rc.onDiagnostic = fn
}

// Install publishes the client for this pass. It may run once; installing a nil
// client, including a typed nil pointer, marks the pass bootstrapped but leaves
// the slot uninitialized.
func (rc *RenderContext) Install(c Client) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.bootstrapped {
		return ErrAlreadyBootstrapped
	}
	rc.bootstrapped = true
	if !isNil(c) {
		rc.slot = clientSlot{client: c, initialized: true}
	}
	return nil
}

// Initialized reports whether a client has been installed.
func (rc *RenderContext) Initialized() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.slot.initialized
}

// GetClient returns the installed client. Before installation it logs a
// diagnostic and returns nil; callers must check before use.
func (rc *RenderContext) GetClient() Client {
	rc.mu.RLock()
	slot := rc.slot
	rc.mu.RUnlock()

	if !slot.initialized {
		rc.diagnose("getClient", msgClientUninitialized)
		return nil
	}
	return slot.client
}

// RenderRichText renders doc with the client's rich-text resolver. Without an
// installed client or resolver it logs a diagnostic and reports false.
func (rc *RenderContext) RenderRichText(doc json.RawMessage, opts *RichTextOptions) (string, bool) {
	rc.mu.RLock()
	slot := rc.slot
	rc.mu.RUnlock()

	var resolver RichTextResolver
	if slot.initialized {
		resolver = slot.client.RichTextResolver()
	}
	if isNil(resolver) {
		rc.diagnose("renderRichText", msgRichTextUninitialized)
		return "", false
	}
	return resolver.Render(doc, opts), true
}

func (rc *RenderContext) diagnose(accessor, msg string) {
	rc.diag.Error(msg, slog.String("accessor", accessor), slog.String("passId", rc.PassID))
	if rc.onDiagnostic != nil {
		rc.onDiagnostic(accessor)
	}
}

type ctxKey struct{}

// WithRenderContext attaches rc to ctx.
func WithRenderContext(ctx context.Context, rc *RenderContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the render context carried by ctx, if any.
func FromContext(ctx context.Context) (*RenderContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(*RenderContext)
	return rc, ok && rc != nil
}

// GetClient is the context-based form of RenderContext.GetClient. A ctx without a
// render context behaves like an uninitialized pass.
func GetClient(ctx context.Context) Client {
	rc, ok := FromContext(ctx)
	if !ok {
		slog.Default().Error(msgClientUninitialized, slog.String("accessor", "getClient"))
		return nil
	}
	return rc.GetClient()
}

// RenderRichText is the context-based form of RenderContext.RenderRichText.
func RenderRichText(ctx context.Context, doc json.RawMessage, opts *RichTextOptions) (string, bool) {
	rc, ok := FromContext(ctx)
	if !ok {
		slog.Default().Error(msgRichTextUninitialized, slog.String("accessor", "renderRichText"))
		return "", false
	}
	return rc.RenderRichText(doc, opts)
}
