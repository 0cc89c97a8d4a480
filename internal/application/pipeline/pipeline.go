// Package pipeline is the Go host for integrations: it runs their setup hooks,
// owns the virtual module graph and executes the SSR bootstrap for every render
// pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/integration"
	domain "github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/bridge"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/build"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/performance"
)

var (
	ErrNotBuilt          = errors.New("pipeline has not been built")
	ErrInvalidClientType = errors.New("bootstrap export is not a storyblok client")
)

// setupRecorder is the SetupContext handed to integrations during a build.
type setupRecorder struct {
	plugins []build.Plugin
	scripts []domain.InjectedScript
}

func (r *setupRecorder) UpdateConfig(plugins ...build.Plugin) {
	r.plugins = append(r.plugins, plugins...)
}

func (r *setupRecorder) InjectScript(stage domain.InjectionStage, script domain.InjectedScript) {
	script.Stage = stage
	r.scripts = append(r.scripts, script)
}

// buildState is immutable once published.
type buildState struct {
	id      string
	graph   *build.ModuleGraph
	scripts []domain.InjectedScript
}

func (s *buildState) pageScripts() []domain.InjectedScript {
	var out []domain.InjectedScript
	for _, script := range s.scripts {
		if script.Stage == domain.StagePage {
			out = append(out, script)
		}
	}
	return out
}

func (s *buildState) module(ctx context.Context, specifier string) (*build.Module, error) {
	return s.graph.Import(ctx, specifier)
}

func (s *buildState) components(ctx context.Context) (domain.ComponentMapping, error) {
	module, err := s.module(ctx, build.ComponentsModuleID)
	if err != nil {
		return nil, err
	}
	return build.ComponentsFrom(module), nil
}

// Pass is one render pass. It stays bound to the build it began on, so a
// Rebuild while the page renders does not mix clients, components or scripts
// of two builds.
type Pass struct {
	*rendering.RenderContext
	state *buildState
}

// BuildID returns the id of the build the pass began on.
func (p *Pass) BuildID() string {
	return p.state.id
}

// PageScripts returns the browser-stage scripts of the pass's build.
func (p *Pass) PageScripts() []domain.InjectedScript {
	return p.state.pageScripts()
}

// Components returns the component mapping of the pass's build.
func (p *Pass) Components(ctx context.Context) (domain.ComponentMapping, error) {
	return p.state.components(ctx)
}

// Module imports specifier from the pass's module graph.
func (p *Pass) Module(ctx context.Context, specifier string) (*build.Module, error) {
	return p.state.module(ctx, specifier)
}

// Pipeline hosts integrations for a site.
type Pipeline struct {
	logger *logging.ChanneledLogger

	// buildMu serializes configuration passes.
	buildMu sync.Mutex

	mu    sync.RWMutex
	state *buildState
}

// New creates an unbuilt pipeline
func New(logger *logging.ChanneledLogger) *Pipeline {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Pipeline{logger: logger}
}

// Build runs one configuration pass. Every SSR bootstrap module is imported
// eagerly so plugin failures, such as a missing access token, stop the build.
// On failure the previous build stays active. Concurrent calls run one at a time.
func (p *Pipeline) Build(ctx context.Context, integrations ...integration.Descriptor) (err error) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	marker := performance.Start("pipeline:build")
	buildID := ulid.Make().String()
	logger := p.logger.Build().With(slog.String("buildId", buildID))
	defer func() {
		marker.SetError(err)
		marker.Complete()
		metrics.BuildPassesTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	recorder := &setupRecorder{}
	for _, desc := range integrations {
		if desc.Hooks.ConfigSetup == nil {
			continue
		}
		if err := desc.Hooks.ConfigSetup(recorder); err != nil {
			return fmt.Errorf("integration %s setup failed: %w", desc.Name, err)
		}
		logger.Debug("Integration setup completed", slog.String("integration", desc.Name))
	}

	graph := build.NewModuleGraph()
	graph.Use(recorder.plugins...)

	for _, script := range recorder.scripts {
		if script.Stage != domain.StagePageSSR || script.Bootstrap == nil {
			continue
		}
		if _, err := graph.Import(ctx, script.Bootstrap.Module); err != nil {
			return fmt.Errorf("build %s failed: %w", buildID, err)
		}
	}

	p.mu.Lock()
	p.state = &buildState{id: buildID, graph: graph, scripts: recorder.scripts}
	p.mu.Unlock()

	logger.Info("Build completed",
		slog.Any("plugins", graph.Plugins()),
		slog.Int("scripts", len(recorder.scripts)),
	)
	return nil
}

// Rebuild runs a new configuration pass for the Storyblok integration with opts.
// Passes already begun keep the client of the build they started on.
func (p *Pipeline) Rebuild(ctx context.Context, opts domain.IntegrationOptions, options ...integration.Option) error {
	return p.Build(ctx, integration.New(opts, options...).Descriptor())
}

func (p *Pipeline) current() (*buildState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state == nil {
		return nil, ErrNotBuilt
	}
	return p.state, nil
}

// BuildID returns the id of the active build, or "" before the first build.
func (p *Pipeline) BuildID() string {
	state, err := p.current()
	if err != nil {
		return ""
	}
	return state.id
}

// BeginPass starts a render pass on the active build and runs its page-ssr
// bootstraps in order.
func (p *Pipeline) BeginPass(ctx context.Context, slug string) (pass *Pass, err error) {
	defer func() {
		metrics.RenderPassesTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	state, err := p.current()
	if err != nil {
		return nil, err
	}

	passID := ulid.Make().String()
	rc := rendering.NewRenderContext(passID, p.logger.Render().With(
		slog.String("buildId", state.id),
		slog.String("slug", slug),
	))
	rc.Slug = slug
	rc.OnDiagnostic(func(accessor string) {
		metrics.AccessorDiagnosticsTotal.WithLabelValues(accessor).Inc()
	})

	for _, script := range state.scripts {
		if script.Stage != domain.StagePageSSR {
			continue
		}
		if script.Bootstrap == nil {
			p.logger.Render().Debug("Skipping page-ssr script without bootstrap", slog.String("passId", passID))
			continue
		}
		client, err := p.bootstrapClient(ctx, state.graph, script.Bootstrap)
		if err != nil {
			return nil, err
		}
		if err := rc.Install(client); err != nil {
			return nil, err
		}
	}

	return &Pass{RenderContext: rc, state: state}, nil
}

func (p *Pipeline) bootstrapClient(ctx context.Context, graph *build.ModuleGraph, bs *domain.SSRBootstrap) (rendering.Client, error) {
	module, err := graph.Import(ctx, bs.Module)
	if err != nil {
		return nil, err
	}
	export, ok := module.Exports[bs.Export]
	if !ok || export == nil {
		return nil, nil
	}
	client, ok := export.(rendering.Client)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is %T", ErrInvalidClientType, bs.Module, bs.Export, export)
	}
	if rendering.IsNilClient(client) {
		return nil, nil
	}
	return client, nil
}

// Scripts returns every injected script of the active build.
func (p *Pipeline) Scripts() []domain.InjectedScript {
	state, err := p.current()
	if err != nil {
		return nil
	}
	return append([]domain.InjectedScript(nil), state.scripts...)
}

// PageScripts returns the browser-stage scripts of the active build.
func (p *Pipeline) PageScripts() []domain.InjectedScript {
	state, err := p.current()
	if err != nil {
		return nil
	}
	return state.pageScripts()
}

// Components returns the component mapping registered by the active build.
func (p *Pipeline) Components(ctx context.Context) (domain.ComponentMapping, error) {
	state, err := p.current()
	if err != nil {
		return nil, err
	}
	return state.components(ctx)
}

// Module imports specifier from the active build's module graph.
func (p *Pipeline) Module(ctx context.Context, specifier string) (*build.Module, error) {
	state, err := p.current()
	if err != nil {
		return nil, err
	}
	return state.module(ctx, specifier)
}

type cacheFlusher interface {
	FlushCache()
}

// Reload is the reload action for live-preview events: cached content of the
// active build's client is dropped so the next pass sees the change.
func (p *Pipeline) Reload(ev bridge.Event) {
	metrics.ReloadsTotal.Inc()
	logger := p.logger.Bridge().With(slog.String("action", ev.Action), slog.Int64("storyId", ev.StoryID))

	module, err := p.Module(context.Background(), build.InitModuleID)
	if err != nil {
		logger.Warn("Reload skipped", slog.String("error", err.Error()))
		return
	}
	if flusher, ok := module.Exports[build.ClientExport].(cacheFlusher); ok && !isNilFlusher(flusher) {
		flusher.FlushCache()
	}
	logger.Info("Content reloaded")
}

func isNilFlusher(f cacheFlusher) bool {
	v := reflect.ValueOf(f)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
