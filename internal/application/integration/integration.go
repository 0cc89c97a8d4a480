// Package integration is the Storyblok integration entry point: it resolves the
// user options, hands the build plugins to the host and registers the bootstrap
// scripts.
package integration

import (
	"fmt"
	"log/slog"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/services"
	domain "github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/build"
)

// Name identifies the integration to hosts.
const Name = "@storyblok/astro"

// SetupContext is what a host offers an integration during configuration setup.
type SetupContext interface {
	UpdateConfig(plugins ...build.Plugin)
	InjectScript(stage domain.InjectionStage, script domain.InjectedScript)
}

// Hooks are the lifecycle hooks the integration implements.
type Hooks struct {
	ConfigSetup func(SetupContext) error
}

// Descriptor is the value a host consumes: a name and lifecycle hooks.
type Descriptor struct {
	Name  string
	Hooks Hooks
}

// Integration wires Storyblok into a host build.
type Integration struct {
	options         domain.IntegrationOptions
	resolver        *services.ConfigResolver
	injector        *services.ScriptInjector
	customAPI       build.CustomAPIFunc
	clientFactory   build.ClientFactory
	bridgeScriptURL string
	logger          *slog.Logger
}

// Option customizes an Integration.
type Option func(*Integration)

// WithCustomAPI supplies the client export used when UseCustomAPI is set.
func WithCustomAPI(fn build.CustomAPIFunc) Option {
	return func(i *Integration) { i.customAPI = fn }
}

// WithClientFactory replaces the bundled client constructor.
func WithClientFactory(fn build.ClientFactory) Option {
	return func(i *Integration) { i.clientFactory = fn }
}

// WithBridgeScriptURL overrides where the browser loads the live-preview bridge from.
func WithBridgeScriptURL(url string) Option {
	return func(i *Integration) { i.bridgeScriptURL = url }
}

// WithLogger sets the integration logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Integration) { i.logger = logger }
}

// New creates the integration for opts.
func New(opts domain.IntegrationOptions, options ...Option) *Integration {
	i := &Integration{
		options:  opts,
		resolver: services.NewConfigResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(i)
	}
	i.injector = services.NewScriptInjector(i.bridgeScriptURL)
	return i
}

// Config returns the resolved configuration for the integration's options.
func (i *Integration) Config() domain.ResolvedConfig {
	return i.resolver.Resolve(i.options)
}

// Descriptor returns the host-facing descriptor.
func (i *Integration) Descriptor() Descriptor {
	return Descriptor{
		Name:  Name,
		Hooks: Hooks{ConfigSetup: i.configSetup},
	}
}

// configSetup registers the init plugin before the components plugin, then the
// page-ssr bootstrap before the optional browser bridge script.
func (i *Integration) configSetup(host SetupContext) error {
	cfg := i.Config()

	host.UpdateConfig(
		build.StoryblokInitPlugin(cfg, i.customAPI, i.clientFactory),
		build.ComponentsPlugin(cfg.Components),
	)

	scripts, err := i.injector.Inject(cfg)
	if err != nil {
		return fmt.Errorf("failed to build injected scripts: %w", err)
	}
	for _, script := range scripts {
		host.InjectScript(script.Stage, script)
	}

	i.logger.Info("Storyblok integration configured",
		slog.Bool("bridge", cfg.Bridge),
		slog.Bool("useCustomApi", cfg.UseCustomAPI),
		slog.Int("components", len(cfg.Components)),
		slog.Int("scripts", len(scripts)),
	)
	return nil
}
