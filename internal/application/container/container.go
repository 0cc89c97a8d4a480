// Package container provides dependency injection for the preview host singletons
package container

import (
	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/pipeline"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/bridge"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-storyblok/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	Pipeline *pipeline.Pipeline
	Hub      *bridge.Hub

	// Options applied to every (re)build of the Storyblok integration
	IntegrationOptions []integration.Option

	Preview PreviewSettings
	Logger  *logging.ChanneledLogger
}

// PreviewSettings configure editor previews and webhooks.
type PreviewSettings struct {
	PreviewToken   string
	JWTSecret      string
	WebhookSecret  string
	DefaultVersion string
	AllowedOrigins []string
}

// NewContainer creates and wires all singletons
func NewContainer(logger *logging.ChanneledLogger, preview PreviewSettings) *Container {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	var options []integration.Option
	options = append(options, integration.WithLogger(logger.Integration()))
	if config.BridgeScriptURL != "" {
		options = append(options, integration.WithBridgeScriptURL(config.BridgeScriptURL))
	}

	return &Container{
		Pipeline:           pipeline.New(logger),
		Hub:                bridge.NewHub(logger.Bridge()),
		IntegrationOptions: options,
		Preview:            preview,
		Logger:             logger,
	}
}
