package services

import (
	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
)

// ConfigResolver merges user options with integration defaults.
type ConfigResolver struct{}

// NewConfigResolver creates a new config resolver
func NewConfigResolver() *ConfigResolver {
	return &ConfigResolver{}
}

// Resolve applies defaults, then user options, then the nested API options, and
// finally forces ResolveNestedRelations on. It never fails; access token presence
// is enforced by the init plugin at load time.
func (r *ConfigResolver) Resolve(opts integration.IntegrationOptions) integration.ResolvedConfig {
	cfg := integration.ResolvedConfig{
		UseCustomAPI: false,
		Bridge:       true,
	}

	cfg.AccessToken = opts.AccessToken
	if opts.UseCustomAPI != nil {
		cfg.UseCustomAPI = *opts.UseCustomAPI
	}
	if opts.Bridge != nil {
		cfg.Bridge = *opts.Bridge
	}
	cfg.Components = opts.Components.Clone()

	if opts.APIOptions != nil {
		cfg.APIOptions = opts.APIOptions.Clone()
	}
	cfg.APIOptions.ResolveNestedRelations = true

	return cfg
}
