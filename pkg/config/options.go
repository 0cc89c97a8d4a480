package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
)

var ErrOptionsFile = errors.New("invalid integration options file")

// LoadOptions reads integration options from a YAML file. An empty path yields
// zero options.
func LoadOptions(path string) (integration.IntegrationOptions, error) {
	var opts integration.IntegrationOptions
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("%w: %s: %v", ErrOptionsFile, path, err)
	}
	return opts, nil
}

// ApplyEnv overlays the environment settings on file options. The env access
// token wins over the file; optional flags only apply when set.
func ApplyEnv(opts integration.IntegrationOptions) integration.IntegrationOptions {
	if AccessToken != "" {
		opts.AccessToken = AccessToken
	}
	if Bridge != nil {
		opts.Bridge = integration.BoolPtr(*Bridge)
	}
	if UseCustomAPI != nil {
		opts.UseCustomAPI = integration.BoolPtr(*UseCustomAPI)
	}
	if Region != "" {
		if opts.APIOptions == nil {
			opts.APIOptions = &integration.APIOptions{}
		}
		if opts.APIOptions.Region == "" {
			opts.APIOptions.Region = Region
		}
	}
	return opts
}

// ResolveOptions loads the options file and overlays the environment.
func ResolveOptions(path string) (integration.IntegrationOptions, error) {
	opts, err := LoadOptions(path)
	if err != nil {
		return opts, err
	}
	return ApplyEnv(opts), nil
}
