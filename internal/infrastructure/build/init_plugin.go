package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/storyblok"
)

const (
	// InitModuleID exports the configured client.
	InitModuleID = "virtual:storyblok-init"
	// ClientExport is the init module's only export.
	ClientExport = "storyblokApiInstance"
)

// ErrMissingAccessToken halts the build: no page can render without a client.
var ErrMissingAccessToken = errors.New("storyblok access token is required")

// ClientFactory constructs the Storyblok client for a build.
type ClientFactory func(accessToken string, opts integration.APIOptions) (rendering.Client, error)

// CustomAPIFunc supplies the client export when the bundled API client is disabled.
// It may return nil, in which case page accessors report an uninitialized client.
type CustomAPIFunc func(cfg integration.ResolvedConfig) (rendering.Client, error)

// DefaultClientFactory builds the bundled Storyblok client.
func DefaultClientFactory(accessToken string, opts integration.APIOptions) (rendering.Client, error) {
	client, err := storyblok.NewClient(accessToken, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// StoryblokInitPlugin returns the plugin that provides InitModuleID. With
// UseCustomAPI set it never constructs a client and exports custom's result instead.
func StoryblokInitPlugin(cfg integration.ResolvedConfig, custom CustomAPIFunc, factory ClientFactory) Plugin {
	if factory == nil {
		factory = DefaultClientFactory
	}
	resolvedID := virtualPrefix + InitModuleID

	return Plugin{
		Name:      "vite-plugin-storyblok-init",
		ResolveID: virtualResolver(InitModuleID),
		Load: func(_ context.Context, id string) (*Module, error) {
			if id != resolvedID {
				return nil, nil
			}
			if strings.TrimSpace(cfg.AccessToken) == "" {
				return nil, ErrMissingAccessToken
			}

			var client rendering.Client
			var err error
			if cfg.UseCustomAPI {
				if custom != nil {
					client, err = custom(cfg)
				}
			} else {
				client, err = factory(cfg.AccessToken, cfg.APIOptions)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to initialize storyblok client: %w", err)
			}

			source, err := initModuleSource(cfg)
			if err != nil {
				return nil, err
			}

			return &Module{
				ID:      id,
				Exports: map[string]any{ClientExport: client},
				Source:  source,
			}, nil
		},
	}
}

func initModuleSource(cfg integration.ResolvedConfig) (string, error) {
	apiOptions, err := apiOptionsJSON(cfg.APIOptions)
	if err != nil {
		return "", fmt.Errorf("failed to encode api options: %w", err)
	}

	use := "[apiPlugin]"
	if cfg.UseCustomAPI {
		use = "[]"
	}

	var sb strings.Builder
	sb.WriteString(`import { storyblokInit, apiPlugin } from "@storyblok/js";` + "\n")
	sb.WriteString("const { storyblokApi } = storyblokInit({\n")
	sb.WriteString("  accessToken: " + strconv.Quote(cfg.AccessToken) + ",\n")
	sb.WriteString("  use: " + use + ",\n")
	sb.WriteString("  apiOptions: " + apiOptions + ",\n")
	sb.WriteString("});\n")
	sb.WriteString("export const " + ClientExport + " = storyblokApi;\n")
	return sb.String(), nil
}

// apiOptionsJSON flattens Extra back into the options object.
func apiOptionsJSON(opts integration.APIOptions) (string, error) {
	known, err := json.Marshal(opts)
	if err != nil {
		return "", err
	}
	merged := map[string]any{}
	for k, v := range opts.Extra {
		merged[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return "", err
	}
	for k, v := range fields {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
