// Package storyblok provides a minimal Storyblok content delivery client and the
// default rich-text resolver.
package storyblok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/rendering"
)

var (
	ErrInvalidRegion    = errors.New("invalid storyblok region")
	ErrInvalidCacheType = errors.New("invalid storyblok cache type")
	ErrStoryNotFound    = errors.New("story not found")
)

var regionHosts = map[string]string{
	"":   "api.storyblok.com",
	"eu": "api.storyblok.com",
	"us": "api-us.storyblok.com",
	"ap": "api-ap.storyblok.com",
	"ca": "api-ca.storyblok.com",
	"cn": "app.storyblokchina.cn",
}

const defaultTimeout = 10 * time.Second

// Story is a Storyblok story as returned by the CDN API.
type Story struct {
	ID       int64           `json:"id"`
	UUID     string          `json:"uuid"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	FullSlug string          `json:"full_slug"`
	Content  json.RawMessage `json:"content"`
}

// Component returns the content type of the story's root blok.
func (s *Story) Component() string {
	var head struct {
		Component string `json:"component"`
	}
	_ = json.Unmarshal(s.Content, &head)
	return head.Component
}

// Client talks to the Storyblok CDN API.
type Client struct {
	accessToken string
	options     integration.APIOptions
	baseURL     string
	httpClient  *http.Client
	resolver    *RichTextResolver

	cacheEnabled bool
	cacheMu      sync.RWMutex
	cache        map[string]*Story
}

// NewClient validates opts and builds a client.
func NewClient(accessToken string, opts integration.APIOptions) (*Client, error) {
	host, ok := regionHosts[opts.Region]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRegion, opts.Region)
	}

	cacheEnabled := false
	if opts.Cache != nil {
		switch opts.Cache.Type {
		case "", "none":
		case "memory":
			cacheEnabled = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidCacheType, opts.Cache.Type)
		}
	}

	baseURL := opts.Endpoint
	if baseURL == "" {
		baseURL = "https://" + host + "/v2"
	}

	timeout := defaultTimeout
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout) * time.Second
	}

	return &Client{
		accessToken:  accessToken,
		options:      opts,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		resolver:     NewRichTextResolver(),
		cacheEnabled: cacheEnabled,
		cache:        make(map[string]*Story),
	}, nil
}

// RichTextResolver implements rendering.Client.
func (c *Client) RichTextResolver() rendering.RichTextResolver {
	return c.resolver
}

// Options returns the API options the client was built with.
func (c *Client) Options() integration.APIOptions {
	return c.options
}

// GetStory fetches a story by full slug. An empty version falls back to the
// configured default, then to "published".
func (c *Client) GetStory(ctx context.Context, slug, version string) (*Story, error) {
	if version == "" {
		version = c.options.Version
	}
	if version == "" {
		version = "published"
	}
	slug = strings.Trim(slug, "/")
	cacheKey := version + ":" + slug

	if c.cacheEnabled {
		c.cacheMu.RLock()
		story, ok := c.cache[cacheKey]
		c.cacheMu.RUnlock()
		if ok {
			return story, nil
		}
	}

	params := url.Values{}
	params.Set("token", c.accessToken)
	params.Set("version", version)
	if len(c.options.ResolveRelations) > 0 {
		params.Set("resolve_relations", strings.Join(c.options.ResolveRelations, ","))
	}
	if c.options.ResolveLinks != "" {
		params.Set("resolve_links", c.options.ResolveLinks)
	}
	if c.options.ResolveNestedRelations {
		params.Set("resolve_level", "2")
	}

	endpoint := c.baseURL + "/cdn/stories/" + escapeSlug(slug) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build story request: %w", err)
	}
	for k, v := range c.options.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story %s: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, slug)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("storyblok returned %d for %s: %s", resp.StatusCode, slug, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Story Story `json:"story"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", slug, err)
	}

	if c.cacheEnabled {
		c.cacheMu.Lock()
		c.cache[cacheKey] = &payload.Story
		c.cacheMu.Unlock()
	}
	return &payload.Story, nil
}

// FlushCache drops every cached story.
func (c *Client) FlushCache() {
	c.cacheMu.Lock()
	c.cache = make(map[string]*Story)
	c.cacheMu.Unlock()
}

func escapeSlug(slug string) string {
	segments := strings.Split(slug, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
