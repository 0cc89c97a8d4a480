// Package integration provides domain entities for the Storyblok integration:
// user options, the resolved configuration and injected bootstrap scripts.
package integration

// IntegrationOptions are the user-supplied options for the Storyblok integration.
// Optional booleans are pointers so an omitted value can be told apart from false.
type IntegrationOptions struct {
	// AccessToken is the access token from the Storyblok space.
	AccessToken string `json:"accessToken" yaml:"accessToken"`
	// UseCustomAPI disables the bundled API client so callers can fetch data their own way.
	UseCustomAPI *bool `json:"useCustomApi,omitempty" yaml:"useCustomApi,omitempty"`
	// APIOptions are passed to the client constructor (cache, region, and more).
	APIOptions *APIOptions `json:"apiOptions,omitempty" yaml:"apiOptions,omitempty"`
	// Bridge enables the Storyblok live-preview bridge. Enabled by default.
	Bridge *bool `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	// Components maps Storyblok content-type identifiers to component paths.
	Components ComponentMapping `json:"components,omitempty" yaml:"components,omitempty"`
}

// APIOptions configure the Storyblok client. Fields the integration does not know
// about travel in Extra and are handed to the client untouched.
type APIOptions struct {
	Region                 string            `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint               string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Version                string            `json:"version,omitempty" yaml:"version,omitempty"`
	Cache                  *CacheOptions     `json:"cache,omitempty" yaml:"cache,omitempty"`
	Timeout                int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RateLimit              int               `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	Headers                map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	ResolveRelations       []string          `json:"resolveRelations,omitempty" yaml:"resolveRelations,omitempty"`
	ResolveLinks           string            `json:"resolveLinks,omitempty" yaml:"resolveLinks,omitempty"`
	ResolveNestedRelations bool              `json:"resolveNestedRelations" yaml:"resolveNestedRelations"`
	Extra                  map[string]any    `json:"-" yaml:",inline"`
}

// CacheOptions select the client cache implementation.
type CacheOptions struct {
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Clear string `json:"clear,omitempty" yaml:"clear,omitempty"`
}

// Clone returns a shallow copy whose maps and slices are not shared with the receiver.
func (o APIOptions) Clone() APIOptions {
	out := o
	if o.Cache != nil {
		c := *o.Cache
		out.Cache = &c
	}
	if o.Headers != nil {
		out.Headers = make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			out.Headers[k] = v
		}
	}
	if o.ResolveRelations != nil {
		out.ResolveRelations = append([]string(nil), o.ResolveRelations...)
	}
	if o.Extra != nil {
		out.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// ComponentMapping maps content-type identifiers to component paths.
type ComponentMapping map[string]string

// Clone returns a copy of the mapping. A nil mapping clones to an empty one.
func (m ComponentMapping) Clone() ComponentMapping {
	out := make(ComponentMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ResolvedConfig is the merged integration configuration. It is built once per
// configuration pass and passed by value afterwards.
type ResolvedConfig struct {
	AccessToken  string           `json:"accessToken"`
	UseCustomAPI bool             `json:"useCustomApi"`
	Bridge       bool             `json:"bridge"`
	APIOptions   APIOptions       `json:"apiOptions"`
	Components   ComponentMapping `json:"components"`
}

// BoolPtr is a small helper for building IntegrationOptions literals.
func BoolPtr(v bool) *bool { return &v }
