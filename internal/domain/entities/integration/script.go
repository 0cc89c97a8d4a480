package integration

// InjectionStage names the host lifecycle point a script is injected at.
type InjectionStage string

const (
	// StagePageSSR runs during server-side rendering, before page code.
	StagePageSSR InjectionStage = "page-ssr"
	// StagePage runs in the browser.
	StagePage InjectionStage = "page"
)

// SSRBootstrap is the structured form of a page-ssr script: import Export from
// Module and publish it to the render context.
type SSRBootstrap struct {
	Module string `json:"module"`
	Export string `json:"export"`
}

// InjectedScript is a bootstrap script targeted at one injection stage.
type InjectedScript struct {
	Stage     InjectionStage `json:"stage"`
	Source    string         `json:"source"`
	Bootstrap *SSRBootstrap  `json:"bootstrap,omitempty"`
}
