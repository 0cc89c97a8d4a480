package services

import (
	"bytes"
	"text/template"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/build"
)

// DefaultBridgeScriptURL is the Storyblok v2 live-preview bridge.
const DefaultBridgeScriptURL = "https://app.storyblok.com/f/storyblok-v2-latest.js"

var (
	ssrScriptTmpl = template.Must(template.New("ssr").Parse(`
import { {{.Export}} } from "{{.Module}}";
globalThis.{{.Export}} = {{.Export}};
`))

	// The load promise has no catch handler; a failed bridge load surfaces as an
	// unhandled rejection in the browser.
	bridgeScriptTmpl = template.Must(template.New("bridge").Parse(`
const loadStoryblokBridge = () =>
  new Promise((resolve, reject) => {
    if (window.StoryblokBridge) return resolve();
    const script = document.createElement("script");
    script.src = {{printf "%q" .ScriptURL}};
    script.id = "storyblok-javascript-bridge";
    script.async = true;
    script.onload = () => resolve();
    script.onerror = (err) => reject(err);
    document.head.appendChild(script);
  });

loadStoryblokBridge().then(() => {
  const { StoryblokBridge, location } = window;
  const storyblokInstance = new StoryblokBridge();

  storyblokInstance.on(["published", "change"], (event) => {
    if (!event.slugChanged) {
      location.reload(true);
    }
  });
});
`))
)

// ScriptInjector produces the bootstrap scripts injected into generated pages.
type ScriptInjector struct {
	bridgeScriptURL string
}

// NewScriptInjector creates a script injector. An empty URL selects the default bridge.
func NewScriptInjector(bridgeScriptURL string) *ScriptInjector {
	if bridgeScriptURL == "" {
		bridgeScriptURL = DefaultBridgeScriptURL
	}
	return &ScriptInjector{bridgeScriptURL: bridgeScriptURL}
}

// Inject returns the page-ssr bootstrap, followed by the browser bridge script
// when cfg.Bridge is set.
func (s *ScriptInjector) Inject(cfg integration.ResolvedConfig) ([]integration.InjectedScript, error) {
	bootstrap := &integration.SSRBootstrap{Module: build.InitModuleID, Export: build.ClientExport}

	ssrSource, err := execute(ssrScriptTmpl, bootstrap)
	if err != nil {
		return nil, err
	}

	scripts := []integration.InjectedScript{{
		Stage:     integration.StagePageSSR,
		Source:    ssrSource,
		Bootstrap: bootstrap,
	}}

	if !cfg.Bridge {
		return scripts, nil
	}

	bridgeSource, err := execute(bridgeScriptTmpl, struct{ ScriptURL string }{s.bridgeScriptURL})
	if err != nil {
		return nil, err
	}

	return append(scripts, integration.InjectedScript{
		Stage:  integration.StagePage,
		Source: bridgeSource,
	}), nil
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
