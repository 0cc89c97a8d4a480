package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/pipeline"
	domain "github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/integration"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/storyblok"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/presentation/templates"
)

const defaultSlug = "home"

// StoryFetcher is the part of a Storyblok client the page handler needs.
type StoryFetcher interface {
	GetStory(ctx context.Context, slug, version string) (*storyblok.Story, error)
}

// PageHandlers render stories through a render pass
type PageHandlers struct {
	pipeline *pipeline.Pipeline
	logger   *logging.ChanneledLogger
}

// NewPageHandlers creates page handlers with injected dependencies
func NewPageHandlers(p *pipeline.Pipeline, logger *logging.ChanneledLogger) *PageHandlers {
	return &PageHandlers{pipeline: p, logger: logger}
}

// GetPage renders the story at the request slug
func (h *PageHandlers) GetPage(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	start := time.Now()
	slug := strings.Trim(c.Param("slug"), "/")
	if slug == "" {
		slug = defaultSlug
	}

	version := "published"
	if preview, ok := middleware.GetPreviewContext(c); ok {
		version = preview.Version
	}

	marker := performance.Start("pipeline:pass")
	defer marker.Complete()
	marker.AddMetadata("slug", slug)

	pass, err := h.pipeline.BeginPass(c.Request.Context(), slug)
	if err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelRender, "begin_pass", err, map[string]any{"slug": slug})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	pass.Version = version
	marker.AddMetadata("buildId", pass.BuildID())
	ctx := rendering.WithRenderContext(c.Request.Context(), pass.RenderContext)

	fetcher, ok := rendering.GetClient(ctx).(StoryFetcher)
	if !ok {
		err := errors.New("storyblok client is not initialized")
		marker.SetError(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	story, err := fetcher.GetStory(ctx, slug, version)
	if err != nil {
		marker.SetError(err)
		if errors.Is(err, storyblok.ErrStoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.LogError(logging.ChannelRender, "get_story", err, map[string]any{"slug": slug, "version": version})
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	components, err := pass.Components(ctx)
	if err != nil {
		h.logger.Render().Warn("Component mapping unavailable", slog.String("error", err.Error()))
		components = domain.ComponentMapping{}
	}

	page := h.pageData(ctx, pass, story, components)

	var buf bytes.Buffer
	if err := templates.RenderPage(&buf, page); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Render().Info("Render pass completed",
		slog.String("passId", pass.PassID),
		slog.String("buildId", pass.BuildID()),
		slog.String("slug", slug),
		slog.String("version", version),
		slog.Duration("duration", time.Since(start)),
	)
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *PageHandlers) pageData(ctx context.Context, pass *pipeline.Pass, story *storyblok.Story, components domain.ComponentMapping) templates.PageData {
	component := story.Component()
	editable := rendering.Editable(story.Content)

	page := templates.PageData{
		Title:     story.Name,
		Component: component,
		Source:    components[component],
		BlokC:     editable["data-blok-c"],
		BlokUID:   editable["data-blok-uid"],
		Version:   pass.Version,
	}

	opts := &rendering.RichTextOptions{ResolveComponent: componentPlaceholder(components)}
	gjson.ParseBytes(story.Content).ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() || value.Get("type").String() != "doc" {
			return true
		}
		rendered, ok := rendering.RenderRichText(ctx, json.RawMessage(value.Raw), opts)
		if !ok {
			return true
		}
		page.Fields = append(page.Fields, templates.Field{Name: key.String(), HTML: template.HTML(rendered)})
		return true
	})

	for _, script := range pass.PageScripts() {
		page.Scripts = append(page.Scripts, template.JS(script.Source))
	}
	return page
}

// componentPlaceholder renders embedded bloks as mount points for the mapped component.
func componentPlaceholder(components domain.ComponentMapping) func(string, json.RawMessage) string {
	return func(component string, blok json.RawMessage) string {
		var b strings.Builder
		fmt.Fprintf(&b, `<div data-component="%s"`, html.EscapeString(component))
		if source, ok := components[component]; ok {
			fmt.Fprintf(&b, ` data-source="%s"`, html.EscapeString(source))
		}
		attrs := rendering.Editable(blok)
		if uid, ok := attrs["data-blok-uid"]; ok {
			fmt.Fprintf(&b, ` data-blok-c="%s" data-blok-uid="%s"`, html.EscapeString(attrs["data-blok-c"]), html.EscapeString(uid))
		}
		b.WriteString("></div>")
		return b.String()
	}
}
