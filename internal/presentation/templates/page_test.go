package templates

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPage(&buf, PageData{
		Title:     "Home <1>",
		Component: "page",
		Source:    "storyblok/Page.astro",
		BlokC:     `{"id":1,"uid":"abc"}`,
		BlokUID:   "1-abc",
		Version:   "draft",
		Fields:    []Field{{Name: "body", HTML: template.HTML("<p>hello</p>")}},
		Scripts:   []template.JS{template.JS(`console.log("x")`)},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>Home &lt;1&gt;</title>")
	assert.Contains(t, out, `data-source="storyblok/Page.astro"`)
	assert.Contains(t, out, `data-blok-uid="1-abc"`)
	assert.Contains(t, out, `data-blok-c="{&#34;id&#34;:1,&#34;uid&#34;:&#34;abc&#34;}"`)
	assert.Contains(t, out, `<section data-field="body"><p>hello</p></section>`)
	assert.Contains(t, out, `<script type="module">console.log("x")</script>`)
}

func TestRenderPage_Minimal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, PageData{Title: "x", Component: "page"}))
	assert.NotContains(t, buf.String(), "data-source")
	assert.NotContains(t, buf.String(), "<script")
}
