package storyblok

import (
	"encoding/json"
	"html"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/domain/entities/rendering"
)

// RichTextResolver renders Storyblok rich-text documents to HTML.
type RichTextResolver struct{}

// NewRichTextResolver creates the default resolver.
func NewRichTextResolver() *RichTextResolver {
	return &RichTextResolver{}
}

var blockTags = map[string]string{
	"paragraph":    "p",
	"bullet_list":  "ul",
	"ordered_list": "ol",
	"list_item":    "li",
	"blockquote":   "blockquote",
}

var markTags = map[string]string{
	"bold":        "b",
	"italic":      "i",
	"strike":      "s",
	"underline":   "u",
	"code":        "code",
	"superscript": "sup",
	"subscript":   "sub",
}

// Render implements rendering.RichTextResolver.
func (r *RichTextResolver) Render(doc json.RawMessage, opts *rendering.RichTextOptions) string {
	if opts == nil {
		opts = &rendering.RichTextOptions{}
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return ""
	}

	var sb strings.Builder
	r.renderNode(&sb, root, opts)
	return sb.String()
}

func (r *RichTextResolver) renderChildren(node gjson.Result, opts *rendering.RichTextOptions) string {
	var sb strings.Builder
	node.Get("content").ForEach(func(_, child gjson.Result) bool {
		r.renderNode(&sb, child, opts)
		return true
	})
	return sb.String()
}

func (r *RichTextResolver) renderNode(sb *strings.Builder, node gjson.Result, opts *rendering.RichTextOptions) {
	nodeType := node.Get("type").String()

	if nodeType == "text" {
		sb.WriteString(r.renderText(node, opts))
		return
	}

	if custom, ok := opts.Schema[nodeType]; ok && custom != nil {
		sb.WriteString(custom(json.RawMessage(node.Raw), r.renderChildren(node, opts)))
		return
	}

	attrs := node.Get("attrs")
	switch nodeType {
	case "doc":
		sb.WriteString(r.renderChildren(node, opts))
	case "heading":
		level := attrs.Get("level").Int()
		if level < 1 || level > 6 {
			level = 1
		}
		tag := "h" + strconv.FormatInt(level, 10)
		sb.WriteString("<" + tag + ">" + r.renderChildren(node, opts) + "</" + tag + ">")
	case "code_block":
		sb.WriteString("<pre><code")
		if class := attrs.Get("class").String(); class != "" {
			sb.WriteString(` class="` + html.EscapeString(class) + `"`)
		}
		sb.WriteString(">" + r.renderChildren(node, opts) + "</code></pre>")
	case "horizontal_rule":
		sb.WriteString("<hr />")
	case "hard_break":
		sb.WriteString("<br />")
	case "image":
		sb.WriteString(`<img src="` + html.EscapeString(attrs.Get("src").String()) + `"`)
		if alt := attrs.Get("alt").String(); alt != "" {
			sb.WriteString(` alt="` + html.EscapeString(alt) + `"`)
		}
		if title := attrs.Get("title").String(); title != "" {
			sb.WriteString(` title="` + html.EscapeString(title) + `"`)
		}
		sb.WriteString(" />")
	case "emoji":
		sb.WriteString(html.EscapeString(attrs.Get("emoji").String()))
	case "blok":
		if opts.ResolveComponent == nil {
			return
		}
		attrs.Get("body").ForEach(func(_, blok gjson.Result) bool {
			sb.WriteString(opts.ResolveComponent(blok.Get("component").String(), json.RawMessage(blok.Raw)))
			return true
		})
	default:
		if tag, ok := blockTags[nodeType]; ok {
			sb.WriteString("<" + tag + ">" + r.renderChildren(node, opts) + "</" + tag + ">")
			return
		}
		// Unknown node types keep their content.
		sb.WriteString(r.renderChildren(node, opts))
	}
}

func (r *RichTextResolver) renderText(node gjson.Result, opts *rendering.RichTextOptions) string {
	out := html.EscapeString(node.Get("text").String())

	node.Get("marks").ForEach(func(_, mark gjson.Result) bool {
		markType := mark.Get("type").String()
		if custom, ok := opts.Schema[markType]; ok && custom != nil {
			out = custom(json.RawMessage(mark.Raw), out)
			return true
		}
		out = wrapMark(markType, mark.Get("attrs"), out)
		return true
	})
	return out
}

func wrapMark(markType string, attrs gjson.Result, inner string) string {
	if tag, ok := markTags[markType]; ok {
		return "<" + tag + ">" + inner + "</" + tag + ">"
	}

	switch markType {
	case "link":
		href := linkHref(attrs)
		var sb strings.Builder
		sb.WriteString(`<a href="` + html.EscapeString(href) + `"`)
		if target := attrs.Get("target").String(); target != "" {
			sb.WriteString(` target="` + html.EscapeString(target) + `"`)
		}
		sb.WriteString(">" + inner + "</a>")
		return sb.String()
	case "styled":
		return `<span class="` + html.EscapeString(attrs.Get("class").String()) + `">` + inner + "</span>"
	case "highlight":
		return `<mark style="background-color:` + html.EscapeString(attrs.Get("color").String()) + `">` + inner + "</mark>"
	case "textStyle":
		return `<span style="color:` + html.EscapeString(attrs.Get("color").String()) + `">` + inner + "</span>"
	}
	return inner
}

func linkHref(attrs gjson.Result) string {
	href := attrs.Get("href").String()
	switch attrs.Get("linktype").String() {
	case "email":
		href = "mailto:" + href
	case "story":
		if anchor := attrs.Get("anchor").String(); anchor != "" {
			href += "#" + anchor
		}
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "javascript:") {
		return "#"
	}
	return href
}
