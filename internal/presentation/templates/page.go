// Package templates renders preview pages for stories
package templates

import (
	"html/template"
	"io"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<main data-component="{{.Component}}"{{if .Source}} data-source="{{.Source}}"{{end}}{{if .BlokC}} data-blok-c="{{.BlokC}}" data-blok-uid="{{.BlokUID}}"{{end}} data-version="{{.Version}}">
{{- range .Fields}}
<section data-field="{{.Name}}">{{.HTML}}</section>
{{- end}}
</main>
{{- range .Scripts}}
<script type="module">{{.}}</script>
{{- end}}
</body>
</html>
`))

// Field is one rendered rich-text field of a story.
type Field struct {
	Name string
	HTML template.HTML
}

// PageData is the view model of a preview page.
type PageData struct {
	Title     string
	Component string
	Source    string
	BlokC     string
	BlokUID   string
	Version   string
	Fields    []Field
	Scripts   []template.JS
}

// RenderPage writes the page shell for data.
func RenderPage(w io.Writer, data PageData) error {
	return pageTemplate.Execute(w, data)
}
