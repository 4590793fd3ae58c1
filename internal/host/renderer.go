package host

import (
	"fmt"
	"html/template"
	"io"
)

const failurePage = `<!DOCTYPE html>
<html><head><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Message}}</p></body></html>
`

// TemplateRenderer renders the few pages the service owns itself.
type TemplateRenderer struct {
	templates *template.Template
}

var _ Renderer = (*TemplateRenderer)(nil)

func NewTemplateRenderer() *TemplateRenderer {
	t := template.Must(template.New("failure").Parse(failurePage))
	return &TemplateRenderer{templates: t}
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data any) error {
	if r.templates.Lookup(name) == nil {
		return fmt.Errorf("unknown template %q", name)
	}
	return r.templates.ExecuteTemplate(w, name, data)
}
