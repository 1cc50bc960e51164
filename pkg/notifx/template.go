package notifx

import (
	"bytes"
	htmltemplate "html/template"
	"sync"
	texttemplate "text/template"
)

// Template is the source of one kind of email. HTML is optional.
type Template struct {
	Subject string
	Text    string
	HTML    string
}

// Rendered is a template executed against its data.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type parsedTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// TemplateRegistry stores and renders named templates.
type TemplateRegistry struct {
	templates map[string]parsedTemplate
	mu        sync.RWMutex
}

// NewTemplateRegistry creates a new template registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]parsedTemplate),
	}
}

// Register parses and stores a template by name.
func (r *TemplateRegistry) Register(name string, tmpl Template) error {
	var (
		p   parsedTemplate
		err error
	)
	if p.subject, err = texttemplate.New(name + ".subject").Parse(tmpl.Subject); err != nil {
		return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
	}
	if p.text, err = texttemplate.New(name + ".text").Parse(tmpl.Text); err != nil {
		return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
	}
	if tmpl.HTML != "" {
		if p.html, err = htmltemplate.New(name + ".html").Parse(tmpl.HTML); err != nil {
			return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
		}
	}

	r.mu.Lock()
	r.templates[name] = p
	r.mu.Unlock()

	return nil
}

// Render executes a named template with the given data.
func (r *TemplateRegistry) Render(name string, data any) (Rendered, error) {
	r.mu.RLock()
	p, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return Rendered{}, notifxErrors.New(ErrTemplateNotFound).WithDetail("template", name)
	}

	var out Rendered
	var buf bytes.Buffer
	if err := p.subject.Execute(&buf, data); err != nil {
		return Rendered{}, notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
	}
	out.Subject = buf.String()

	buf.Reset()
	if err := p.text.Execute(&buf, data); err != nil {
		return Rendered{}, notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
	}
	out.Text = buf.String()

	if p.html != nil {
		buf.Reset()
		if err := p.html.Execute(&buf, data); err != nil {
			return Rendered{}, notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
		}
		out.HTML = buf.String()
	}

	return out, nil
}
