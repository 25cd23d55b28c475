package templates

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
)

//go:embed views/*.html
var embeddedViews embed.FS

// ErrTemplateNotFound is the cause of a TemplateError for an unknown view name.
var ErrTemplateNotFound = eris.New("template not found")

// TemplateError reports a view that could not be located or executed.
type TemplateError struct {
	Name  string
	Cause error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("rendering template %s: %v", e.Name, e.Cause)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// Options selects where view files are read from.
type Options struct {
	// Dir overrides the embedded views with the *.html files of a directory.
	Dir string
}

// Renderer executes named html/template views. Files whose name starts with an
// underscore are partials shared by every view.
type Renderer struct {
	views map[string]*template.Template
}

// NewRenderer parses every view up front so a broken template fails at startup.
func NewRenderer(opts Options) (*Renderer, error) {
	var fsys fs.FS
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, eris.Wrapf(err, "reading template directory %s", dir)
		}
		if !info.IsDir() {
			return nil, eris.Errorf("template path %s is not a directory", dir)
		}
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embeddedViews, "views")
		if err != nil {
			return nil, eris.Wrap(err, "preparing embedded views")
		}
		fsys = sub
	}

	return parseViews(fsys)
}

func parseViews(fsys fs.FS) (*Renderer, error) {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, eris.Wrap(err, "listing view files")
	}

	var partials, pages []string
	for _, file := range files {
		if strings.HasPrefix(file, "_") {
			partials = append(partials, file)
		} else {
			pages = append(pages, file)
		}
	}

	if len(pages) == 0 {
		return nil, eris.New("no view templates found")
	}

	views := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html")
		patterns := append([]string{page}, partials...)

		tmpl, err := template.New(path.Base(page)).
			Funcs(funcMap()).
			Option("missingkey=zero").
			ParseFS(fsys, patterns...)
		if err != nil {
			return nil, &TemplateError{Name: name, Cause: err}
		}
		views[name] = tmpl
	}

	return &Renderer{views: views}, nil
}

// Component returns the templ component that renders the named view with data.
func (r *Renderer) Component(name string, data any) (templ.Component, error) {
	tmpl, ok := r.views[name]
	if !ok {
		return nil, &TemplateError{Name: name, Cause: ErrTemplateNotFound}
	}
	return templ.FromGoHTML(tmpl, data), nil
}

// Render executes the named view and returns the complete HTML document.
func (r *Renderer) Render(ctx context.Context, name string, data any) ([]byte, error) {
	component, err := r.Component(name, data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, &TemplateError{Name: name, Cause: err}
	}

	return buf.Bytes(), nil
}
