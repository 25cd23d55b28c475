package templates

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"pagePath": func(name string) string {
			return "/wiki/" + url.PathEscape(name)
		},
	}
}

// FallbackErrorPage writes a minimal error document without touching the view files.
func FallbackErrorPage(data ErrorPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>",
			html.EscapeString(data.Title), html.EscapeString(data.StatusLabel), html.EscapeString(data.Message))
		return err
	})
}
