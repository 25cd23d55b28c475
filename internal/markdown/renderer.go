// Package markdown turns page source into sanitized HTML fragments.
package markdown

import (
	"bytes"
	"html"
	"net/url"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const wikiPathPrefix = "/wiki/"

// Renderer converts markdown to HTML. It holds no per-call state and is safe for
// concurrent use.
type Renderer struct {
	engine    goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewRenderer builds a renderer with GitHub flavoured markdown and UGC sanitising.
func NewRenderer() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Render returns the HTML fragment for text. Malformed markdown is rendered on a
// best-effort basis; empty input yields an empty fragment.
func (r *Renderer) Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(text), &buf); err != nil {
		return "<pre>" + html.EscapeString(text) + "</pre>"
	}

	return string(r.sanitizer.SanitizeBytes(buf.Bytes()))
}

// Links returns the names of the wiki pages referenced by fragment, unique and sorted.
func (r *Renderer) Links(fragment string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return nil
	}

	seen := map[string]struct{}{}
	var links []string

	var visit func(node *nethtml.Node)
	visit = func(node *nethtml.Node) {
		if node.Type == nethtml.ElementNode && strings.EqualFold(node.Data, "a") {
			if name := wikiLinkTarget(node); name != "" {
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					links = append(links, name)
				}
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}

	for _, node := range nodes {
		visit(node)
	}

	slices.Sort(links)
	return links
}

func wikiLinkTarget(node *nethtml.Node) string {
	for _, attr := range node.Attr {
		if !strings.EqualFold(attr.Key, "href") {
			continue
		}
		href := strings.TrimSpace(attr.Val)
		if !strings.HasPrefix(href, wikiPathPrefix) {
			return ""
		}
		raw := strings.TrimPrefix(href, wikiPathPrefix)
		if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
			raw = raw[:idx]
		}
		name, err := url.PathUnescape(raw)
		if err != nil {
			return ""
		}
		name = strings.TrimSpace(name)
		if name == "" || strings.Contains(name, "/") {
			return ""
		}
		return name
	}
	return ""
}
