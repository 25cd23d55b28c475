package markdown

import (
	"reflect"
	"strings"
	"testing"
)

func TestRenderHeadingAndParagraph(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	html := r.Render("# A new page\n\nFeel-free to write in Markdown!\n")

	if !strings.Contains(html, "<h1") || !strings.Contains(html, "A new page</h1>") {
		t.Fatalf("expected heading in output, got %q", html)
	}
	if !strings.Contains(html, "<p>Feel-free to write in Markdown!</p>") {
		t.Fatalf("expected paragraph in output, got %q", html)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	input := "Some *emphasis*, a [link](/wiki/other) and a table:\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"

	first := r.Render(input)
	for i := 0; i < 5; i++ {
		if again := r.Render(input); again != first {
			t.Fatalf("expected identical output on call %d, got %q vs %q", i+2, again, first)
		}
	}

	if other := NewRenderer().Render(input); other != first {
		t.Fatalf("expected separate renderers to agree, got %q vs %q", other, first)
	}
}

func TestRenderEmptyInput(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	for _, input := range []string{"", "   ", "\n\n"} {
		if html := r.Render(input); strings.TrimSpace(html) != "" {
			t.Fatalf("expected empty output for %q, got %q", input, html)
		}
	}
}

func TestRenderToleratesMalformedMarkdown(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	inputs := []string{
		"[unclosed link(",
		"```\nunterminated fence",
		"**bold without end",
		"| broken | table\n|---",
		"<div><span>unbalanced",
	}

	for _, input := range inputs {
		_ = r.Render(input)
	}
}

func TestRenderStripsScripts(t *testing.T) {
	t.Parallel()

	html := NewRenderer().Render("hello <script>alert('x')</script> [x](javascript:alert(1))")

	if strings.Contains(html, "<script") {
		t.Fatalf("expected script tags to be removed, got %q", html)
	}
	if strings.Contains(html, "javascript:") {
		t.Fatalf("expected javascript URLs to be removed, got %q", html)
	}
}

func TestLinksCollectsWikiTargets(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	html := r.Render("See [Beta](/wiki/beta), [Alpha](/wiki/Alpha), [again](/wiki/beta#top), [space](/wiki/Two%20Words) and [out](https://example.com).")

	links := r.Links(html)
	expected := []string{"Alpha", "Two Words", "beta"}
	if !reflect.DeepEqual(links, expected) {
		t.Fatalf("expected %v, got %v", expected, links)
	}
}

func TestLinksEmptyFragment(t *testing.T) {
	t.Parallel()

	if links := NewRenderer().Links(""); links != nil {
		t.Fatalf("expected nil links, got %v", links)
	}
}
