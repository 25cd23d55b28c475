package templates

import "html/template"

// View names understood by Renderer.
const (
	IndexView = "index"
	PageView  = "page"
	ErrorView = "error"
)

// IndexPageData contains the values rendered on the page listing.
type IndexPageData struct {
	Title string
	Pages []string
}

// WikiPageData contains the values for a single page view. ID is -1 and NewPage
// is true when the page has not been stored yet.
type WikiPageData struct {
	Title      string
	ID         int64
	RawContent string
	Content    template.HTML
	Timestamp  string
	NewPage    bool
	Links      []string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}
