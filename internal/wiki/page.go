package wiki

import "time"

// UnsavedPageID marks a page synthesized for a name that has no stored row yet.
const UnsavedPageID int64 = -1

// SeedMarkdown is the body shown for a page name that does not exist yet.
const SeedMarkdown = "# A new page\n\nFeel-free to write in Markdown!\n"

// PageRecord is the persisted form of a wiki page.
type PageRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:255;uniqueIndex:idx_pages_name;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}

// Page is a wiki page as seen by callers of the repository and service.
type Page struct {
	ID      int64
	Name    string
	Content string
}

// Exists reports whether the page is backed by a stored row.
func (p Page) Exists() bool {
	return p.ID != UnsavedPageID
}

func seedPage(name string) *Page {
	return &Page{ID: UnsavedPageID, Name: name, Content: SeedMarkdown}
}

func toPage(record *PageRecord) *Page {
	if record == nil {
		return nil
	}
	return &Page{ID: record.ID, Name: record.Name, Content: record.Content}
}
