package domain

import "strings"

// Book represents a catalog record for one ingested text.
type Book struct {
	Entity
	// SourceID is the stable external-archive identifier, unique per
	// ingested item. It is the idempotency key for ingestion.
	SourceID    string   `json:"source_id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Year        int      `json:"year,omitempty"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	// Subjects are the archive's own free-form subject strings, kept for
	// search; distinct from the controlled Genres vocabulary.
	Subjects []string `json:"subjects,omitempty"`

	// Genres holds 1-3 primary genres from the controlled taxonomy.
	// Nil means the book has never been successfully classified.
	Genres []string `json:"genres,omitempty"`
	// Subgenre is an optional secondary descriptor from the taxonomy.
	Subgenre string `json:"subgenre,omitempty"`

	PDFPath       string `json:"pdf_path,omitempty"`
	PDFSize       int64  `json:"pdf_size,omitempty"`
	CoverPath     string `json:"cover_path,omitempty"`
	CoverBlurhash string `json:"cover_blurhash,omitempty"`
}

// IsClassified reports whether this record already carries genre
// metadata. Once true, ingestion must never re-classify the book.
func (b *Book) IsClassified() bool {
	return len(b.Genres) > 0
}

// HasPDF reports whether a downloadable PDF is stored for this book.
func (b *Book) HasPDF() bool {
	return b.PDFPath != ""
}

// AuthorLine renders the author list for display and prompts.
func (b *Book) AuthorLine() string {
	return strings.Join(b.Authors, ", ")
}
