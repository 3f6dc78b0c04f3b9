// Package search provides full-text catalog search using Bleve: fuzzy
// title and author matching, genre filtering, and facet counts. It also
// backs the librarian assistant's catalog retrieval.
package search

import (
	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/taxonomy"
)

// BookDocument is the indexed form of one catalog record.
type BookDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	Language    string   `json:"language,omitempty"`

	// Genres hold canonical taxonomy strings; genre_slugs their URL form.
	Genres     []string `json:"genres,omitempty"`
	GenreSlugs []string `json:"genre_slugs,omitempty"`
	Subgenre   string   `json:"subgenre,omitempty"`

	Year      int   `json:"year,omitempty"`
	CreatedAt int64 `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names so
// they line up with the index mapping. Bleve would otherwise index the
// capitalized Go field names.
func (d *BookDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"created_at": d.CreatedAt,
	}

	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Subjects) > 0 {
		m["subjects"] = d.Subjects
	}
	if d.Language != "" {
		m["language"] = d.Language
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	if len(d.GenreSlugs) > 0 {
		m["genre_slugs"] = d.GenreSlugs
	}
	if d.Subgenre != "" {
		m["subgenre"] = d.Subgenre
	}
	if d.Year != 0 {
		m["year"] = d.Year
	}

	return m
}

// BookToDocument converts a catalog record into its indexed form.
func BookToDocument(book *domain.Book) *BookDocument {
	doc := &BookDocument{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.AuthorLine(),
		Description: book.Description,
		Subjects:    book.Subjects,
		Language:    book.Language,
		Genres:      book.Genres,
		Subgenre:    book.Subgenre,
		Year:        book.Year,
		CreatedAt:   book.CreatedAt.UnixMilli(),
	}
	for _, g := range book.Genres {
		doc.GenreSlugs = append(doc.GenreSlugs, taxonomy.Slugify(g))
	}
	return doc
}
