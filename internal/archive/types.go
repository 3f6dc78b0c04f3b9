package archive

import "errors"

// Sentinel errors for archive API failures.
var (
	ErrNotFound    = errors.New("archive: item not found")
	ErrRateLimited = errors.New("archive: rate limited")
	ErrBadRequest  = errors.New("archive: bad request")
	ErrServer      = errors.New("archive: server error")
)

// SearchResult is one row from an archive search.
type SearchResult struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
}

// File is one downloadable file attached to an archive item.
type File struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Size   int64  `json:"size,string"`
}

// Item is the full metadata for one archive item.
type Item struct {
	Identifier  string
	Title       string
	Creators    []string
	Year        int
	Description string
	Subjects    []string
	Language    string
	Files       []File
}

// PDF returns the first PDF file attached to the item, if any.
func (it *Item) PDF() (File, bool) {
	for _, f := range it.Files {
		if f.Format == "Text PDF" || f.Format == "PDF" {
			return f, true
		}
	}
	return File{}, false
}

// Cover returns the first JPEG image attached to the item, if any.
func (it *Item) Cover() (File, bool) {
	for _, f := range it.Files {
		if f.Format == "JPEG" || f.Format == "JPEG Thumb" {
			return f, true
		}
	}
	return File{}, false
}
