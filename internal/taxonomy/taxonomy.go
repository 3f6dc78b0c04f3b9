// Package taxonomy defines the closed genre vocabulary for the library
// and validators for candidate values against it.
package taxonomy

import "strings"

// PrimaryGenres is the controlled vocabulary of top-level subject
// classifications. Extending it is a deployment-time edit; the slice is
// never mutated at runtime.
var PrimaryGenres = []string{
	"Philosophy",
	"Ethics",
	"Fiction",
	"Poetry",
	"Drama",
	"History",
	"Biography",
	"Science",
	"Mathematics",
	"Religion",
	"Mythology",
	"Politics",
	"Economics",
	"Psychology",
	"Adventure",
	"Romance",
	"Mystery",
	"Horror",
	"Fantasy",
	"Science Fiction",
	"Travel",
	"Essays",
	"Letters",
	"Reference",
	"Art",
	"Music",
	"Education",
}

// SubGenres is the controlled vocabulary of secondary descriptors
// (era and form), optional on any book.
var SubGenres = []string{
	"Classical",
	"Medieval",
	"Renaissance",
	"Enlightenment",
	"Victorian",
	"Modernist",
	"Epic",
	"Satire",
	"Treatise",
}

// MaxGenres is the maximum number of primary genres a book may carry.
const MaxGenres = 3

var (
	primaryByFold map[string]string
	subByFold     map[string]string
)

func init() {
	primaryByFold = make(map[string]string, len(PrimaryGenres))
	for _, g := range PrimaryGenres {
		primaryByFold[fold(g)] = g
	}
	subByFold = make(map[string]string, len(SubGenres))
	for _, s := range SubGenres {
		subByFold[fold(s)] = s
	}
}

// fold normalizes a candidate for case-insensitive comparison.
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateGenres filters candidates down to members of PrimaryGenres.
// Matching is case-insensitive; the returned values use canonical casing,
// preserve input order, and are de-duplicated. Invalid entries are
// silently dropped.
func ValidateGenres(candidates []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		canonical, ok := primaryByFold[fold(c)]
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// ValidateSubgenre returns the canonical-cased taxonomy entry matching
// candidate, or ("", false) if the candidate is not a known sub-genre.
func ValidateSubgenre(candidate string) (string, bool) {
	canonical, ok := subByFold[fold(candidate)]
	return canonical, ok
}

// IsPrimary reports whether name matches a primary genre (case-insensitive).
func IsPrimary(name string) bool {
	_, ok := primaryByFold[fold(name)]
	return ok
}

// CanonicalGenre returns the canonical casing of a primary genre name.
func CanonicalGenre(name string) (string, bool) {
	canonical, ok := primaryByFold[fold(name)]
	return canonical, ok
}
