// Package classifier assigns controlled-vocabulary genres to books using
// an external AI endpoint. Classification is strictly best-effort: every
// failure mode converges to an absent result, never an error, so callers
// can fold it into ingestion without handling failures.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/librariumapp/librarium-server/internal/taxonomy"
)

// BookMetadata is the immutable snapshot of a book used for classification.
type BookMetadata struct {
	Title       string
	Author      string
	Year        int
	Description string
}

// Result is a validated classification. A non-nil Result always carries
// 1-3 canonical primary genres; Subgenre may be empty.
type Result struct {
	Genres   []string
	Subgenre string
}

// Classifier produces a best-effort genre classification for one book.
// A nil result means classification was skipped or failed; implementations
// never propagate errors outward.
type Classifier interface {
	Classify(ctx context.Context, meta BookMetadata) *Result
}

// Disabled is a Classifier that always returns absent. Used when the
// feature toggle is off or no API credential is configured.
type Disabled struct{}

// Classify implements Classifier.
func (Disabled) Classify(context.Context, BookMetadata) *Result { return nil }

// buildPrompt renders the classification instruction for one book. The
// full controlled vocabulary is embedded verbatim so the model can only
// be steered toward known values; the response contract is JSON-only.
func buildPrompt(meta BookMetadata) string {
	var b strings.Builder

	b.WriteString("You are a library cataloger. Classify the following book.\n\n")

	b.WriteString("Choose 1 to 3 genres, in order of relevance, from exactly this list:\n")
	b.WriteString(strings.Join(taxonomy.PrimaryGenres, ", "))
	b.WriteString("\n\nOptionally choose one subgenre from exactly this list:\n")
	b.WriteString(strings.Join(taxonomy.SubGenres, ", "))
	b.WriteString("\n\nBook:\n")

	fmt.Fprintf(&b, "Title: %s\n", meta.Title)
	if meta.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", meta.Author)
	}
	if meta.Year != 0 {
		fmt.Fprintf(&b, "Year: %d\n", meta.Year)
	}
	if meta.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", meta.Description)
	}

	b.WriteString("\nRespond with JSON only, no other text, in the shape ")
	b.WriteString(`{"genres": ["..."], "subgenre": "..."} `)
	b.WriteString(`with "subgenre" null if none applies.`)

	return b.String()
}

// validate filters a parsed response against the taxonomy. Returns nil
// when no valid genre survives; a semantically empty result is never
// materialized.
func validate(genres []string, subgenre string) *Result {
	valid := taxonomy.ValidateGenres(genres)
	if len(valid) == 0 {
		return nil
	}
	// More than MaxGenres valid entries: keep the first ones, which the
	// model reported as most relevant.
	if len(valid) > taxonomy.MaxGenres {
		valid = valid[:taxonomy.MaxGenres]
	}

	res := &Result{Genres: valid}
	if canonical, ok := taxonomy.ValidateSubgenre(subgenre); ok {
		res.Subgenre = canonical
	}
	return res
}
