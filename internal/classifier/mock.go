package classifier

import (
	"context"
	"strings"
)

// mockEntry is one canned classification keyed by a title keyword.
type mockEntry struct {
	keyword  string
	genres   []string
	subgenre string
}

// mockEntries are checked in order; the first keyword found in the title
// wins. Values are canonical taxonomy strings so the mock honors the same
// postconditions as the real classifier.
var mockEntries = []mockEntry{
	{"philosophy", []string{"Philosophy", "Ethics"}, "Treatise"},
	{"meditations", []string{"Philosophy"}, "Classical"},
	{"ethics", []string{"Ethics", "Philosophy"}, ""},
	{"history", []string{"History"}, ""},
	{"poems", []string{"Poetry"}, ""},
	{"poetry", []string{"Poetry"}, ""},
	{"odyssey", []string{"Poetry", "Mythology"}, "Epic"},
	{"war", []string{"History", "Politics"}, ""},
	{"island", []string{"Adventure", "Fiction"}, ""},
	{"science", []string{"Science"}, ""},
}

// MockClassifier returns deterministic canned classifications keyed by
// keywords in the title, for use without network access.
type MockClassifier struct{}

// NewMockClassifier creates the deterministic local responder.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// Classify implements Classifier without any network call.
func (m *MockClassifier) Classify(_ context.Context, meta BookMetadata) *Result {
	title := strings.ToLower(meta.Title)
	for _, e := range mockEntries {
		if strings.Contains(title, e.keyword) {
			genres := make([]string, len(e.genres))
			copy(genres, e.genres)
			return &Result{Genres: genres, Subgenre: e.subgenre}
		}
	}
	// Default so mock-mode ingests always produce something browsable.
	return &Result{Genres: []string{"Fiction"}}
}
