package taxonomy

import (
	"strings"
	"testing"
)

func TestValidateGenres_CaseInsensitive(t *testing.T) {
	got := ValidateGenres([]string{"philosophy", "ETHICS", "NotAGenre"})

	want := []string{"Philosophy", "Ethics"}
	if len(got) != len(want) {
		t.Fatalf("ValidateGenres: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ValidateGenres[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidateGenres_PreservesOrderAndDedupes(t *testing.T) {
	got := ValidateGenres([]string{"History", "poetry", "HISTORY", "Poetry"})

	want := []string{"History", "Poetry"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidateGenres_AllInvalid(t *testing.T) {
	got := ValidateGenres([]string{"Quantum Knitting"})
	if got != nil {
		t.Errorf("expected nil for all-invalid input, got %v", got)
	}
}

func TestValidateGenres_Empty(t *testing.T) {
	if got := ValidateGenres(nil); got != nil {
		t.Errorf("expected nil for nil input, got %v", got)
	}
	if got := ValidateGenres([]string{}); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

// Closure: no input can produce output values outside PrimaryGenres.
func TestValidateGenres_Closure(t *testing.T) {
	members := make(map[string]bool, len(PrimaryGenres))
	for _, g := range PrimaryGenres {
		members[g] = true
	}

	inputs := [][]string{
		PrimaryGenres,
		{"fiction", "Fictional", "FICTION ", " poetry"},
		{"", "   ", "fiction\n"},
		{strings.ToUpper(PrimaryGenres[0]), strings.ToLower(PrimaryGenres[1])},
	}
	for _, in := range inputs {
		for _, out := range ValidateGenres(in) {
			if !members[out] {
				t.Errorf("output %q not a member of PrimaryGenres (input %v)", out, in)
			}
		}
	}
}

func TestValidateSubgenre(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"classical", "Classical", true},
		{"VICTORIAN", "Victorian", true},
		{" epic ", "Epic", true},
		{"Steampunk", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ValidateSubgenre(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ValidateSubgenre(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestVocabularySizes(t *testing.T) {
	if len(PrimaryGenres) != 27 {
		t.Errorf("PrimaryGenres: got %d entries, want 27", len(PrimaryGenres))
	}
	if len(SubGenres) != 9 {
		t.Errorf("SubGenres: got %d entries, want 9", len(SubGenres))
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Science Fiction", "science-fiction"},
		{"Philosophy", "philosophy"},
		{"Café Society", "cafe-society"},
		{"  Essays & Letters  ", "essays-letters"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenreBySlug(t *testing.T) {
	for _, g := range PrimaryGenres {
		got, ok := GenreBySlug(Slugify(g))
		if !ok || got != g {
			t.Errorf("GenreBySlug(%q) = (%q, %v), want (%q, true)", Slugify(g), got, ok, g)
		}
	}
	if _, ok := GenreBySlug("not-a-genre"); ok {
		t.Error("GenreBySlug should not resolve unknown slugs")
	}
}
