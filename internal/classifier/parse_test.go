package classifier

import "testing"

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"leading prose", `Here you go: {"a":1} done`, `{"a":1}`, true},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}{"} trailing`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"say \"hi\""}`, `{"a":"say \"hi\""}`, true},
		{"no object", "nothing here", "", false},
		{"unbalanced", `{"a":1`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstJSONObject(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("firstJSONObject(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseReply(t *testing.T) {
	reply, err := parseReply(`{"genres":["Fiction"],"subgenre":"Epic"}`)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if len(reply.Genres) != 1 || reply.Genres[0] != "Fiction" {
		t.Errorf("genres = %v", reply.Genres)
	}
	if reply.Subgenre == nil || *reply.Subgenre != "Epic" {
		t.Errorf("subgenre = %v", reply.Subgenre)
	}

	if _, err := parseReply("no json at all"); err == nil {
		t.Error("expected error for prose-only reply")
	}
	if _, err := parseReply(`{"subgenre":"Epic"}`); err == nil {
		t.Error("expected error for missing genres key")
	}
	// An explicitly empty genres array parses; validation collapses it later.
	reply, err = parseReply(`{"genres":[]}`)
	if err != nil {
		t.Fatalf("empty genres array should parse: %v", err)
	}
	if len(reply.Genres) != 0 {
		t.Errorf("genres = %v, want empty", reply.Genres)
	}
}

func TestValidateCollapsesEmpty(t *testing.T) {
	if res := validate(nil, ""); res != nil {
		t.Errorf("validate(nil) = %+v, want nil", res)
	}
	if res := validate([]string{"Nonsense"}, "Classical"); res != nil {
		t.Errorf("validate(all-invalid) = %+v, want nil", res)
	}
}
