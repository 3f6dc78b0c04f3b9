package classifier

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	errNoJSON        = errors.New("no JSON object in reply")
	errMissingGenres = errors.New("reply lacks a genres array")
)

// classificationReply mirrors the JSON object the model is instructed to
// return. Genres must be present; subgenre may be null or absent.
type classificationReply struct {
	Genres   []string `json:"genres"`
	Subgenre *string  `json:"subgenre"`
}

// parseReply extracts and decodes the first JSON object in the reply
// text. The endpoint sometimes wraps the object in prose or a code fence
// despite the JSON-only instruction, so everything before the first '{'
// and after its matching '}' is ignored.
func parseReply(text string) (*classificationReply, error) {
	obj, ok := firstJSONObject(text)
	if !ok {
		return nil, errNoJSON
	}

	// Decode into a raw map first so a present-but-null genres key can be
	// distinguished from a decode error.
	var reply classificationReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		return nil, err
	}
	if reply.Genres == nil {
		return nil, errMissingGenres
	}
	return &reply, nil
}

// firstJSONObject returns the first balanced {...} span in s.
// Braces inside JSON strings are skipped.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
