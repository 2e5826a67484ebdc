package mapping

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// errNoObject means the text held no parseable JSON object.
var errNoObject = eris.New("mapping: no JSON object in classifier response")

// extractObject returns the first balanced {...} span of text that decodes as
// a JSON object. Braces inside string literals are ignored, so prose, code
// fences, stray braces, and nested objects are tolerated.
func extractObject(text string) (map[string]any, error) {
	for offset := 0; offset < len(text); {
		start := strings.IndexByte(text[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		end := balancedEnd(text, start)
		if end < 0 {
			// An unclosed brace in commentary; a later one may still open an object.
			offset = start + 1
			continue
		}

		dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err == nil && obj != nil {
			return obj, nil
		}
		offset = start + 1
	}
	return nil, errNoObject
}

// balancedEnd returns the index of the brace closing the one at start, or -1.
func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i
			}
		}
	}
	return -1
}
