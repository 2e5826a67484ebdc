package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{"bare", `{"a":"b"}`, map[string]any{"a": "b"}},
		{"leading prose", `Sure! {"a":"b"} hope that helps`, map[string]any{"a": "b"}},
		{"brace in string", `{"a":"}{","b":"c"}`, map[string]any{"a": "}{", "b": "c"}},
		{"escaped quote", `{"a":"say \"}\" ok"}`, map[string]any{"a": `say "}" ok`}},
		{"nested", `{"m":{"x":"y"}}`, map[string]any{"m": map[string]any{"x": "y"}}},
		{"skips invalid first span", `{not json} then {"a":"b"}`, map[string]any{"a": "b"}},
		{"first of two", `{"a":"1"} {"b":"2"}`, map[string]any{"a": "1"}},
		{"unclosed brace in prose", "Note: I used the { notation loosely.\n{\"subscriber\":\"trap1\",\"lead\":\"trap2\"}", map[string]any{"subscriber": "trap1", "lead": "trap2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractObject(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractObject_Failures(t *testing.T) {
	for _, text := range []string{"", "no braces", `{"a":"b"`, `["a"]`, "}{"} {
		_, err := extractObject(text)
		assert.ErrorIs(t, err, errNoObject, "text %q", text)
	}
}
