package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	var nilMessage *Message
	var nilMap map[string]any

	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nil", nil, NoResponseMessage},
		{"typed nil pointer", nilMessage, NoResponseMessage},
		{"nil map", nilMap, NoResponseMessage},
		{"plain string", "  The answer is 42.  ", "The answer is 42."},
		{"blank string", "   \n\t", InadequateMessage},
		{"message", Message{Role: RoleAssistant, Content: " Hello "}, "Hello"},
		{"message pointer", &Message{Content: "Hi"}, "Hi"},
		{"message empty content", Message{Content: ""}, InadequateMessage},
		{"message non-string content", Message{Content: []string{"a"}}, InadequateMessage},
		{"map with content", map[string]any{"role": "assistant", "content": "From map"}, "From map"},
		{"map with blank content", map[string]any{"content": " "}, InadequateMessage},
		{"map with nil content", map[string]any{"content": nil}, InadequateMessage},
		{"map without content", map[string]any{"text": "x"}, TechnicalProblemMessage},
		{"integer", 42, TechnicalProblemMessage},
		{"unknown struct", struct{ A int }{1}, TechnicalProblemMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestNormalize_RecoversPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		got := recovered(func() string { panic("boom") })
		assert.Equal(t, UnexpectedErrorMessage, got)
	})
}
