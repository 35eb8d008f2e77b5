package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/llm"
)

func TestSplitTurns(t *testing.T) {
	turns := []llm.Turn{
		{Role: llm.RoleSystem, Text: "sys"},
		{Role: llm.RoleUser, Text: "q1"},
		{Role: llm.RoleAssistant, Text: "a1"},
		{Role: llm.RoleUser, Text: "q2"},
	}

	history, last := splitTurns(turns)
	assert.Len(t, history, 3)
	assert.Equal(t, "q2", last.Text)
}

func TestFoldHistory(t *testing.T) {
	system, contents := foldHistory([]llm.Turn{
		{Role: llm.RoleSystem, Text: "be brief"},
		{Role: llm.RoleUser, Text: "q1"},
		{Role: llm.RoleAssistant, Text: "a1"},
		{Role: llm.RoleSystem, Text: "cite sources"},
	})

	assert.Equal(t, "be brief\n\ncite sources", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("q1")}, contents[0].Parts)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("a1")}, contents[1].Parts)
}

func TestFoldHistory_NoSystem(t *testing.T) {
	system, contents := foldHistory(nil)
	assert.Empty(t, system)
	assert.Empty(t, contents)
}

func TestApplyOptions(t *testing.T) {
	gm := &genai.GenerativeModel{}
	applyOptions(gm, llm.Options{Temperature: llm.Float(0.2), MaxTokens: 256})

	require.NotNil(t, gm.Temperature)
	assert.InDelta(t, 0.2, *gm.Temperature, 1e-6)
	require.NotNil(t, gm.MaxOutputTokens)
	assert.Equal(t, int32(256), *gm.MaxOutputTokens)
	assert.Nil(t, gm.TopP)
}

func TestProvider_Generate_Unconfigured(t *testing.T) {
	p := NewProvider(config.GeminiConfig{})
	assert.False(t, p.IsConfigured())
	assert.Equal(t, "gemini-2.5-flash", p.DefaultModel())

	_, err := p.Generate(context.Background(), llm.Request{Turns: []llm.Turn{{Role: llm.RoleUser, Text: "hi"}}}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
