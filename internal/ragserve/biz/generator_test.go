package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrompt = "Context:\n{{context}}\n\nQuestion: {{question}}\nAnswer:"

func TestGenerator_BuildPrompt(t *testing.T) {
	g := NewGenerator(&mockChat{}, &GeneratorConfig{SystemPrompt: testPrompt})

	prompt := g.BuildPrompt("why is the sky blue?", "[Local Knowledge]\nRayleigh scattering")

	assert.Equal(t, "Context:\n[Local Knowledge]\nRayleigh scattering\n\nQuestion: why is the sky blue?\nAnswer:", prompt)
}

func TestGenerator_Generate(t *testing.T) {
	chat := &mockChat{response: "because of scattering"}
	g := NewGenerator(chat, &GeneratorConfig{SystemPrompt: testPrompt})

	resp, err := g.Generate(context.Background(), "why?", "some context")
	require.NoError(t, err)
	assert.Equal(t, "because of scattering", resp.Content)

	require.Len(t, chat.seenPrompts, 1)
	assert.Contains(t, chat.seenPrompts[0], "some context")
	assert.Contains(t, chat.seenPrompts[0], "why?")
}

func TestGenerator_GenerationFailure(t *testing.T) {
	chat := &mockChat{generateErr: errors.New("model overloaded")}
	g := NewGenerator(chat, &GeneratorConfig{SystemPrompt: testPrompt})

	_, err := g.Generate(context.Background(), "q", "ctx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestGenerator_CanceledContext(t *testing.T) {
	g := NewGenerator(&mockChat{response: "ok"}, &GeneratorConfig{SystemPrompt: testPrompt})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, "q", "ctx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestGenerator_Stream(t *testing.T) {
	chat := &mockChat{streamChunks: []string{"beca", "use of ", "scattering"}}
	g := NewGenerator(chat, &GeneratorConfig{SystemPrompt: testPrompt})

	stream, err := g.GenerateStream(context.Background(), "why?", "ctx")
	require.NoError(t, err)

	var assembled string
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		assembled += chunk.Content
	}
	assert.Equal(t, "because of scattering", assembled)
}
