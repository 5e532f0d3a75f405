package factory

import (
	"context"
	"testing"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnector(t *testing.T) {
	tests := []struct {
		provider string
		wantCred bool
		wantErr  bool
	}{
		{provider: "gemini", wantCred: true},
		{provider: "google", wantCred: true},
		{provider: "", wantCred: true},
		{provider: "ollama", wantCred: false},
		{provider: "huggingface", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			connect, needsCred, err := NewConnector(tt.provider, "", "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, connect)
			assert.Equal(t, tt.wantCred, needsCred)
		})
	}
}

func TestOllamaConnectorDefaults(t *testing.T) {
	connect, _, err := NewConnector("ollama", "", "")
	require.NoError(t, err)

	p, err := connect(context.Background(), "")
	require.NoError(t, err)

	op, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", op.BaseURL)
	assert.Equal(t, "llama3", op.ModelName)
}

func TestGeminiConnectorRejectsEmptyCredential(t *testing.T) {
	connect, _, err := NewConnector("gemini", "", "")
	require.NoError(t, err)

	_, err = connect(context.Background(), "")
	assert.Error(t, err)
}
