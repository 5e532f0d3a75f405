//go:build integration

// Runs against a local Ollama server:
//
//	OLLAMA_BASE_URL=http://localhost:11434 OLLAMA_TEST_MODEL=gemma:2b go test -tags integration ./pkg/llm/ollama/
package ollama_test

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm/ollama"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/encoder"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/executor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/prompt"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lectureNotes = `Lecture 3: Newton's First Law.
An object at rest stays at rest and an object in motion stays in motion
unless acted upon by a net external force. This property is called inertia.`

func liveProvider(t *testing.T) *ollama.OllamaProvider {
	t.Helper()

	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := os.Getenv("OLLAMA_TEST_MODEL")
	if model == "" {
		model = "gemma:2b"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Get(baseURL)
	if err != nil {
		t.Skipf("Ollama not running at %s: %v", baseURL, err)
	}
	res.Body.Close()

	return ollama.NewOllamaProvider(baseURL, model)
}

func encodedNotes(t *testing.T) []tutor.EncodedFile {
	t.Helper()
	files, err := encoder.EncodeAll(context.Background(), []encoder.File{
		encoder.FromBytes("lecture3.txt", "text/plain", []byte(lectureNotes)),
	})
	require.NoError(t, err)
	return files
}

func TestOllama_PlainGenerate(t *testing.T) {
	p := liveProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	out, err := p.Generate(ctx, &llm.Request{
		Parts: []llm.Part{llm.TextPart("Say 'Ollama works!' in one sentence.")},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out)
	t.Logf("Response: %s", out)
}

func TestOllama_TutorModes(t *testing.T) {
	p := liveProvider(t)
	log := logger.NewNopLogger()
	builder := prompt.NewBuilder("Physics 101")
	exec := executor.NewWithProvider(p, 120*time.Second, log)
	interp := response.NewInterpreter(log)
	files := encodedNotes(t)

	tests := []struct {
		name string
		mode tutor.TutorMode
		text string
	}{
		{name: "explain concept", mode: tutor.ModeExplainConcept, text: "What is inertia?"},
		{name: "practice problem", mode: tutor.ModePracticeProblem, text: "Newton's first law"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, err := builder.Build(tt.mode, tt.text)
			require.NoError(t, err)

			outcome := exec.Execute(context.Background(), files, pr.InstructionText, builder.SystemInstruction(), pr.OutputContract)
			require.False(t, outcome.Failed, "query failed: %s", outcome)

			result := interp.InterpretDetailed(outcome, tt.mode)
			t.Logf("Tier: %s, turn: %+v", result.Tier, result.Turn)

			// small local models may not honour the schema; any non-failure tier is acceptable
			assert.NotEqual(t, response.TierFailure, result.Tier)
		})
	}
}
