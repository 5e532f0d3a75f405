package factory

import (
	"context"
	"fmt"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm/gemini"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm/ollama"
)

// Connector builds a provider on first use. The executor calls it lazily and
// keeps the result for the life of the process.
type Connector func(ctx context.Context, credential string) (llm.Provider, error)

// NewConnector returns the connector for providerType and whether that
// provider needs a credential before any dispatch.
func NewConnector(providerType, modelName, baseURL string) (Connector, bool, error) {
	switch providerType {
	case "gemini", "google", "":
		return func(ctx context.Context, credential string) (llm.Provider, error) {
			return gemini.NewGeminiProvider(ctx, credential, modelName)
		}, true, nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		if modelName == "" {
			modelName = "llama3"
		}
		return func(context.Context, string) (llm.Provider, error) {
			return ollama.NewOllamaProvider(baseURL, modelName), nil
		}, false, nil
	default:
		return nil, false, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
