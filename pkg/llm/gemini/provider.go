package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiProvider owns one SDK client for the lifetime of the process.
// Model settings are applied to a fresh GenerativeModel per request so the
// client itself is never mutated after construction.
type GeminiProvider struct {
	client    *genai.Client
	ModelName string
}

var _ llm.Provider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing credential")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiProvider{client: client, ModelName: modelName}, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	name := g.ModelName
	if req.Options.Model != "" {
		name = req.Options.Model
	}
	model := g.client.GenerativeModel(name)

	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}
	if req.ResponseSchema != nil {
		model.ResponseMIMEType = req.ResponseMIMEType
		model.ResponseSchema = toGenaiSchema(req.ResponseSchema)
	}
	if req.Options.Temperature != nil {
		model.SetTemperature(*req.Options.Temperature)
	}
	if req.Options.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.Options.MaxTokens))
	}

	parts, err := toGenaiParts(req.Parts)
	if err != nil {
		return "", err
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

func toGenaiParts(parts []llm.Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.InlineData == nil {
			out = append(out, genai.Text(p.Text))
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode inline payload %q: %w", p.InlineData.DisplayName, err)
		}
		out = append(out, genai.Blob{MIMEType: p.InlineData.MIMEType, Data: data})
	}
	return out, nil
}

func toGenaiSchema(s *llm.Schema) *genai.Schema {
	gs := &genai.Schema{
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
	}
	switch s.Type {
	case llm.TypeObject:
		gs.Type = genai.TypeObject
	case llm.TypeString:
		gs.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			gs.Properties[name] = toGenaiSchema(p)
		}
	}
	return gs
}
