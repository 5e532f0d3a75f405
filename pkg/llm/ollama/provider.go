package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements Provider
var _ llm.Provider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	// 1. Map parts to a single user message
	user, err := buildUserMessage(req.Parts)
	if err != nil {
		return "", err
	}

	messages := make([]ollamaMessage, 0, 2)
	if req.SystemInstruction != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.SystemInstruction})
	}
	messages = append(messages, user)

	// 2. Prepare Payload
	model := o.ModelName
	if req.Options.Model != "" {
		model = req.Options.Model
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: req.Options.Temperature,
			NumPredict:  req.Options.MaxTokens,
		},
	}

	if req.ResponseSchema != nil {
		format, err := json.Marshal(req.ResponseSchema.JSONSchema())
		if err != nil {
			return "", fmt.Errorf("marshal schema: %w", err)
		}
		reqPayload.Format = format
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	// 3. Send Request
	url := o.BaseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	// 4. Parse Response
	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return ollamaResp.Message.Content, nil
}

func (o *OllamaProvider) Close() error {
	o.Client.CloseIdleConnections()
	return nil
}

// buildUserMessage inlines text attachments, forwards images natively and
// lists everything else by name, since the chat API has no generic file part.
func buildUserMessage(parts []llm.Part) (ollamaMessage, error) {
	msg := ollamaMessage{Role: "user"}
	var attachments, text strings.Builder

	for i, p := range parts {
		if p.InlineData == nil {
			if text.Len() > 0 {
				text.WriteString("\n\n")
			}
			text.WriteString(p.Text)
			continue
		}

		blob := p.InlineData
		title := strings.TrimSpace(blob.DisplayName)
		if title == "" {
			title = fmt.Sprintf("file_%d", i+1)
		}

		switch {
		case strings.HasPrefix(blob.MIMEType, "image/"):
			msg.Images = append(msg.Images, blob.Data)
			fmt.Fprintf(&attachments, "\n[Image attachment] %s (%s)\n", title, blob.MIMEType)
		case isTextMIME(blob.MIMEType):
			data, err := base64.StdEncoding.DecodeString(blob.Data)
			if err != nil {
				return msg, fmt.Errorf("decode inline payload %q: %w", title, err)
			}
			fmt.Fprintf(&attachments, "\n<<<FILE %s [%s]>>>:\n", title, blob.MIMEType)
			attachments.Write(data)
			fmt.Fprintf(&attachments, "\n<<<END FILE %s>>>\n", title)
		default:
			fmt.Fprintf(&attachments, "\n[Non-text attachment] %s (%s)\n", title, blob.MIMEType)
		}
	}

	if attachments.Len() > 0 {
		msg.Content = "ATTACHMENTS BEGIN\n" + attachments.String() + "ATTACHMENTS END\n\n" + text.String()
	} else {
		msg.Content = text.String()
	}
	return msg, nil
}

func isTextMIME(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(m, "text/") {
		return true
	}
	switch m {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml":
		return true
	default:
		return false
	}
}
