package llm

import (
	"context"
)

// Part is one item of the ordered content sequence sent to the model.
// Exactly one of Text or InlineData is set.
type Part struct {
	Text       string
	InlineData *Blob
}

// Blob is an inline file payload. Data holds base64 text, as produced by the
// file encoder.
type Blob struct {
	DisplayName string
	MIMEType    string
	Data        string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func BlobPart(name, mimeType, base64Data string) Part {
	return Part{InlineData: &Blob{DisplayName: name, MIMEType: mimeType, Data: base64Data}}
}

// Request is a single, fully composed model invocation.
// ResponseMIMEType and ResponseSchema are either both set or both empty.
type Request struct {
	Parts             []Part
	SystemInstruction string
	ResponseMIMEType  string
	ResponseSchema    *Schema
	Options           Options
}

const MIMETypeJSON = "application/json"

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature *float32
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float32) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// NewRequest assembles a request from its ordered parts.
func NewRequest(parts []Part, systemInstruction string, opts ...Option) *Request {
	req := &Request{Parts: parts, SystemInstruction: systemInstruction}
	for _, opt := range opts {
		opt(&req.Options)
	}
	return req
}

// WithStructuredOutput constrains the response to JSON matching schema.
func (r *Request) WithStructuredOutput(schema *Schema) *Request {
	r.ResponseMIMEType = MIMETypeJSON
	r.ResponseSchema = schema
	return r
}

// Provider defines the contract for any model backend
type Provider interface {
	// Generate dispatches exactly one request and returns the model text verbatim.
	Generate(ctx context.Context, req *Request) (string, error)
	Close() error
}
