package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm/factory"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	module            = "EXECUTOR"
	DefaultTimeout    = 120 * time.Second
	missingCredential = "missing credential"
	providerPanicked  = "provider panicked"
	deadlineExceeded  = "no response before deadline"
)

type Config struct {
	Credential string
	// CredentialRequired is false for local providers such as ollama.
	CredentialRequired bool
	Timeout            time.Duration
}

// Executor sends exactly one request per call to the configured model backend.
// The provider handle is created on first use and shared by all callers.
type Executor struct {
	cfg     Config
	connect factory.Connector
	logger  logger.ILogger

	mu       sync.Mutex
	provider llm.Provider
}

func New(cfg Config, connect factory.Connector, log logger.ILogger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Executor{cfg: cfg, connect: connect, logger: log}
}

// NewWithProvider wraps an already constructed provider.
func NewWithProvider(p llm.Provider, timeout time.Duration, log logger.ILogger) *Executor {
	e := New(Config{Timeout: timeout}, nil, log)
	e.provider = p
	return e
}

func (e *Executor) handle(ctx context.Context) (llm.Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.provider != nil {
		return e.provider, nil
	}
	if e.cfg.CredentialRequired && strings.TrimSpace(e.cfg.Credential) == "" {
		return nil, errors.New(missingCredential)
	}
	if e.connect == nil {
		return nil, errors.New("no model backend configured")
	}
	p, err := e.connect(ctx, e.cfg.Credential)
	if err != nil {
		return nil, err
	}
	e.provider = p
	return p, nil
}

// Execute composes [files..., instruction] with the system instruction and,
// when contract is non-nil, a JSON response constraint, then dispatches once.
// It never returns an error; every failure is classified into the Outcome.
func (e *Executor) Execute(ctx context.Context, files []tutor.EncodedFile, instructionText, systemInstruction string, contract *llm.Schema) (out tutor.Outcome) {
	ctx, span := otel.Tracer("tutor").Start(ctx, "tutor.query.execute")
	span.SetAttributes(
		attribute.Int("tutor.files", len(files)),
		attribute.Bool("tutor.structured", contract != nil),
	)
	defer func() {
		if out.Failed {
			span.SetStatus(codes.Error, out.Detail)
			span.SetAttributes(attribute.String("tutor.error_kind", string(out.Kind)))
		}
		span.End()
	}()

	provider, err := e.handle(ctx)
	if err != nil {
		e.logger.Error(module, "Model backend unavailable", map[string]interface{}{"error": err.Error()})
		return tutor.Failure(tutor.ConfigError, err.Error())
	}

	req := BuildRequest(files, instructionText, systemInstruction, contract)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := e.dispatch(ctx, provider, req)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			e.logger.Warn(module, "Model call timed out", map[string]interface{}{"timeout": e.cfg.Timeout.String()})
			return tutor.Failure(tutor.Timeout, fmt.Sprintf("%s (%s)", deadlineExceeded, e.cfg.Timeout))
		}
		e.logger.Error(module, "Model call failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": elapsed.String(),
		})
		return tutor.Failure(tutor.ModelCallError, err.Error())
	}

	e.logger.Info(module, "Model call completed", map[string]interface{}{
		"files":      len(files),
		"structured": contract != nil,
		"chars":      len(text),
		"duration":   elapsed.String(),
	})
	return tutor.RawText(text)
}

func (e *Executor) dispatch(ctx context.Context, p llm.Provider, req *llm.Request) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", providerPanicked, r)
		}
	}()
	return p.Generate(ctx, req)
}

// BuildRequest lays out the request parts: each file in order, then the
// instruction text last.
func BuildRequest(files []tutor.EncodedFile, instructionText, systemInstruction string, contract *llm.Schema) *llm.Request {
	parts := make([]llm.Part, 0, len(files)+1)
	for _, f := range files {
		parts = append(parts, llm.BlobPart(f.DisplayName, f.MimeType, f.Payload))
	}
	parts = append(parts, llm.TextPart(instructionText))

	req := llm.NewRequest(parts, systemInstruction)
	if contract != nil {
		req.WithStructuredOutput(contract)
	}
	return req
}

// Close releases the provider handle if one was created.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.provider == nil {
		return nil
	}
	err := e.provider.Close()
	e.provider = nil
	return err
}
