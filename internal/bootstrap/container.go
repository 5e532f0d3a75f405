package bootstrap

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/config"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/controller"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/handler"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/repository/memory"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/service"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/websocket"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm/factory"
	pktNats "github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/nats"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/executor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/prompt"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/response"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const eventTopic = "tutor_events"

type Container struct {
	TutorController      controller.ITutorController
	SessionStreamHandler *handler.SessionStreamHandler

	// Background services, started by main
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func() error
}

// NewExecutor builds the shared query executor for the configured backend.
// The model client itself is only created on the first query.
func NewExecutor(cfg *config.Config, log logger.ILogger) (*executor.Executor, error) {
	connect, needsCredential, err := factory.NewConnector(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		return nil, err
	}
	if needsCredential && cfg.Keys.GoogleGemini == "" {
		log.Warn("BOOTSTRAP", "No model credential configured; every question will report a ConfigError", nil)
	}
	return executor.New(executor.Config{
		Credential:         cfg.Keys.GoogleGemini,
		CredentialRequired: needsCredential,
		Timeout:            cfg.Tutor.QueryTimeout,
	}, connect, log), nil
}

func NewContainer(cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	diagLogger := logger.NewIsolatedLogger(cfg.App.DiagnosticsLogPath)
	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "session_stream.log"))

	c := &Container{Logger: sysLogger}

	// Event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	// Optional NATS forwarding
	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// Optional redis fan-out
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, rdb.Close)
	}

	exec, err := NewExecutor(cfg, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("model backend: %w", err)
	}
	c.closers = append(c.closers, exec.Close)
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	sessionRepo := memory.NewSessionRepository(cfg.Tutor.SessionTTL)
	wsHub := websocket.NewHub(rdb, wsLogger)

	publisherService := service.NewPublisherService(eventTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, eventTopic, diagLogger, forwarder, sysLogger)

	tutorService := service.NewTutorService(
		sessionRepo,
		prompt.NewBuilder(cfg.Tutor.CourseName),
		exec,
		response.NewInterpreter(sysLogger),
		publisherService,
		wsHub,
		sysLogger,
	)
	diagnosticsService := service.NewDiagnosticsService(diagLogger)

	c.TutorController = controller.NewTutorController(tutorService, diagnosticsService)
	c.SessionStreamHandler = handler.NewSessionStreamHandler(tutorService, wsHub, wsLogger)
	c.ConsumerService = consumerService
	c.WebSocketHub = wsHub
	c.closers = append(c.closers, func() error {
		// Sync on a console core fails on some terminals; nothing to act on
		_ = sysLogger.Sync()
		_ = wsLogger.Sync()
		return diagLogger.Sync()
	})

	return c, nil
}

// Close releases infrastructure in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] Shutdown step failed: %v", err)
		}
	}
}
