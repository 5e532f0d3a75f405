package service

import (
	"context"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder ships events off-process; the NATS publisher implements it.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	diagnostics logger.ILogger
	forwarder   EventForwarder
	logger      logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	diagnostics logger.ILogger,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		diagnostics: diagnostics,
		forwarder:   forwarder,
		logger:      log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("CONSUMER", "Dropping undecodable event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // a retry would fail the same way
		return
	}

	details := map[string]interface{}{}
	for k, v := range event.Payload() {
		details[k] = v
	}
	details["occurred_at"] = event.Timestamp().Format(time.RFC3339Nano)

	if event.EventType() == events.TypeStructuredDecodeFailed {
		cs.diagnostics.Warn("TUTOR", event.EventType(), details)
	} else {
		cs.diagnostics.Info("TUTOR", event.EventType(), details)
	}

	if cs.forwarder != nil {
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cs.forwarder.Publish(fctx, event); err != nil {
			// forwarding is best effort; the diagnostics log already has the event
			cs.logger.Warn("CONSUMER", "Event forward failed", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
