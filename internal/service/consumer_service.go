package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-topic-notes/internal/cache"
	"ai-topic-notes/internal/pkg/logger"
	"ai-topic-notes/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventForwarder exports an event outside the process (NATS JetStream).
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// InvalidationBroadcaster tells other instances which cache entries went stale.
type InvalidationBroadcaster interface {
	Broadcast(ctx context.Context, scope cache.InvalidationScope, conversationID *int64) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	forwarder   EventForwarder
	broadcaster InvalidationBroadcaster
	logger      logger.ILogger
	timeout     time.Duration
}

// NewConsumerService drains the domain event topic. forwarder and broadcaster
// are optional.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	forwarder EventForwarder,
	broadcaster InvalidationBroadcaster,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		forwarder:   forwarder,
		broadcaster: broadcaster,
		logger:      log,
		timeout:     5 * time.Second,
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

// processMessage always acks: both sinks are best-effort and a nack would
// redeliver forever on the in-process bus.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var evt events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		cs.logger.Error("EventConsumer", "Failed to unmarshal event", map[string]interface{}{
			"error":      err.Error(),
			"message_id": msg.UUID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cs.timeout)
	defer cancel()

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, evt); err != nil {
			cs.logger.Warn("EventConsumer", "Failed to forward event", map[string]interface{}{
				"error": err.Error(),
				"type":  evt.Type,
			})
		}
	}

	if cs.broadcaster == nil {
		return
	}
	for _, inv := range invalidationsFor(evt) {
		if err := cs.broadcaster.Broadcast(ctx, inv.Scope, inv.ConversationID); err != nil {
			cs.logger.Warn("EventConsumer", "Failed to broadcast invalidation", map[string]interface{}{
				"error": err.Error(),
				"type":  evt.Type,
				"scope": inv.Scope,
			})
		}
	}
}

// invalidationsFor maps an event to the cache entries it makes stale on other instances.
func invalidationsFor(evt events.Event) []cache.Invalidation {
	id, hasID := events.ConversationID(evt)
	var conversationID *int64
	if hasID {
		conversationID = &id
	}

	switch evt.EventType() {
	case events.ConversationCreated, events.NotesSaved, events.SummaryUpdated:
		return []cache.Invalidation{{Scope: cache.ScopeConversations}}
	case events.ConversationDeleted:
		return []cache.Invalidation{
			{Scope: cache.ScopeConversations},
			{Scope: cache.ScopeMessages, ConversationID: conversationID},
		}
	case events.MessageSaved:
		return []cache.Invalidation{{Scope: cache.ScopeMessages, ConversationID: conversationID}}
	default:
		return nil
	}
}
