package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-topic-notes/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultInvalidationChannel = "cache_invalidation"

type InvalidationScope string

const (
	// ScopeConversations drops the list and every per-id conversation entry.
	ScopeConversations InvalidationScope = "conversations"
	// ScopeMessages drops one conversation's messages, or all of them when no id is set.
	ScopeMessages InvalidationScope = "messages"
)

type Invalidation struct {
	Origin         string            `json:"origin"`
	Scope          InvalidationScope `json:"scope"`
	ConversationID *int64            `json:"conversation_id,omitempty"`
}

// Invalidatable is the part of Layer that remote invalidations drive.
type Invalidatable interface {
	InvalidateConversationCache()
	InvalidateMessageCache(conversationIDs ...int64)
}

// RedisInvalidator keeps several Layer instances coherent. Each instance
// publishes its own invalidations on a redis channel and applies everyone
// else's to its local Layer.
type RedisInvalidator struct {
	rdb     *redis.Client
	channel string
	origin  string
	local   Invalidatable
	logger  logger.ILogger
}

func NewRedisInvalidator(rdb *redis.Client, channel string, local Invalidatable, log logger.ILogger) *RedisInvalidator {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	return &RedisInvalidator{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		logger:  log,
	}
}

func (r *RedisInvalidator) Origin() string {
	return r.origin
}

// Broadcast publishes an invalidation for the other instances. It is a no-op
// without a redis client.
func (r *RedisInvalidator) Broadcast(ctx context.Context, scope InvalidationScope, conversationID *int64) error {
	if r.rdb == nil {
		return nil
	}

	payload, err := json.Marshal(Invalidation{
		Origin:         r.origin,
		Scope:          scope,
		ConversationID: conversationID,
	})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, payload).Err()
}

// Apply handles one payload received from the channel.
func (r *RedisInvalidator) Apply(payload []byte) error {
	var inv Invalidation
	if err := json.Unmarshal(payload, &inv); err != nil {
		return fmt.Errorf("decode invalidation: %w", err)
	}
	if inv.Origin == r.origin {
		return nil
	}

	switch inv.Scope {
	case ScopeConversations:
		r.local.InvalidateConversationCache()
	case ScopeMessages:
		if inv.ConversationID != nil {
			r.local.InvalidateMessageCache(*inv.ConversationID)
		} else {
			r.local.InvalidateMessageCache()
		}
	default:
		return fmt.Errorf("unknown invalidation scope %q", inv.Scope)
	}

	r.logger.Debug("CacheInvalidator", "Applied remote invalidation", map[string]interface{}{
		"origin": inv.Origin,
		"scope":  inv.Scope,
	})
	return nil
}

// Run subscribes to the channel until ctx is done.
func (r *RedisInvalidator) Run(ctx context.Context) {
	if r.rdb == nil {
		return
	}

	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	r.logger.Info("CacheInvalidator", "Subscribed to invalidation channel", map[string]interface{}{
		"channel": r.channel,
		"origin":  r.origin,
	})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := r.Apply([]byte(msg.Payload)); err != nil {
				r.logger.Warn("CacheInvalidator", "Dropped invalidation", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
