package session

import (
	"context"
	"time"

	"ai-topic-notes/pkg/events"
	"ai-topic-notes/pkg/llm"
)

const (
	DefaultDebounce     = 1000 * time.Millisecond
	DefaultStoreTimeout = 10 * time.Second
)

// EventPublisher receives domain events. Publishing is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Option func(*Controller)

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithStoreTimeout bounds every store call made on behalf of a session operation.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.storeTimeout = d
		}
	}
}

func WithLLM(provider llm.LLMProvider) Option {
	return func(c *Controller) {
		c.llm = provider
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(c *Controller) {
		c.events = p
	}
}

// SendOptions tunes one chat turn.
type SendOptions struct {
	// Thinking lets the model reason before answering. Reasoning blocks are
	// stripped from the stored reply either way.
	Thinking bool
}
