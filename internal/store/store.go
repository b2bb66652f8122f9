// Package store defines the persistence contract the cache layer and the session
// controller consume, together with its gorm and in-memory implementations.
package store

import (
	"context"

	"ai-topic-notes/internal/entity"
)

// Store is the durable authority for conversations, messages and mind maps.
//
// Lookups of a single entity return (nil, nil) when the entity does not exist.
// Every other failure is returned as an *Error classified by one of
// ErrStoreUnavailable, ErrNotFound or ErrConstraintViolation.
type Store interface {
	CreateConversation(ctx context.Context, name, summary string) (int64, error)
	// ListConversations is ordered by created_at descending.
	ListConversations(ctx context.Context) ([]entity.Conversation, error)
	ListConversationsPage(ctx context.Context, limit, offset int) ([]entity.Conversation, error)
	CountConversations(ctx context.Context) (int64, error)
	GetConversation(ctx context.Context, id int64) (*entity.Conversation, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	UpdateSummary(ctx context.Context, id int64, summary string) error
	// DeleteConversation cascades to the conversation's messages and mind map.
	DeleteConversation(ctx context.Context, id int64) error

	// SaveMessage assigns the next seq for the conversation.
	SaveMessage(ctx context.Context, conversationID int64, role, content string) (int64, error)
	// ListMessages is ordered by seq ascending.
	ListMessages(ctx context.Context, conversationID int64) ([]entity.Message, error)

	GetMindMap(ctx context.Context, conversationID int64) (*entity.MindMap, error)
	// SaveMindMap inserts or replaces the single mind map of a conversation.
	SaveMindMap(ctx context.Context, mindMap entity.MindMap) (int64, error)
}
