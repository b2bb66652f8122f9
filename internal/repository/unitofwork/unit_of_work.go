package unitofwork

import (
	"context"

	"ai-topic-notes/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
	MindMapRepository() contract.MindMapRepository
}
