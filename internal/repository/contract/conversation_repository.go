package contract

import (
	"context"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/repository/specification"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	UpdateNotes(ctx context.Context, id int64, notes string) (int64, error)
	UpdateSummary(ctx context.Context, id int64, summary string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Conversation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
