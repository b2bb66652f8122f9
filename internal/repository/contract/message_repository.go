package contract

import (
	"context"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/repository/specification"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	DeleteByConversationId(ctx context.Context, conversationId int64) error
	MaxSeq(ctx context.Context, conversationId int64) (int64, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
