package contract

import (
	"context"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/repository/specification"
)

type MindMapRepository interface {
	Create(ctx context.Context, mindMap *entity.MindMap) error
	Update(ctx context.Context, mindMap *entity.MindMap) error
	DeleteByConversationId(ctx context.Context, conversationId int64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MindMap, error)
}
