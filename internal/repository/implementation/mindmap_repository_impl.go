package implementation

import (
	"context"
	"errors"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/mapper"
	"ai-topic-notes/internal/model"
	"ai-topic-notes/internal/repository/contract"
	"ai-topic-notes/internal/repository/specification"

	"gorm.io/gorm"
)

type MindMapRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewMindMapRepository(db *gorm.DB) contract.MindMapRepository {
	return &MindMapRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *MindMapRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MindMapRepositoryImpl) Create(ctx context.Context, mindMap *entity.MindMap) error {
	m := r.mapper.MindMapToModel(mindMap)
	if err := r.db.WithContext(ctx).Omit("Conversation").Create(m).Error; err != nil {
		return err
	}
	*mindMap = *r.mapper.MindMapToEntity(m)
	return nil
}

func (r *MindMapRepositoryImpl) Update(ctx context.Context, mindMap *entity.MindMap) error {
	m := r.mapper.MindMapToModel(mindMap)
	if err := r.db.WithContext(ctx).Omit("Conversation").Save(m).Error; err != nil {
		return err
	}
	*mindMap = *r.mapper.MindMapToEntity(m)
	return nil
}

func (r *MindMapRepositoryImpl) DeleteByConversationId(ctx context.Context, conversationId int64) error {
	return r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).Delete(&model.MindMap{}).Error
}

func (r *MindMapRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MindMap, error) {
	var m model.MindMap
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MindMapToEntity(&m), nil
}
