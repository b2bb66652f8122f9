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

type ConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewConversationRepository(db *gorm.DB) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *ConversationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationRepositoryImpl) Create(ctx context.Context, conversation *entity.Conversation) error {
	m := r.mapper.ConversationToModel(conversation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*conversation = *r.mapper.ConversationToEntity(m)
	return nil
}

// UpdateNotes returns the number of affected rows so callers can detect a missing conversation.
func (r *ConversationRepositoryImpl) UpdateNotes(ctx context.Context, id int64, notes string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).Update("notes", notes)
	return result.RowsAffected, result.Error
}

func (r *ConversationRepositoryImpl) UpdateSummary(ctx context.Context, id int64, summary string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).Update("summary", summary)
	return result.RowsAffected, result.Error
}

func (r *ConversationRepositoryImpl) Delete(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&model.Conversation{}, id)
	return result.RowsAffected, result.Error
}

func (r *ConversationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	var m model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ConversationToEntity(&m), nil
}

func (r *ConversationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Conversation, error) {
	var models []*model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ConversationsToEntities(models), nil
}

func (r *ConversationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Conversation{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
