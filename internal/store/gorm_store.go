package store

import (
	"context"
	"time"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/repository/specification"
	"ai-topic-notes/internal/repository/unitofwork"
)

// GormStore implements Store over the unit-of-work repositories.
type GormStore struct {
	uowFactory unitofwork.RepositoryFactory
}

var _ Store = (*GormStore)(nil)

func NewGormStore(uowFactory unitofwork.RepositoryFactory) *GormStore {
	return &GormStore{uowFactory: uowFactory}
}

func (s *GormStore) CreateConversation(ctx context.Context, name, summary string) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversation := entity.Conversation{
		Name:      name,
		Summary:   summary,
		CreatedAt: time.Now(),
	}

	if err := uow.ConversationRepository().Create(ctx, &conversation); err != nil {
		return 0, wrapGormError("CreateConversation", err)
	}
	return conversation.Id, nil
}

func (s *GormStore) ListConversations(ctx context.Context) ([]entity.Conversation, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ConversationRepository().FindAll(ctx, specification.NewestFirst{})
	if err != nil {
		return nil, wrapGormError("ListConversations", err)
	}
	return conversations, nil
}

func (s *GormStore) ListConversationsPage(ctx context.Context, limit, offset int) ([]entity.Conversation, error) {
	if limit <= 0 || offset < 0 {
		return nil, newError("ListConversationsPage", ErrConstraintViolation, nil)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.NewestFirst{},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, wrapGormError("ListConversationsPage", err)
	}
	return conversations, nil
}

func (s *GormStore) CountConversations(ctx context.Context) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	count, err := uow.ConversationRepository().Count(ctx)
	if err != nil {
		return 0, wrapGormError("CountConversations", err)
	}
	return count, nil
}

func (s *GormStore) GetConversation(ctx context.Context, id int64) (*entity.Conversation, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, wrapGormError("GetConversation", err)
	}
	return conversation, nil
}

func (s *GormStore) UpdateNotes(ctx context.Context, id int64, notes string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	affected, err := uow.ConversationRepository().UpdateNotes(ctx, id, notes)
	if err != nil {
		return wrapGormError("UpdateNotes", err)
	}
	if affected == 0 {
		return newError("UpdateNotes", ErrNotFound, nil)
	}
	return nil
}

func (s *GormStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	affected, err := uow.ConversationRepository().UpdateSummary(ctx, id, summary)
	if err != nil {
		return wrapGormError("UpdateSummary", err)
	}
	if affected == 0 {
		return newError("UpdateSummary", ErrNotFound, nil)
	}
	return nil
}

func (s *GormStore) DeleteConversation(ctx context.Context, id int64) error {
	const op = "DeleteConversation"
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return wrapGormError(op, err)
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteByConversationId(ctx, id); err != nil {
		return wrapGormError(op, err)
	}
	if err := uow.MindMapRepository().DeleteByConversationId(ctx, id); err != nil {
		return wrapGormError(op, err)
	}
	affected, err := uow.ConversationRepository().Delete(ctx, id)
	if err != nil {
		return wrapGormError(op, err)
	}
	if affected == 0 {
		return newError(op, ErrConstraintViolation, nil)
	}

	if err := uow.Commit(); err != nil {
		return wrapGormError(op, err)
	}
	return nil
}

func (s *GormStore) SaveMessage(ctx context.Context, conversationID int64, role, content string) (int64, error) {
	const op = "SaveMessage"
	if !entity.IsValidMessageRole(role) {
		return 0, newError(op, ErrConstraintViolation, nil)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, wrapGormError(op, err)
	}
	defer uow.Rollback()

	// Lock the parent row so concurrent appends cannot compute the same seq.
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationID},
		specification.ForUpdate{},
	)
	if err != nil {
		return 0, wrapGormError(op, err)
	}
	if conversation == nil {
		return 0, newError(op, ErrConstraintViolation, nil)
	}

	maxSeq, err := uow.MessageRepository().MaxSeq(ctx, conversationID)
	if err != nil {
		return 0, wrapGormError(op, err)
	}

	message := entity.Message{
		ConversationId: conversationID,
		Role:           role,
		Content:        content,
		Seq:            maxSeq + 1,
	}
	if err := uow.MessageRepository().Create(ctx, &message); err != nil {
		return 0, wrapGormError(op, err)
	}

	if err := uow.Commit(); err != nil {
		return 0, wrapGormError(op, err)
	}
	return message.Id, nil
}

func (s *GormStore) ListMessages(ctx context.Context, conversationID int64) ([]entity.Message, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationID},
		specification.OrderBy{Field: "seq"},
	)
	if err != nil {
		return nil, wrapGormError("ListMessages", err)
	}
	return messages, nil
}

func (s *GormStore) GetMindMap(ctx context.Context, conversationID int64) (*entity.MindMap, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	mindMap, err := uow.MindMapRepository().FindOne(ctx, specification.ByConversationID{ConversationID: conversationID})
	if err != nil {
		return nil, wrapGormError("GetMindMap", err)
	}
	return mindMap, nil
}

func (s *GormStore) SaveMindMap(ctx context.Context, mindMap entity.MindMap) (int64, error) {
	const op = "SaveMindMap"
	if mindMap.Theme == "" {
		mindMap.Theme = entity.DefaultMindMapTheme
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return 0, wrapGormError(op, err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: mindMap.ConversationId})
	if err != nil {
		return 0, wrapGormError(op, err)
	}
	if conversation == nil {
		return 0, newError(op, ErrConstraintViolation, nil)
	}

	existing, err := uow.MindMapRepository().FindOne(ctx, specification.ByConversationID{ConversationID: mindMap.ConversationId})
	if err != nil {
		return 0, wrapGormError(op, err)
	}

	if existing != nil {
		existing.Title = mindMap.Title
		existing.Nodes = mindMap.Nodes
		existing.Connections = mindMap.Connections
		existing.Theme = mindMap.Theme
		if err := uow.MindMapRepository().Update(ctx, existing); err != nil {
			return 0, wrapGormError(op, err)
		}
		mindMap = *existing
	} else {
		mindMap.Id = 0
		if err := uow.MindMapRepository().Create(ctx, &mindMap); err != nil {
			return 0, wrapGormError(op, err)
		}
	}

	if err := uow.Commit(); err != nil {
		return 0, wrapGormError(op, err)
	}
	return mindMap.Id, nil
}
