package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"ai-topic-notes/internal/entity"
)

// MemoryStore is an ephemeral Store used when no database is configured and as the
// base of test doubles. Ordering and error semantics match GormStore.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	conversations map[int64]entity.Conversation
	messages      map[int64][]entity.Message
	mindMaps      map[int64]entity.MindMap
	nextID        struct{ conversation, message, mindMap int64 }
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		conversations: make(map[int64]entity.Conversation),
		messages:      make(map[int64][]entity.Message),
		mindMaps:      make(map[int64]entity.MindMap),
	}
}

func (s *MemoryStore) CreateConversation(ctx context.Context, name, summary string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, newError("CreateConversation", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID.conversation++
	id := s.nextID.conversation
	s.conversations[id] = entity.Conversation{
		Id:        id,
		Name:      name,
		Summary:   summary,
		CreatedAt: s.now(),
	}
	return id, nil
}

func (s *MemoryStore) ListConversations(ctx context.Context) ([]entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("ListConversations", ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedConversations(), nil
}

func (s *MemoryStore) ListConversationsPage(ctx context.Context, limit, offset int) ([]entity.Conversation, error) {
	if limit <= 0 || offset < 0 {
		return nil, newError("ListConversationsPage", ErrConstraintViolation, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, newError("ListConversationsPage", ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedConversations()
	if offset >= len(all) {
		return []entity.Conversation{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *MemoryStore) CountConversations(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, newError("CountConversations", ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.conversations)), nil
}

func (s *MemoryStore) sortedConversations() []entity.Conversation {
	out := make([]entity.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Id > out[j].Id
	})
	return out
}

func (s *MemoryStore) GetConversation(ctx context.Context, id int64) (*entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("GetConversation", ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) UpdateNotes(ctx context.Context, id int64, notes string) error {
	return s.updateConversation(ctx, "UpdateNotes", id, func(c *entity.Conversation) { c.Notes = notes })
}

func (s *MemoryStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	return s.updateConversation(ctx, "UpdateSummary", id, func(c *entity.Conversation) { c.Summary = summary })
}

func (s *MemoryStore) updateConversation(ctx context.Context, op string, id int64, apply func(*entity.Conversation)) error {
	if err := ctx.Err(); err != nil {
		return newError(op, ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return newError(op, ErrNotFound, nil)
	}
	apply(&c)
	s.conversations[id] = c
	return nil
}

func (s *MemoryStore) DeleteConversation(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return newError("DeleteConversation", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return newError("DeleteConversation", ErrConstraintViolation, nil)
	}
	delete(s.messages, id)
	delete(s.mindMaps, id)
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) SaveMessage(ctx context.Context, conversationID int64, role, content string) (int64, error) {
	const op = "SaveMessage"
	if !entity.IsValidMessageRole(role) {
		return 0, newError(op, ErrConstraintViolation, nil)
	}
	if err := ctx.Err(); err != nil {
		return 0, newError(op, ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return 0, newError(op, ErrConstraintViolation, nil)
	}

	existing := s.messages[conversationID]
	var seq int64 = 1
	if n := len(existing); n > 0 {
		seq = existing[n-1].Seq + 1
	}

	s.nextID.message++
	message := entity.Message{
		Id:             s.nextID.message,
		ConversationId: conversationID,
		Role:           role,
		Content:        content,
		Seq:            seq,
	}
	s.messages[conversationID] = append(existing, message)
	return message.Id, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conversationID int64) ([]entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("ListMessages", ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.messages[conversationID]
	out := make([]entity.Message, len(messages))
	copy(out, messages)
	return out, nil
}

func (s *MemoryStore) GetMindMap(ctx context.Context, conversationID int64) (*entity.MindMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("GetMindMap", ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mindMaps[conversationID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MemoryStore) SaveMindMap(ctx context.Context, mindMap entity.MindMap) (int64, error) {
	const op = "SaveMindMap"
	if err := ctx.Err(); err != nil {
		return 0, newError(op, ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[mindMap.ConversationId]; !ok {
		return 0, newError(op, ErrConstraintViolation, nil)
	}
	if mindMap.Theme == "" {
		mindMap.Theme = entity.DefaultMindMapTheme
	}
	if len(mindMap.Nodes) == 0 {
		mindMap.Nodes = json.RawMessage("[]")
	}
	if len(mindMap.Connections) == 0 {
		mindMap.Connections = json.RawMessage("[]")
	}

	now := s.now()
	if existing, ok := s.mindMaps[mindMap.ConversationId]; ok {
		mindMap.Id = existing.Id
		mindMap.CreatedAt = existing.CreatedAt
	} else {
		s.nextID.mindMap++
		mindMap.Id = s.nextID.mindMap
		mindMap.CreatedAt = now
	}
	mindMap.UpdatedAt = now
	s.mindMaps[mindMap.ConversationId] = mindMap
	return mindMap.Id, nil
}
