package service

import (
	"context"

	"ai-topic-notes/internal/cache"
	"ai-topic-notes/internal/dto"
	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/store"
)

// IConversationService serves read paths from the cache layer and the paginated
// and mind-map paths straight from the store.
type IConversationService interface {
	List(ctx context.Context) []*dto.ConversationResponse
	Page(ctx context.Context, req *dto.ConversationPageRequest) (*dto.ConversationPageResponse, error)
	Show(ctx context.Context, id int64) (*dto.ConversationResponse, error)
	Messages(ctx context.Context, id int64) ([]*dto.MessageResponse, error)
	GetMindMap(ctx context.Context, id int64) (*dto.MindMapResponse, error)
	SaveMindMap(ctx context.Context, req *dto.SaveMindMapRequest) (*dto.MindMapResponse, error)
}

type conversationService struct {
	cache *cache.Layer
	store store.Store
}

func NewConversationService(cacheLayer *cache.Layer, s store.Store) IConversationService {
	return &conversationService{
		cache: cacheLayer,
		store: s,
	}
}

func (c *conversationService) List(ctx context.Context) []*dto.ConversationResponse {
	return toConversationResponses(c.cache.GetConversationList(ctx))
}

func (c *conversationService) Page(ctx context.Context, req *dto.ConversationPageRequest) (*dto.ConversationPageResponse, error) {
	items, err := c.store.ListConversationsPage(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	total, err := c.store.CountConversations(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.ConversationPageResponse{
		Items:  toConversationResponses(items),
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}

func (c *conversationService) Show(ctx context.Context, id int64) (*dto.ConversationResponse, error) {
	conversation := c.cache.GetConversation(ctx, id)
	if conversation == nil {
		return nil, &store.Error{Op: "GetConversation", Kind: store.ErrNotFound}
	}
	return toConversationResponse(*conversation), nil
}

func (c *conversationService) Messages(ctx context.Context, id int64) ([]*dto.MessageResponse, error) {
	res := c.cache.FetchMessages(ctx, id)
	if res.Err != nil {
		return nil, res.Err
	}
	return toMessageResponses(res.Messages), nil
}

func (c *conversationService) GetMindMap(ctx context.Context, id int64) (*dto.MindMapResponse, error) {
	mindMap, err := c.store.GetMindMap(ctx, id)
	if err != nil {
		return nil, err
	}
	if mindMap == nil {
		return nil, &store.Error{Op: "GetMindMap", Kind: store.ErrNotFound}
	}
	return toMindMapResponse(*mindMap), nil
}

func (c *conversationService) SaveMindMap(ctx context.Context, req *dto.SaveMindMapRequest) (*dto.MindMapResponse, error) {
	if _, err := c.store.SaveMindMap(ctx, entity.MindMap{
		ConversationId: req.ConversationId,
		Title:          req.Title,
		Nodes:          req.Nodes,
		Connections:    req.Connections,
		Theme:          req.Theme,
	}); err != nil {
		return nil, err
	}

	// Read back so timestamps and defaulted fields come from the store.
	return c.GetMindMap(ctx, req.ConversationId)
}

func toConversationResponse(c entity.Conversation) *dto.ConversationResponse {
	return &dto.ConversationResponse{
		Id:        c.Id,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		Summary:   c.Summary,
		Notes:     c.Notes,
	}
}

func toConversationResponses(conversations []entity.Conversation) []*dto.ConversationResponse {
	out := make([]*dto.ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, toConversationResponse(c))
	}
	return out
}

func toMessageResponses(messages []entity.Message) []*dto.MessageResponse {
	out := make([]*dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, &dto.MessageResponse{
			Id:             m.Id,
			ConversationId: m.ConversationId,
			Role:           m.Role,
			Content:        m.Content,
			Seq:            m.Seq,
		})
	}
	return out
}

func toMindMapResponse(m entity.MindMap) *dto.MindMapResponse {
	return &dto.MindMapResponse{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		Title:          m.Title,
		Nodes:          m.Nodes,
		Connections:    m.Connections,
		Theme:          m.Theme,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
