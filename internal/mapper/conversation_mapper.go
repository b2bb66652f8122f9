package mapper

import (
	"encoding/json"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/model"

	"gorm.io/datatypes"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

// Conversation Mappers

func (m *ConversationMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	return &entity.Conversation{
		Id:        c.Id,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		Summary:   c.Summary,
		Notes:     c.Notes,
	}
}

func (m *ConversationMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	return &model.Conversation{
		Id:        c.Id,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		Summary:   c.Summary,
		Notes:     c.Notes,
	}
}

func (m *ConversationMapper) ConversationsToEntities(models []*model.Conversation) []entity.Conversation {
	entities := make([]entity.Conversation, 0, len(models))
	for _, c := range models {
		if c == nil {
			continue
		}
		entities = append(entities, *m.ConversationToEntity(c))
	}
	return entities
}

// Message Mappers

func (m *ConversationMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Seq:            msg.Seq,
	}
}

func (m *ConversationMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Seq:            msg.Seq,
	}
}

func (m *ConversationMapper) MessagesToEntities(models []*model.Message) []entity.Message {
	entities := make([]entity.Message, 0, len(models))
	for _, msg := range models {
		if msg == nil {
			continue
		}
		entities = append(entities, *m.MessageToEntity(msg))
	}
	return entities
}

// Mind Map Mappers

func (m *ConversationMapper) MindMapToEntity(mm *model.MindMap) *entity.MindMap {
	if mm == nil {
		return nil
	}

	return &entity.MindMap{
		Id:             mm.Id,
		ConversationId: mm.ConversationId,
		Title:          mm.Title,
		Nodes:          json.RawMessage(mm.Nodes),
		Connections:    json.RawMessage(mm.Connections),
		Theme:          mm.Theme,
		CreatedAt:      mm.CreatedAt,
		UpdatedAt:      mm.UpdatedAt,
	}
}

func (m *ConversationMapper) MindMapToModel(mm *entity.MindMap) *model.MindMap {
	if mm == nil {
		return nil
	}

	nodes := mm.Nodes
	if len(nodes) == 0 {
		nodes = json.RawMessage("[]")
	}
	connections := mm.Connections
	if len(connections) == 0 {
		connections = json.RawMessage("[]")
	}

	return &model.MindMap{
		Id:             mm.Id,
		ConversationId: mm.ConversationId,
		Title:          mm.Title,
		Nodes:          datatypes.JSON(nodes),
		Connections:    datatypes.JSON(connections),
		Theme:          mm.Theme,
		CreatedAt:      mm.CreatedAt,
		UpdatedAt:      mm.UpdatedAt,
	}
}
