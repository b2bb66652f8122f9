package dto

import (
	"encoding/json"
	"time"
)

type CreateConversationRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Summary string `json:"summary"`
}

type ConversationResponse struct {
	Id        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Summary   string    `json:"summary"`
	Notes     string    `json:"notes"`
}

type ConversationPageRequest struct {
	Limit  int `query:"limit" validate:"gte=1,lte=100"`
	Offset int `query:"offset" validate:"gte=0"`
}

type ConversationPageResponse struct {
	Items  []*ConversationResponse `json:"items"`
	Total  int64                   `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

type MessageResponse struct {
	Id             int64  `json:"id"`
	ConversationId int64  `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Seq            int64  `json:"seq"`
}

type SaveMindMapRequest struct {
	ConversationId int64
	Title          string          `json:"title" validate:"required"`
	Nodes          json.RawMessage `json:"nodes"`
	Connections    json.RawMessage `json:"connections"`
	Theme          string          `json:"theme"`
}

type MindMapResponse struct {
	Id             int64           `json:"id"`
	ConversationId int64           `json:"conversation_id"`
	Title          string          `json:"title"`
	Nodes          json.RawMessage `json:"nodes"`
	Connections    json.RawMessage `json:"connections"`
	Theme          string          `json:"theme"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
