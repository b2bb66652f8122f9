package entity

import (
	"encoding/json"
	"time"
)

type MindMap struct {
	Id             int64
	ConversationId int64
	Title          string
	Nodes          json.RawMessage
	Connections    json.RawMessage
	Theme          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const DefaultMindMapTheme = "default"
