package model

import (
	"time"

	"gorm.io/datatypes"
)

type MindMap struct {
	Id             int64          `gorm:"primaryKey;autoIncrement"`
	ConversationId int64          `gorm:"not null;uniqueIndex"`
	Title          string         `gorm:"type:text;not null"`
	Nodes          datatypes.JSON `gorm:"not null"`
	Connections    datatypes.JSON `gorm:"not null"`
	Theme          string         `gorm:"type:varchar(64);default:'default'"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`

	Conversation *Conversation `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

func (MindMap) TableName() string {
	return "mindmaps"
}
