package model

import "time"

type Conversation struct {
	Id        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	Summary   string    `gorm:"type:text"`
	Notes     string    `gorm:"type:text"`
}

func (Conversation) TableName() string {
	return "conversations"
}
