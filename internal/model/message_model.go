package model

type Message struct {
	Id             int64  `gorm:"primaryKey;autoIncrement"`
	ConversationId int64  `gorm:"not null;index;uniqueIndex:idx_messages_conversation_seq,priority:1"`
	Role           string `gorm:"type:varchar(16);not null"`
	Content        string `gorm:"type:text;not null"`
	Seq            int64  `gorm:"not null;uniqueIndex:idx_messages_conversation_seq,priority:2"`

	Conversation *Conversation `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

func (Message) TableName() string {
	return "messages"
}
