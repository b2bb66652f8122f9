package entity

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Message is immutable once stored. Seq is strictly increasing per conversation.
type Message struct {
	Id             int64
	ConversationId int64
	Role           string
	Content        string
	Seq            int64
}

func IsValidMessageRole(role string) bool {
	return role == MessageRoleUser || role == MessageRoleAssistant
}
