package events

import (
	"encoding/json"
	"time"
)

const (
	ConversationCreated = "CONVERSATION_CREATED"
	ConversationDeleted = "CONVERSATION_DELETED"
	NotesSaved          = "NOTES_SAVED"
	SummaryUpdated      = "SUMMARY_UPDATED"
	MessageSaved        = "MESSAGE_SAVED"
)

const conversationIDKey = "conversation_id"

// NewConversationEvent builds an event about one conversation. data may be nil.
func NewConversationEvent(eventType string, conversationID int64, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload[conversationIDKey] = conversationID

	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now(),
	}
}

// ConversationID extracts the conversation id from an event payload, including
// payloads that went through a JSON round trip.
func ConversationID(e Event) (int64, bool) {
	switch v := e.Payload()[conversationIDKey].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	default:
		return 0, false
	}
}
