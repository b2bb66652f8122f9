package nats

import (
	"testing"

	"ai-topic-notes/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.CONVERSATION_CREATED", Subject(events.ConversationCreated))
	assert.Equal(t, "events.MESSAGE_SAVED", Subject(events.MessageSaved))
}

func TestClose_NilConnection(t *testing.T) {
	p := &Publisher{}
	assert.NotPanics(t, p.Close)
}
