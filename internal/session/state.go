package session

import "ai-topic-notes/internal/entity"

// AutosaveState is the notes autosave state machine:
// Idle -> Pending(deadline) -> Saving -> Idle. A flush forces Pending or Saving
// back to Idle synchronously.
type AutosaveState int

const (
	AutosaveIdle AutosaveState = iota
	AutosavePending
	AutosaveSaving
)

func (s AutosaveState) String() string {
	switch s {
	case AutosavePending:
		return "pending"
	case AutosaveSaving:
		return "saving"
	default:
		return "idle"
	}
}

func (s AutosaveState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a snapshot of the session. Slices and pointers are copies.
type State struct {
	ConversationID int64
	Selected       bool
	Loading        bool
	Conversation   *entity.Conversation
	Messages       []entity.Message
	Notes          string
	Summary        string
	Autosave       AutosaveState
	Dirty          bool
	// LastError is the reason of the last failed operation, empty after a success.
	LastError string
}
