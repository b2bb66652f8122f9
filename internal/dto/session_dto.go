package dto

type SelectConversationRequest struct {
	ConversationId int64 `json:"conversation_id" validate:"required,gt=0"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

type SendMessageRequest struct {
	Content  string `json:"content" validate:"required"`
	Thinking bool   `json:"thinking"`
}

type UpdateSummaryRequest struct {
	Summary string `json:"summary"`
}

// SessionStateResponse mirrors session.State for the shell.
type SessionStateResponse struct {
	ConversationId *int64                `json:"conversation_id"`
	Loading        bool                  `json:"loading"`
	Conversation   *ConversationResponse `json:"conversation"`
	Messages       []*MessageResponse    `json:"messages"`
	Notes          string                `json:"notes"`
	Summary        string                `json:"summary"`
	AutosaveState  string                `json:"autosave_state"`
	Dirty          bool                  `json:"dirty"`
	AutosaveDueAt  *int64                `json:"autosave_due_at,omitempty"`
	LastError      string                `json:"last_error,omitempty"`
}
