package service

import (
	"context"

	"ai-topic-notes/internal/dto"
	"ai-topic-notes/internal/session"
)

// ISessionService exposes the single desktop session to the HTTP layer.
// Session operations report failures in the returned state, never as errors.
type ISessionService interface {
	State(ctx context.Context) *dto.SessionStateResponse
	Select(ctx context.Context, req *dto.SelectConversationRequest) *dto.SessionStateResponse
	Create(ctx context.Context, req *dto.CreateConversationRequest) *dto.SessionStateResponse
	Delete(ctx context.Context, id int64) *dto.SessionStateResponse
	UpdateNotes(ctx context.Context, req *dto.UpdateNotesRequest) *dto.SessionStateResponse
	Flush(ctx context.Context) *dto.SessionStateResponse
	Hidden(ctx context.Context) *dto.SessionStateResponse
	SendMessage(ctx context.Context, req *dto.SendMessageRequest) *dto.SessionStateResponse
	UpdateSummary(ctx context.Context, req *dto.UpdateSummaryRequest) *dto.SessionStateResponse
	GenerateSummary(ctx context.Context) *dto.SessionStateResponse
}

type sessionService struct {
	session *session.Controller
}

func NewSessionService(s *session.Controller) ISessionService {
	return &sessionService{session: s}
}

func (s *sessionService) State(ctx context.Context) *dto.SessionStateResponse {
	return s.toResponse(s.session.State())
}

func (s *sessionService) Select(ctx context.Context, req *dto.SelectConversationRequest) *dto.SessionStateResponse {
	return s.toResponse(s.session.SelectConversation(ctx, req.ConversationId))
}

func (s *sessionService) Create(ctx context.Context, req *dto.CreateConversationRequest) *dto.SessionStateResponse {
	return s.toResponse(s.session.CreateConversation(ctx, req.Name, req.Summary))
}

func (s *sessionService) Delete(ctx context.Context, id int64) *dto.SessionStateResponse {
	return s.toResponse(s.session.DeleteConversation(ctx, id))
}

func (s *sessionService) UpdateNotes(ctx context.Context, req *dto.UpdateNotesRequest) *dto.SessionStateResponse {
	return s.toResponse(s.session.ScheduleNotesSave(req.Notes))
}

func (s *sessionService) Flush(ctx context.Context) *dto.SessionStateResponse {
	return s.toResponse(s.session.Flush(ctx))
}

func (s *sessionService) Hidden(ctx context.Context) *dto.SessionStateResponse {
	return s.toResponse(s.session.OnHidden(ctx))
}

func (s *sessionService) SendMessage(ctx context.Context, req *dto.SendMessageRequest) *dto.SessionStateResponse {
	return s.toResponse(s.session.SendMessage(ctx, req.Content, session.SendOptions{Thinking: req.Thinking}))
}

func (s *sessionService) UpdateSummary(ctx context.Context, req *dto.UpdateSummaryRequest) *dto.SessionStateResponse {
	return s.toResponse(s.session.UpdateSummary(ctx, req.Summary))
}

func (s *sessionService) GenerateSummary(ctx context.Context) *dto.SessionStateResponse {
	return s.toResponse(s.session.GenerateSummary(ctx))
}

func (s *sessionService) toResponse(state session.State) *dto.SessionStateResponse {
	res := &dto.SessionStateResponse{
		Loading:       state.Loading,
		Messages:      toMessageResponses(state.Messages),
		Notes:         state.Notes,
		Summary:       state.Summary,
		AutosaveState: state.Autosave.String(),
		Dirty:         state.Dirty,
		LastError:     state.LastError,
	}
	if state.Selected {
		id := state.ConversationID
		res.ConversationId = &id
	}
	if state.Conversation != nil {
		res.Conversation = toConversationResponse(*state.Conversation)
	}
	if state.Autosave == session.AutosavePending {
		if deadline := s.session.AutosaveDeadline(); !deadline.IsZero() {
			dueAt := deadline.UnixMilli()
			res.AutosaveDueAt = &dueAt
		}
	}
	return res
}
