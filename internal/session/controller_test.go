package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-topic-notes/internal/cache"
	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/pkg/logger"
	"ai-topic-notes/internal/store"
	"ai-topic-notes/internal/store/storetest"
	"ai-topic-notes/pkg/events"
	"ai-topic-notes/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = &store.Error{Op: "test", Kind: store.ErrStoreUnavailable, Err: errors.New("connection refused")}

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	history [][]llm.Message
	prompts []string
}

func (f *fakeLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, history)
	return f.reply, f.err
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

// gatedLLM holds Generate until release is closed.
type gatedLLM struct {
	fakeLLM
	started chan struct{}
	release chan struct{}
}

func newGatedLLM(reply string) *gatedLLM {
	return &gatedLLM{
		fakeLLM: fakeLLM{reply: reply},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	g.started <- struct{}{}
	<-g.release
	return g.fakeLLM.Generate(ctx, prompt, opts...)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, evt.EventType())
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.types))
	copy(out, p.types)
	return out
}

type fixture struct {
	ctrl  *Controller
	layer *cache.Layer
	rec   *storetest.Recorder
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	rec := storetest.NewRecorder()
	layer := cache.NewLayer(rec, logger.NewNopLogger())
	ctrl := NewController(layer, rec, logger.NewNopLogger(), opts...)
	t.Cleanup(func() { ctrl.Close(context.Background()) })
	return fixture{ctrl: ctrl, layer: layer, rec: rec}
}

func (f fixture) seed(t *testing.T, name, notes string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.rec.MemoryStore.CreateConversation(ctx, name, "")
	require.NoError(t, err)
	if notes != "" {
		require.NoError(t, f.rec.MemoryStore.UpdateNotes(ctx, id, notes))
	}
	return id
}

func TestSelectConversation_LoadsConversationAndMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seed(t, "Quantum Computing", "# qubits")
	_, err := f.rec.MemoryStore.SaveMessage(ctx, id, entity.MessageRoleUser, "what is a qubit?")
	require.NoError(t, err)

	st := f.ctrl.SelectConversation(ctx, id)

	assert.True(t, st.Selected)
	assert.False(t, st.Loading)
	assert.Equal(t, id, st.ConversationID)
	require.NotNil(t, st.Conversation)
	assert.Equal(t, "Quantum Computing", st.Conversation.Name)
	assert.Equal(t, "# qubits", st.Notes)
	require.Len(t, st.Messages, 1)
	assert.Empty(t, st.LastError)
}

func TestSelectConversation_ReselectIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seed(t, "Topic", "")

	f.ctrl.SelectConversation(ctx, id)
	f.ctrl.SelectConversation(ctx, id)

	assert.Equal(t, 1, f.rec.Calls(storetest.OpGetConversation))
	assert.Equal(t, 1, f.rec.Calls(storetest.OpListMessages))
}

func TestSelectConversation_MessageLoadFailureResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seed(t, "Topic", "")
	f.rec.FailOn(storetest.OpListMessages, errUnavailable)

	st := f.ctrl.SelectConversation(ctx, id)

	assert.False(t, st.Selected)
	assert.Zero(t, st.ConversationID)
	assert.Nil(t, st.Conversation)
	assert.Empty(t, st.Messages)
	assert.Contains(t, st.LastError, "store unavailable")
}

func TestSelectConversation_MissingConversationResets(t *testing.T) {
	f := newFixture(t)

	st := f.ctrl.SelectConversation(context.Background(), 404)

	assert.False(t, st.Selected)
	assert.NotEmpty(t, st.LastError)
}

func TestSelectConversation_HungStoreTimesOut(t *testing.T) {
	f := newFixture(t, WithStoreTimeout(30*time.Millisecond))
	id := f.seed(t, "Topic", "")
	release := f.rec.BlockOn(storetest.OpGetConversation)
	defer release()

	start := time.Now()
	st := f.ctrl.SelectConversation(context.Background(), id)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, st.Selected)
	assert.NotEmpty(t, st.LastError)
}

func TestSelectConversation_StaleLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := f.seed(t, "B", "notes of B")
	f.layer.GetConversationList(ctx)
	f.layer.GetMessages(ctx, b)
	a := f.seed(t, "A", "notes of A")

	release := f.rec.BlockOn(storetest.OpGetConversation)
	done := make(chan State)
	go func() { done <- f.ctrl.SelectConversation(ctx, a) }()

	require.Eventually(t, func() bool {
		return f.rec.Calls(storetest.OpGetConversation) == 1
	}, time.Second, time.Millisecond)

	stB := f.ctrl.SelectConversation(ctx, b)
	require.Equal(t, b, stB.ConversationID)

	release()
	<-done

	st := f.ctrl.State()
	assert.Equal(t, b, st.ConversationID)
	assert.Equal(t, "notes of B", st.Notes)
	require.NotNil(t, st.Conversation)
	assert.Equal(t, "B", st.Conversation.Name)
}

func TestSelectConversation_SavesPreviousNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	a := f.seed(t, "A", "")
	b := f.seed(t, "B", "notes of B")

	f.ctrl.SelectConversation(ctx, a)
	f.ctrl.ScheduleNotesSave("draft for A")
	st := f.ctrl.SelectConversation(ctx, b)

	assert.Equal(t, "notes of B", st.Notes)
	assert.False(t, st.Dirty)

	conv, err := f.rec.MemoryStore.GetConversation(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "draft for A", conv.Notes)
}

func TestCreateConversation_SeedsCacheWithoutStoreRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.Empty(t, f.layer.GetConversationList(ctx))

	st := f.ctrl.CreateConversation(ctx, "Quantum Computing", "")
	require.Equal(t, int64(1), st.ConversationID)
	assert.True(t, st.Selected)
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.Notes)

	f.rec.ResetCalls()
	conv := f.layer.GetConversation(ctx, 1)
	require.NotNil(t, conv)
	assert.Equal(t, "Quantum Computing", conv.Name)
	assert.Equal(t, 0, f.rec.Calls(storetest.OpGetConversation))

	list := f.layer.GetConversationList(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, 1, f.rec.Calls(storetest.OpListConversations))
}

func TestCreateConversation_FailureResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seed(t, "Existing", "")
	f.ctrl.SelectConversation(ctx, id)
	f.rec.FailOn(storetest.OpCreateConversation, errUnavailable)

	st := f.ctrl.CreateConversation(ctx, "New", "")

	assert.False(t, st.Selected)
	assert.Contains(t, st.LastError, "create conversation")
}

func TestScheduleNotesSave_DebouncesToLastEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(40*time.Millisecond))
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)

	f.ctrl.ScheduleNotesSave("a")
	f.ctrl.ScheduleNotesSave("ab")
	st := f.ctrl.ScheduleNotesSave("abc")

	assert.Equal(t, "abc", st.Notes)
	assert.True(t, st.Dirty)
	assert.Equal(t, AutosavePending, st.Autosave)
	assert.False(t, f.ctrl.AutosaveDeadline().IsZero())

	require.Eventually(t, func() bool {
		return !f.ctrl.State().Dirty
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"abc"}, f.rec.NotesWrites())
	assert.Equal(t, AutosaveIdle, f.ctrl.State().Autosave)

	f.rec.ResetCalls()
	conv := f.layer.GetConversation(ctx, id)
	require.NotNil(t, conv)
	assert.Equal(t, "abc", conv.Notes)
	assert.Equal(t, 0, f.rec.Calls(storetest.OpGetConversation))
}

func TestScheduleNotesSave_WithoutConversationOnlyBuffers(t *testing.T) {
	f := newFixture(t, WithDebounce(time.Millisecond))

	st := f.ctrl.ScheduleNotesSave("orphan")

	assert.Equal(t, "orphan", st.Notes)
	assert.False(t, st.Dirty)
	assert.Equal(t, AutosaveIdle, st.Autosave)
}

func TestFlush_PersistsImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)
	f.ctrl.ScheduleNotesSave("draft")

	st := f.ctrl.OnHidden(ctx)

	assert.False(t, st.Dirty)
	assert.Equal(t, AutosaveIdle, st.Autosave)
	assert.True(t, f.ctrl.AutosaveDeadline().IsZero())
	assert.Equal(t, []string{"draft"}, f.rec.NotesWrites())
}

func TestFlush_CleanBufferDoesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)

	f.ctrl.Flush(ctx)

	assert.Equal(t, 0, f.rec.Calls(storetest.OpUpdateNotes))
}

func TestSaveFailureLeavesBufferDirty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)
	f.ctrl.ScheduleNotesSave("draft")
	f.rec.FailOn(storetest.OpUpdateNotes, errUnavailable)

	st := f.ctrl.Flush(ctx)
	assert.True(t, st.Dirty)
	assert.Equal(t, AutosaveIdle, st.Autosave)
	assert.NotEmpty(t, st.LastError)

	f.rec.ClearFailure(storetest.OpUpdateNotes)
	st = f.ctrl.Flush(ctx)
	assert.False(t, st.Dirty)

	conv, _ := f.rec.MemoryStore.GetConversation(ctx, id)
	assert.Equal(t, "draft", conv.Notes)
}

func TestClose_FlushesAndStopsScheduling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)
	f.ctrl.ScheduleNotesSave("final")

	st := f.ctrl.Close(ctx)
	assert.False(t, st.Dirty)

	st = f.ctrl.ScheduleNotesSave("after close")
	assert.True(t, st.Dirty)
	assert.Equal(t, AutosaveIdle, st.Autosave)
	assert.Equal(t, []string{"final"}, f.rec.NotesWrites())
}

func TestDeleteConversation_CurrentResetsAndDropsNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)
	f.ctrl.ScheduleNotesSave("unsaved")

	st := f.ctrl.DeleteConversation(ctx, id)

	assert.False(t, st.Selected)
	assert.False(t, st.Dirty)
	assert.Empty(t, st.LastError)
	assert.Nil(t, f.layer.GetConversation(ctx, id))
	assert.Empty(t, f.rec.NotesWrites())
}

func TestDeleteConversation_MissingReportsError(t *testing.T) {
	f := newFixture(t)

	st := f.ctrl.DeleteConversation(context.Background(), 99)

	assert.Contains(t, st.LastError, "constraint violation")
}

func TestSendMessage_StoresBothTurns(t *testing.T) {
	ctx := context.Background()
	model := &fakeLLM{reply: "<think>plan</think>\nSuperposition."}
	publisher := &recordingPublisher{}
	f := newFixture(t, WithLLM(model), WithEventPublisher(publisher))
	id := f.seed(t, "Quantum Computing", "")
	f.ctrl.SelectConversation(ctx, id)

	st := f.ctrl.SendMessage(ctx, "Explain qubits", SendOptions{})

	require.Len(t, st.Messages, 2)
	assert.Equal(t, entity.MessageRoleUser, st.Messages[0].Role)
	assert.Equal(t, entity.MessageRoleAssistant, st.Messages[1].Role)
	assert.Equal(t, "Superposition.", st.Messages[1].Content)
	assert.Empty(t, st.LastError)

	require.Len(t, model.history, 1)
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "Explain qubits"}}, model.history[0])
	assert.Equal(t, []string{events.MessageSaved, events.MessageSaved}, publisher.Types())
}

func TestSendMessage_ModelFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithLLM(&fakeLLM{err: errors.New("rate limited")}))
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)

	st := f.ctrl.SendMessage(ctx, "hello", SendOptions{Thinking: true})

	require.Len(t, st.Messages, 1)
	assert.Contains(t, st.LastError, "rate limited")
}

func TestSendMessage_RequiresConversation(t *testing.T) {
	f := newFixture(t)

	st := f.ctrl.SendMessage(context.Background(), "hello", SendOptions{})

	assert.Contains(t, st.LastError, ErrNoConversation.Error())
	assert.Equal(t, 0, f.rec.Calls(storetest.OpSaveMessage))
}

func TestGenerateSummary_WritesThrough(t *testing.T) {
	ctx := context.Background()
	model := &fakeLLM{reply: "<think>x</think>## Overview"}
	f := newFixture(t, WithLLM(model))
	id := f.seed(t, "Rust Lifetimes", "")
	f.ctrl.SelectConversation(ctx, id)

	st := f.ctrl.GenerateSummary(ctx)

	assert.Equal(t, "## Overview", st.Summary)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], `"Rust Lifetimes"`)

	f.rec.ResetCalls()
	conv := f.layer.GetConversation(ctx, id)
	require.NotNil(t, conv)
	assert.Equal(t, "## Overview", conv.Summary)
	assert.Equal(t, 0, f.rec.Calls(storetest.OpGetConversation))
}

func TestGenerateSummary_WithoutModel(t *testing.T) {
	f := newFixture(t)

	st := f.ctrl.GenerateSummary(context.Background())

	assert.Contains(t, st.LastError, ErrNoLLM.Error())
}

func TestEventsArePublished(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	f := newFixture(t, WithEventPublisher(publisher))

	st := f.ctrl.CreateConversation(ctx, "Topic", "")
	f.ctrl.ScheduleNotesSave("n")
	f.ctrl.Flush(ctx)
	f.ctrl.UpdateSummary(ctx, "s")
	f.ctrl.DeleteConversation(ctx, st.ConversationID)

	assert.Equal(t, []string{
		events.ConversationCreated,
		events.NotesSaved,
		events.SummaryUpdated,
		events.ConversationDeleted,
	}, publisher.Types())
}

func TestGenerateSummary_SwitchDuringModelCallKeepsSummaryOnItsTopic(t *testing.T) {
	ctx := context.Background()
	model := newGatedLLM("Summary of A")
	f := newFixture(t, WithLLM(model))
	a := f.seed(t, "A", "")
	b := f.seed(t, "B", "")
	f.ctrl.SelectConversation(ctx, a)

	done := make(chan State)
	go func() { done <- f.ctrl.GenerateSummary(ctx) }()
	<-model.started

	f.ctrl.SelectConversation(ctx, b)
	close(model.release)
	st := <-done

	assert.Equal(t, b, st.ConversationID)
	assert.Empty(t, st.Summary)

	convA, err := f.rec.MemoryStore.GetConversation(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "Summary of A", convA.Summary)
	convB, err := f.rec.MemoryStore.GetConversation(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, convB.Summary)

	cachedB := f.layer.GetConversation(ctx, b)
	require.NotNil(t, cachedB)
	assert.Empty(t, cachedB.Summary)
}

func TestSelectConversation_NotesTypedWhileLoadingWin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	id := f.seed(t, "Topic", "old")

	release := f.rec.BlockOn(storetest.OpListMessages)
	done := make(chan State)
	go func() { done <- f.ctrl.SelectConversation(ctx, id) }()
	require.Eventually(t, func() bool {
		return f.rec.Calls(storetest.OpListMessages) == 1
	}, time.Second, time.Millisecond)

	f.ctrl.ScheduleNotesSave("typed while loading")
	release()
	st := <-done

	assert.True(t, st.Selected)
	assert.Equal(t, "typed while loading", st.Notes)
	assert.True(t, st.Dirty)
	require.NotNil(t, st.Conversation)
	assert.Equal(t, "typed while loading", st.Conversation.Notes)

	f.ctrl.Flush(ctx)
	conv, err := f.rec.MemoryStore.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "typed while loading", conv.Notes)
}

func TestSelectConversation_FailedLoadPersistsNotesTypedWhileLoading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	id := f.seed(t, "Topic", "old")

	f.rec.FailOn(storetest.OpListMessages, errUnavailable)
	release := f.rec.BlockOn(storetest.OpListMessages)
	done := make(chan State)
	go func() { done <- f.ctrl.SelectConversation(ctx, id) }()
	require.Eventually(t, func() bool {
		return f.rec.Calls(storetest.OpListMessages) == 1
	}, time.Second, time.Millisecond)

	f.ctrl.ScheduleNotesSave("typed while loading")
	release()
	st := <-done

	assert.False(t, st.Selected)
	assert.False(t, st.Dirty)
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, []string{"typed while loading"}, f.rec.NotesWrites())

	conv, err := f.rec.MemoryStore.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "typed while loading", conv.Notes)
}

func TestFlush_WriteThroughDoesNotReadStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDebounce(time.Hour))
	id := f.seed(t, "Topic", "")
	f.ctrl.SelectConversation(ctx, id)
	f.layer.InvalidateConversationCache()
	f.rec.ResetCalls()

	f.ctrl.ScheduleNotesSave("fresh")
	f.ctrl.Flush(ctx)
	f.ctrl.UpdateSummary(ctx, "brief")

	assert.Equal(t, 0, f.rec.Calls(storetest.OpGetConversation))
	conv := f.layer.GetConversation(ctx, id)
	require.NotNil(t, conv)
	assert.Equal(t, "fresh", conv.Notes)
	assert.Equal(t, "brief", conv.Summary)
	assert.Equal(t, 0, f.rec.Calls(storetest.OpGetConversation))
}
