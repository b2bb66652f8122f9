// Package storetest provides a Store double that records calls and injects failures.
package storetest

import (
	"context"
	"sync"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/store"
)

// Operation names accepted by Calls, FailOn and BlockOn.
const (
	OpCreateConversation    = "CreateConversation"
	OpListConversations     = "ListConversations"
	OpListConversationsPage = "ListConversationsPage"
	OpCountConversations    = "CountConversations"
	OpGetConversation       = "GetConversation"
	OpUpdateNotes           = "UpdateNotes"
	OpUpdateSummary         = "UpdateSummary"
	OpDeleteConversation    = "DeleteConversation"
	OpSaveMessage           = "SaveMessage"
	OpListMessages          = "ListMessages"
	OpGetMindMap            = "GetMindMap"
	OpSaveMindMap           = "SaveMindMap"
)

// Recorder wraps a MemoryStore. Every call is counted before any injected
// failure or block is applied.
type Recorder struct {
	*store.MemoryStore

	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	gates    map[string]chan struct{}
	notes    []string
}

var _ store.Store = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{
		MemoryStore: store.NewMemoryStore(),
		calls:       make(map[string]int),
		failures:    make(map[string]error),
		gates:       make(map[string]chan struct{}),
	}
}

// FailOn makes op return err until ClearFailure is called.
func (r *Recorder) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

func (r *Recorder) ClearFailure(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, op)
}

// BlockOn holds every call of op until the returned release func runs or the
// call's context is done.
func (r *Recorder) BlockOn(op string) (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.gates[op] = gate
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.gates[op] == gate {
				delete(r.gates, op)
			}
			r.mu.Unlock()
			close(gate)
		})
	}
}

func (r *Recorder) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *Recorder) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make(map[string]int)
	r.notes = nil
}

// NotesWrites returns the notes text of every UpdateNotes call, in call order.
func (r *Recorder) NotesWrites() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notes))
	copy(out, r.notes)
	return out
}

func (r *Recorder) enter(ctx context.Context, op string) error {
	r.mu.Lock()
	r.calls[op]++
	gate := r.gates[op]
	err := r.failures[op]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &store.Error{Op: op, Kind: store.ErrStoreUnavailable, Err: ctx.Err()}
		}
	}
	return err
}

func (r *Recorder) CreateConversation(ctx context.Context, name, summary string) (int64, error) {
	if err := r.enter(ctx, OpCreateConversation); err != nil {
		return 0, err
	}
	return r.MemoryStore.CreateConversation(ctx, name, summary)
}

func (r *Recorder) ListConversations(ctx context.Context) ([]entity.Conversation, error) {
	if err := r.enter(ctx, OpListConversations); err != nil {
		return nil, err
	}
	return r.MemoryStore.ListConversations(ctx)
}

func (r *Recorder) ListConversationsPage(ctx context.Context, limit, offset int) ([]entity.Conversation, error) {
	if err := r.enter(ctx, OpListConversationsPage); err != nil {
		return nil, err
	}
	return r.MemoryStore.ListConversationsPage(ctx, limit, offset)
}

func (r *Recorder) CountConversations(ctx context.Context) (int64, error) {
	if err := r.enter(ctx, OpCountConversations); err != nil {
		return 0, err
	}
	return r.MemoryStore.CountConversations(ctx)
}

func (r *Recorder) GetConversation(ctx context.Context, id int64) (*entity.Conversation, error) {
	if err := r.enter(ctx, OpGetConversation); err != nil {
		return nil, err
	}
	return r.MemoryStore.GetConversation(ctx, id)
}

func (r *Recorder) UpdateNotes(ctx context.Context, id int64, notes string) error {
	r.mu.Lock()
	r.notes = append(r.notes, notes)
	r.mu.Unlock()

	if err := r.enter(ctx, OpUpdateNotes); err != nil {
		return err
	}
	return r.MemoryStore.UpdateNotes(ctx, id, notes)
}

func (r *Recorder) UpdateSummary(ctx context.Context, id int64, summary string) error {
	if err := r.enter(ctx, OpUpdateSummary); err != nil {
		return err
	}
	return r.MemoryStore.UpdateSummary(ctx, id, summary)
}

func (r *Recorder) DeleteConversation(ctx context.Context, id int64) error {
	if err := r.enter(ctx, OpDeleteConversation); err != nil {
		return err
	}
	return r.MemoryStore.DeleteConversation(ctx, id)
}

func (r *Recorder) SaveMessage(ctx context.Context, conversationID int64, role, content string) (int64, error) {
	if err := r.enter(ctx, OpSaveMessage); err != nil {
		return 0, err
	}
	return r.MemoryStore.SaveMessage(ctx, conversationID, role, content)
}

func (r *Recorder) ListMessages(ctx context.Context, conversationID int64) ([]entity.Message, error) {
	if err := r.enter(ctx, OpListMessages); err != nil {
		return nil, err
	}
	return r.MemoryStore.ListMessages(ctx, conversationID)
}

func (r *Recorder) GetMindMap(ctx context.Context, conversationID int64) (*entity.MindMap, error) {
	if err := r.enter(ctx, OpGetMindMap); err != nil {
		return nil, err
	}
	return r.MemoryStore.GetMindMap(ctx, conversationID)
}

func (r *Recorder) SaveMindMap(ctx context.Context, mindMap entity.MindMap) (int64, error) {
	if err := r.enter(ctx, OpSaveMindMap); err != nil {
		return 0, err
	}
	return r.MemoryStore.SaveMindMap(ctx, mindMap)
}
