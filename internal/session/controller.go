// Package session decides which conversation is current, keeps its messages,
// notes and summary, and debounces note autosaves against the store.
//
// Operations never return errors. A failed create or select resets the session
// to the empty state; every failure reason is reported in State.LastError.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-topic-notes/internal/cache"
	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/pkg/logger"
	"ai-topic-notes/internal/store"
	"ai-topic-notes/pkg/events"
	"ai-topic-notes/pkg/llm"

	"golang.org/x/sync/errgroup"
)

const logModule = "SessionController"

var (
	ErrNoConversation       = errors.New("no conversation selected")
	ErrConversationNotFound = errors.New("conversation not found or store unavailable")
	ErrNoLLM                = errors.New("no language model configured")
)

type Controller struct {
	cache        *cache.Layer
	store        store.Store
	logger       logger.ILogger
	llm          llm.LLMProvider
	events       EventPublisher
	debounce     time.Duration
	storeTimeout time.Duration

	mu           sync.Mutex
	selected     bool
	currentID    int64
	loading      bool
	conversation *entity.Conversation
	messages     []entity.Message
	summary      string
	lastErr      string

	// selectToken increases on every switch; a load applies only under its own token.
	selectToken uint64
	closed      bool

	notes      string
	notesOwner int64
	dirty      bool
	editSeq    uint64
	autosave   AutosaveState
	deadline   time.Time
	timer      *time.Timer
	timerGen   uint64
	saveMu     sync.Mutex
}

func NewController(c *cache.Layer, s store.Store, log logger.ILogger, opts ...Option) *Controller {
	ctrl := &Controller{
		cache:        c,
		store:        s,
		logger:       log,
		debounce:     DefaultDebounce,
		storeTimeout: DefaultStoreTimeout,
		messages:     []entity.Message{},
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	st := State{
		ConversationID: c.currentID,
		Selected:       c.selected,
		Loading:        c.loading,
		Messages:       make([]entity.Message, len(c.messages)),
		Notes:          c.notes,
		Summary:        c.summary,
		Autosave:       c.autosave,
		Dirty:          c.dirty,
		LastError:      c.lastErr,
	}
	copy(st.Messages, c.messages)
	if c.conversation != nil {
		conv := *c.conversation
		st.Conversation = &conv
	}
	return st
}

// resetLocked clears every per-conversation field. The caller decides whether
// a pending notes buffer has already been taken.
func (c *Controller) resetLocked() {
	c.selected = false
	c.currentID = 0
	c.loading = false
	c.conversation = nil
	c.messages = []entity.Message{}
	c.summary = ""
	c.notes = ""
	c.notesOwner = 0
	c.dirty = false
	c.cancelTimerLocked()
	c.autosave = AutosaveIdle
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.storeTimeout)
}

// SelectConversation makes id current. Reselecting the current conversation is
// a no-op. Pending notes of the previous conversation are saved first, then the
// conversation and its messages load concurrently and are applied together.
// A newer selection supersedes this one; a failed load resets the session.
func (c *Controller) SelectConversation(ctx context.Context, id int64) State {
	c.mu.Lock()
	if c.selected && c.currentID == id {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st
	}
	c.selectToken++
	token := c.selectToken
	pending := c.takePendingNotesLocked()
	startSeq := c.editSeq

	c.selected = true
	c.currentID = id
	c.loading = true
	c.conversation = nil
	c.messages = []entity.Message{}
	c.summary = ""
	c.notes = ""
	c.notesOwner = id
	c.lastErr = ""
	c.mu.Unlock()

	c.persistTakenNotes(ctx, pending)

	loadCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	var (
		conv     *entity.Conversation
		messages []entity.Message
	)
	g, gctx := errgroup.WithContext(loadCtx)
	g.Go(func() error {
		conv = c.cache.GetConversation(gctx, id)
		if conv == nil {
			return ErrConversationNotFound
		}
		return nil
	})
	g.Go(func() error {
		res := c.cache.FetchMessages(gctx, id)
		messages = res.Messages
		return res.Err
	})
	err := g.Wait()

	c.mu.Lock()
	if token != c.selectToken {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st
	}
	if err != nil {
		c.logger.Warn(logModule, "Failed to load conversation, resetting session", map[string]interface{}{
			"conversation_id": id,
			"error":           err.Error(),
		})
		// Edits typed while loading still belong to id.
		typed := c.takePendingNotesLocked()
		c.resetLocked()
		c.lastErr = fmt.Sprintf("select conversation %d: %v", id, err)
		st := c.snapshotLocked()
		c.mu.Unlock()

		c.persistTakenNotes(ctx, typed)
		return st
	}
	defer c.mu.Unlock()

	c.loading = false
	c.conversation = conv
	c.messages = messages
	c.summary = conv.Summary
	// Edits typed while loading win over the stored notes.
	if c.editSeq != startSeq {
		conv.Notes = c.notes
	} else {
		c.notes = conv.Notes
	}
	return c.snapshotLocked()
}

// CreateConversation persists a new conversation and makes it current with an
// empty message list and notes buffer. The new record is written through to the
// cache and the list entry is dropped so the next list read includes it.
func (c *Controller) CreateConversation(ctx context.Context, name, summary string) State {
	c.mu.Lock()
	c.selectToken++
	token := c.selectToken
	pending := c.takePendingNotesLocked()
	c.mu.Unlock()

	c.persistTakenNotes(ctx, pending)

	storeCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	id, err := c.store.CreateConversation(storeCtx, name, summary)
	if err != nil {
		c.logger.Warn(logModule, "Failed to create conversation", map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})
		c.mu.Lock()
		defer c.mu.Unlock()
		if token == c.selectToken {
			c.resetLocked()
		}
		c.lastErr = fmt.Sprintf("create conversation: %v", err)
		return c.snapshotLocked()
	}

	conv, err := c.store.GetConversation(storeCtx, id)
	if err != nil || conv == nil {
		conv = &entity.Conversation{Id: id, Name: name, Summary: summary, CreatedAt: time.Now()}
	}
	c.cache.UpdateConversationCache(*conv)
	c.cache.InvalidateConversationList()

	c.publish(ctx, events.NewConversationEvent(events.ConversationCreated, id, map[string]interface{}{
		"name": name,
	}))

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.selectToken {
		return c.snapshotLocked()
	}
	created := *conv
	c.selected = true
	c.currentID = id
	c.loading = false
	c.conversation = &created
	c.messages = []entity.Message{}
	c.summary = created.Summary
	c.notes = ""
	c.notesOwner = id
	c.dirty = false
	c.lastErr = ""
	return c.snapshotLocked()
}

// DeleteConversation deletes a conversation with its messages and mind map.
// Deleting the current conversation discards its unsaved notes and resets the
// session.
func (c *Controller) DeleteConversation(ctx context.Context, id int64) State {
	storeCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.DeleteConversation(storeCtx, id); err != nil {
		c.logger.Warn(logModule, "Failed to delete conversation", map[string]interface{}{
			"conversation_id": id,
			"error":           err.Error(),
		})
		c.mu.Lock()
		defer c.mu.Unlock()
		c.lastErr = fmt.Sprintf("delete conversation %d: %v", id, err)
		return c.snapshotLocked()
	}

	c.cache.InvalidateConversationCache()
	c.cache.InvalidateMessageCache(id)
	c.publish(ctx, events.NewConversationEvent(events.ConversationDeleted, id, nil))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected && c.currentID == id {
		c.selectToken++
		c.resetLocked()
	} else if c.dirty && c.notesOwner == id {
		c.dirty = false
		c.cancelTimerLocked()
		c.autosave = AutosaveIdle
	}
	c.lastErr = ""
	return c.snapshotLocked()
}

func (c *Controller) publish(ctx context.Context, evt events.BaseEvent) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(ctx, evt); err != nil {
		c.logger.Warn(logModule, "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}
