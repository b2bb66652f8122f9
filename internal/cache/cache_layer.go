// Package cache is the read-through / write-through cache that sits between the
// session controller (and HTTP readers) and the store.
//
// The conversation list expires after a TTL. Single conversations and message
// lists never expire: they stay valid until a caller invalidates or overwrites
// them. No operation returns an error; store failures degrade to the best
// cached value or an empty result and are logged.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/pkg/logger"
	"ai-topic-notes/internal/store"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultConversationListTTL = 5 * time.Minute

	logModule = "CacheLayer"
)

type Option func(*Layer)

func WithConversationListTTL(ttl time.Duration) Option {
	return func(l *Layer) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Layer) {
		if now != nil {
			l.now = now
		}
	}
}

// MessagesResult separates "the store failed" from "the conversation has no messages".
type MessagesResult struct {
	Messages []entity.Message
	Err      error
	// Cached reports whether the messages came from the cache without a store call.
	Cached bool
}

type listEntry struct {
	data       []entity.Conversation
	capturedAt time.Time
	populated  bool
}

// Layer owns every cached copy. Store I/O never happens while mu is held.
//
// Each fetch remembers the generation it started under and only writes its
// result back if no invalidation or write-through happened in the meantime, so
// a slow read cannot resurrect data that was invalidated while it was in flight.
type Layer struct {
	store  store.Store
	logger logger.ILogger
	ttl    time.Duration
	now    func() time.Time

	mu            sync.Mutex
	list          listEntry
	listGen       uint64
	convGen       uint64
	conversations *gocache.Cache
	messages      *gocache.Cache
	msgEpoch      uint64
	msgGen        map[int64]uint64
}

func NewLayer(s store.Store, log logger.ILogger, opts ...Option) *Layer {
	l := &Layer{
		store:         s,
		logger:        log,
		ttl:           DefaultConversationListTTL,
		now:           time.Now,
		conversations: gocache.New(gocache.NoExpiration, 0),
		messages:      gocache.New(gocache.NoExpiration, 0),
		msgGen:        make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetConversationList returns the cached list while it is younger than the TTL,
// otherwise refreshes it from the store and seeds the per-id entries.
func (l *Layer) GetConversationList(ctx context.Context) []entity.Conversation {
	l.mu.Lock()
	if l.list.populated && l.now().Sub(l.list.capturedAt) < l.ttl {
		out := cloneConversations(l.list.data)
		l.mu.Unlock()
		return out
	}
	listGen, convGen := l.listGen, l.convGen
	l.mu.Unlock()

	fetched, err := l.store.ListConversations(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.logger.Warn(logModule, "Failed to refresh conversation list", map[string]interface{}{
			"error":      err.Error(),
			"has_stale":  l.list.populated,
			"stale_size": len(l.list.data),
		})
		if l.list.populated {
			return cloneConversations(l.list.data)
		}
		return []entity.Conversation{}
	}

	if listGen == l.listGen {
		l.list = listEntry{
			data:       cloneConversations(fetched),
			capturedAt: l.now(),
			populated:  true,
		}
	}
	if convGen == l.convGen {
		for _, c := range fetched {
			l.conversations.Set(key(c.Id), c, gocache.NoExpiration)
		}
	}
	return cloneConversations(fetched)
}

// GetConversation returns the cached conversation or reads it through. A store
// error or a missing conversation yields nil.
func (l *Layer) GetConversation(ctx context.Context, id int64) *entity.Conversation {
	l.mu.Lock()
	if cached, found := l.conversations.Get(key(id)); found {
		c := cached.(entity.Conversation)
		l.mu.Unlock()
		return &c
	}
	convGen := l.convGen
	l.mu.Unlock()

	fetched, err := l.store.GetConversation(ctx, id)
	if err != nil {
		l.logger.Warn(logModule, "Failed to load conversation", map[string]interface{}{
			"conversation_id": id,
			"error":           err.Error(),
		})
		return nil
	}
	if fetched == nil {
		return nil
	}

	c := *fetched
	l.mu.Lock()
	if convGen == l.convGen {
		l.conversations.Set(key(id), c, gocache.NoExpiration)
	}
	l.mu.Unlock()
	return &c
}

// GetMessages returns the conversation's messages in seq order. An empty result
// may mean the store failed; use FetchMessages to tell the two apart.
func (l *Layer) GetMessages(ctx context.Context, conversationID int64) []entity.Message {
	return l.FetchMessages(ctx, conversationID).Messages
}

// FetchMessages is GetMessages with the store error reported. Messages is never nil.
func (l *Layer) FetchMessages(ctx context.Context, conversationID int64) MessagesResult {
	l.mu.Lock()
	if cached, found := l.messages.Get(key(conversationID)); found {
		out := cloneMessages(cached.([]entity.Message))
		l.mu.Unlock()
		return MessagesResult{Messages: out, Cached: true}
	}
	epoch, gen := l.msgEpoch, l.msgGen[conversationID]
	l.mu.Unlock()

	fetched, err := l.store.ListMessages(ctx, conversationID)
	if err != nil {
		l.logger.Warn(logModule, "Failed to load messages", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return MessagesResult{Messages: []entity.Message{}, Err: err}
	}

	l.mu.Lock()
	if epoch == l.msgEpoch && gen == l.msgGen[conversationID] {
		l.messages.Set(key(conversationID), cloneMessages(fetched), gocache.NoExpiration)
	}
	l.mu.Unlock()
	return MessagesResult{Messages: cloneMessages(fetched)}
}

// InvalidateConversationCache drops the list and every per-id conversation entry.
func (l *Layer) InvalidateConversationCache() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.list = listEntry{}
	l.listGen++
	l.convGen++
	l.conversations.Flush()
}

// InvalidateConversationList drops only the list, keeping per-id entries.
func (l *Layer) InvalidateConversationList() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.list = listEntry{}
	l.listGen++
}

// InvalidateMessageCache drops the message lists of the given conversations,
// or of every conversation when no id is given.
func (l *Layer) InvalidateMessageCache(conversationIDs ...int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(conversationIDs) == 0 {
		l.msgEpoch++
		l.messages.Flush()
		return
	}
	for _, id := range conversationIDs {
		l.msgGen[id]++
		l.messages.Delete(key(id))
	}
}

// UpdateConversationCache writes c through to the per-id entry and, when the
// list is populated, replaces the matching item in place or prepends c. The
// list capture time is left untouched.
func (l *Layer) UpdateConversationCache(c entity.Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updateLocked(c)
}

// PatchConversation applies patch to the cached conversation and writes the
// result through like UpdateConversationCache. It never reads the store and
// reports false when the conversation is not cached.
func (l *Layer) PatchConversation(id int64, patch func(*entity.Conversation)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cached, found := l.conversations.Get(key(id))
	if !found {
		return false
	}
	c := cached.(entity.Conversation)
	patch(&c)
	l.updateLocked(c)
	return true
}

func (l *Layer) updateLocked(c entity.Conversation) {
	l.listGen++
	l.convGen++
	l.conversations.Set(key(c.Id), c, gocache.NoExpiration)

	if !l.list.populated {
		return
	}
	for i := range l.list.data {
		if l.list.data[i].Id == c.Id {
			l.list.data[i] = c
			return
		}
	}
	l.list.data = append([]entity.Conversation{c}, l.list.data...)
}

// AddMessageToCache appends m to an already populated message list. It never
// creates an entry, since a one-message list would wrongly look complete.
func (l *Layer) AddMessageToCache(conversationID int64, m entity.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cached, found := l.messages.Get(key(conversationID))
	if !found {
		return
	}
	l.msgGen[conversationID]++
	existing := cached.([]entity.Message)
	updated := make([]entity.Message, len(existing), len(existing)+1)
	copy(updated, existing)
	l.messages.Set(key(conversationID), append(updated, m), gocache.NoExpiration)
}

// HasMessages reports whether the conversation's messages are cached.
func (l *Layer) HasMessages(conversationID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, found := l.messages.Get(key(conversationID))
	return found
}

func cloneConversations(in []entity.Conversation) []entity.Conversation {
	out := make([]entity.Conversation, len(in))
	copy(out, in)
	return out
}

func cloneMessages(in []entity.Message) []entity.Message {
	out := make([]entity.Message, len(in))
	copy(out, in)
	return out
}
