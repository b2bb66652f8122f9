package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/internal/pkg/logger"
	"ai-topic-notes/internal/store"
	"ai-topic-notes/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errUnavailable = &store.Error{Op: "test", Kind: store.ErrStoreUnavailable, Err: errors.New("connection refused")}

func setup(t *testing.T) (*Layer, *storetest.Recorder, *fakeClock) {
	t.Helper()
	rec := storetest.NewRecorder()
	clock := newFakeClock()
	layer := NewLayer(rec, logger.NewNopLogger(), WithClock(clock.Now))
	return layer, rec, clock
}

func seedConversation(t *testing.T, rec *storetest.Recorder, name string) int64 {
	t.Helper()
	id, err := rec.MemoryStore.CreateConversation(context.Background(), name, "")
	require.NoError(t, err)
	return id
}

func TestGetConversationList_CachedWithinTTL(t *testing.T) {
	ctx := context.Background()
	layer, rec, clock := setup(t)
	seedConversation(t, rec, "Quantum Computing")

	first := layer.GetConversationList(ctx)
	clock.Advance(4 * time.Minute)
	second := layer.GetConversationList(ctx)
	third := layer.GetConversationList(ctx)

	assert.Equal(t, 1, rec.Calls(storetest.OpListConversations))
	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestGetConversationList_RefetchesAfterTTL(t *testing.T) {
	ctx := context.Background()
	layer, rec, clock := setup(t)
	seedConversation(t, rec, "Quantum Computing")

	layer.GetConversationList(ctx)
	clock.Advance(5*time.Minute + time.Second)
	layer.GetConversationList(ctx)

	assert.Equal(t, 2, rec.Calls(storetest.OpListConversations))
}

func TestGetConversationList_ExactlyAtTTLIsStale(t *testing.T) {
	ctx := context.Background()
	layer, rec, clock := setup(t)

	layer.GetConversationList(ctx)
	clock.Advance(DefaultConversationListTTL)
	layer.GetConversationList(ctx)

	assert.Equal(t, 2, rec.Calls(storetest.OpListConversations))
}

func TestGetConversationList_CustomTTL(t *testing.T) {
	ctx := context.Background()
	rec := storetest.NewRecorder()
	clock := newFakeClock()
	layer := NewLayer(rec, logger.NewNopLogger(), WithClock(clock.Now), WithConversationListTTL(time.Second))

	layer.GetConversationList(ctx)
	clock.Advance(2 * time.Second)
	layer.GetConversationList(ctx)

	assert.Equal(t, 2, rec.Calls(storetest.OpListConversations))
}

func TestGetConversationList_SeedsConversationEntries(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Quantum Computing")

	layer.GetConversationList(ctx)
	conv := layer.GetConversation(ctx, id)

	require.NotNil(t, conv)
	assert.Equal(t, "Quantum Computing", conv.Name)
	assert.Equal(t, 0, rec.Calls(storetest.OpGetConversation))
}

func TestGetConversationList_StaleFallbackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	layer, rec, clock := setup(t)
	seedConversation(t, rec, "Quantum Computing")

	first := layer.GetConversationList(ctx)
	require.Len(t, first, 1)

	rec.FailOn(storetest.OpListConversations, errUnavailable)
	clock.Advance(10 * time.Minute)

	stale := layer.GetConversationList(ctx)
	assert.Equal(t, first, stale)
	assert.Equal(t, 2, rec.Calls(storetest.OpListConversations))
}

func TestGetConversationList_EmptyOnFailureWithoutCache(t *testing.T) {
	layer, rec, _ := setup(t)
	rec.FailOn(storetest.OpListConversations, errUnavailable)

	list := layer.GetConversationList(context.Background())

	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGetConversationList_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	seedConversation(t, rec, "Quantum Computing")

	list := layer.GetConversationList(ctx)
	list[0].Name = "mutated"

	assert.Equal(t, "Quantum Computing", layer.GetConversationList(ctx)[0].Name)
}

func TestGetConversation_ReadThrough(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Rust Lifetimes")

	first := layer.GetConversation(ctx, id)
	second := layer.GetConversation(ctx, id)

	require.NotNil(t, first)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, rec.Calls(storetest.OpGetConversation))
}

func TestGetConversation_MissingIsNotCached(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)

	assert.Nil(t, layer.GetConversation(ctx, 404))
	assert.Nil(t, layer.GetConversation(ctx, 404))
	assert.Equal(t, 2, rec.Calls(storetest.OpGetConversation))
}

func TestGetConversation_StoreErrorIsNil(t *testing.T) {
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")
	rec.FailOn(storetest.OpGetConversation, errUnavailable)

	assert.Nil(t, layer.GetConversation(context.Background(), id))
}

func TestUpdateConversationCache_ThenGet(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")
	layer.GetConversation(ctx, id)

	updated := entity.Conversation{Id: id, Name: "Topic", Notes: "# fresh notes"}
	layer.UpdateConversationCache(updated)

	got := layer.GetConversation(ctx, id)
	require.NotNil(t, got)
	assert.Equal(t, updated, *got)
	assert.Equal(t, 1, rec.Calls(storetest.OpGetConversation))
}

func TestUpdateConversationCache_ReplacesListItemInPlace(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	older := seedConversation(t, rec, "older")
	newer := seedConversation(t, rec, "newer")
	layer.GetConversationList(ctx)

	layer.UpdateConversationCache(entity.Conversation{Id: older, Name: "older", Summary: "sum"})

	list := layer.GetConversationList(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].Id)
	assert.Equal(t, "sum", list[1].Summary)
	assert.Equal(t, 1, rec.Calls(storetest.OpListConversations))
}

func TestUpdateConversationCache_PrependsUnknownItem(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	seedConversation(t, rec, "existing")
	layer.GetConversationList(ctx)

	layer.UpdateConversationCache(entity.Conversation{Id: 99, Name: "brand new"})

	list := layer.GetConversationList(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, int64(99), list[0].Id)
}

func TestUpdateConversationCache_DoesNotPopulateList(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)

	layer.UpdateConversationCache(entity.Conversation{Id: 1, Name: "only cached"})
	list := layer.GetConversationList(ctx)

	assert.Empty(t, list)
	assert.Equal(t, 1, rec.Calls(storetest.OpListConversations))
}

func TestPatchConversation_OnlyTouchesCachedEntries(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")

	assert.False(t, layer.PatchConversation(id, func(c *entity.Conversation) { c.Notes = "x" }))
	assert.Equal(t, 0, rec.Calls(storetest.OpGetConversation))

	layer.GetConversationList(ctx)
	require.True(t, layer.PatchConversation(id, func(c *entity.Conversation) { c.Notes = "x" }))

	rec.ResetCalls()
	conv := layer.GetConversation(ctx, id)
	require.NotNil(t, conv)
	assert.Equal(t, "x", conv.Notes)
	assert.Equal(t, "x", layer.GetConversationList(ctx)[0].Notes)
	assert.Equal(t, 0, rec.Calls(storetest.OpGetConversation))
	assert.Equal(t, 0, rec.Calls(storetest.OpListConversations))
}

func TestInvalidateConversationCache_ClearsListAndEntries(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")
	layer.GetConversationList(ctx)

	layer.InvalidateConversationCache()
	layer.GetConversation(ctx, id)
	layer.GetConversationList(ctx)

	assert.Equal(t, 1, rec.Calls(storetest.OpGetConversation))
	assert.Equal(t, 2, rec.Calls(storetest.OpListConversations))
}

func TestInvalidateConversationList_KeepsEntries(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")
	layer.GetConversationList(ctx)

	layer.InvalidateConversationList()
	layer.GetConversation(ctx, id)
	layer.GetConversationList(ctx)

	assert.Equal(t, 0, rec.Calls(storetest.OpGetConversation))
	assert.Equal(t, 2, rec.Calls(storetest.OpListConversations))
}

func TestGetMessages_ReadThroughAndCached(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")
	_, err := rec.MemoryStore.SaveMessage(ctx, id, entity.MessageRoleUser, "hello")
	require.NoError(t, err)

	first := layer.GetMessages(ctx, id)
	second := layer.GetMessages(ctx, id)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, rec.Calls(storetest.OpListMessages))
}

func TestGetMessages_StoreFailureIsEmpty(t *testing.T) {
	layer, rec, _ := setup(t)
	rec.FailOn(storetest.OpListMessages, errUnavailable)

	messages := layer.GetMessages(context.Background(), 7)

	assert.NotNil(t, messages)
	assert.Empty(t, messages)
	assert.False(t, layer.HasMessages(7))
}

func TestFetchMessages_DistinguishesFailureFromEmpty(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Empty topic")

	empty := layer.FetchMessages(ctx, id)
	assert.NoError(t, empty.Err)
	assert.Empty(t, empty.Messages)
	assert.False(t, empty.Cached)

	cached := layer.FetchMessages(ctx, id)
	assert.True(t, cached.Cached)

	rec.FailOn(storetest.OpListMessages, errUnavailable)
	failed := layer.FetchMessages(ctx, 7)
	assert.ErrorIs(t, failed.Err, store.ErrStoreUnavailable)
	assert.Empty(t, failed.Messages)
}

func TestInvalidateMessageCache_NextGetHitsStoreOnce(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")
	layer.GetMessages(ctx, id)
	rec.ResetCalls()

	layer.InvalidateMessageCache(id)
	layer.GetMessages(ctx, id)
	layer.GetMessages(ctx, id)

	assert.Equal(t, 1, rec.Calls(storetest.OpListMessages))
}

func TestInvalidateMessageCache_NeverPopulated(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)

	layer.InvalidateMessageCache(3)
	layer.GetMessages(ctx, 3)

	assert.Equal(t, 1, rec.Calls(storetest.OpListMessages))
}

func TestInvalidateMessageCache_AllConversations(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	a := seedConversation(t, rec, "a")
	b := seedConversation(t, rec, "b")
	layer.GetMessages(ctx, a)
	layer.GetMessages(ctx, b)

	layer.InvalidateMessageCache()

	assert.False(t, layer.HasMessages(a))
	assert.False(t, layer.HasMessages(b))
}

func TestAddMessageToCache_NoOpWhenNeverFetched(t *testing.T) {
	layer, _, _ := setup(t)

	layer.AddMessageToCache(5, entity.Message{Id: 1, ConversationId: 5, Role: entity.MessageRoleUser, Content: "hi", Seq: 1})

	assert.False(t, layer.HasMessages(5))
}

func TestAddMessageToCache_AppendsToPopulatedList(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	id := seedConversation(t, rec, "Topic")
	_, _ = rec.MemoryStore.SaveMessage(ctx, id, entity.MessageRoleUser, "first")
	layer.GetMessages(ctx, id)

	added := entity.Message{Id: 2, ConversationId: id, Role: entity.MessageRoleAssistant, Content: "second", Seq: 2}
	layer.AddMessageToCache(id, added)

	messages := layer.GetMessages(ctx, id)
	require.Len(t, messages, 2)
	assert.Equal(t, added, messages[1])
	assert.Equal(t, 1, rec.Calls(storetest.OpListMessages))
}

func TestInvalidationDuringFetchIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	layer, rec, _ := setup(t)
	seedConversation(t, rec, "doomed")

	release := rec.BlockOn(storetest.OpListConversations)
	done := make(chan []entity.Conversation)
	go func() { done <- layer.GetConversationList(ctx) }()

	require.Eventually(t, func() bool {
		return rec.Calls(storetest.OpListConversations) == 1
	}, time.Second, time.Millisecond)

	layer.InvalidateConversationCache()
	release()
	<-done

	layer.GetConversationList(ctx)
	assert.Equal(t, 2, rec.Calls(storetest.OpListConversations))
}
