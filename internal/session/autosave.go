package session

import (
	"context"
	"fmt"
	"time"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/pkg/events"
)

type takenNotes struct {
	conversationID int64
	text           string
	ok             bool
}

// takePendingNotesLocked detaches a dirty buffer from the session so it can be
// persisted for its own conversation while the session moves on.
func (c *Controller) takePendingNotesLocked() takenNotes {
	if !c.dirty {
		return takenNotes{}
	}
	taken := takenNotes{conversationID: c.notesOwner, text: c.notes, ok: true}
	c.dirty = false
	c.cancelTimerLocked()
	c.autosave = AutosaveIdle
	return taken
}

// persistTakenNotes is best-effort: the user is already navigating away.
func (c *Controller) persistTakenNotes(ctx context.Context, taken takenNotes) {
	if !taken.ok {
		return
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if err := c.writeNotes(ctx, taken.conversationID, taken.text); err != nil {
		c.logger.Warn(logModule, "Failed to save notes of previous conversation", map[string]interface{}{
			"conversation_id": taken.conversationID,
			"error":           err.Error(),
		})
	}
}

func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	c.deadline = time.Time{}
}

// ScheduleNotesSave replaces the notes buffer right away and (re)arms the
// debounce timer. Only the buffer present when the timer fires is persisted.
// Without a current conversation the buffer is kept but nothing is scheduled.
func (c *Controller) ScheduleNotesSave(text string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.notes = text
	if !c.selected {
		return c.snapshotLocked()
	}

	c.editSeq++
	c.dirty = true
	c.notesOwner = c.currentID
	if c.closed {
		return c.snapshotLocked()
	}

	c.cancelTimerLocked()
	gen := c.timerGen
	c.deadline = time.Now().Add(c.debounce)
	c.autosave = AutosavePending
	c.timer = time.AfterFunc(c.debounce, func() { c.onDebounceElapsed(gen) })
	return c.snapshotLocked()
}

// AutosaveDeadline returns when the pending save fires, or the zero time when
// nothing is pending.
func (c *Controller) AutosaveDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

func (c *Controller) onDebounceElapsed(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	if err := c.saveBuffer(context.Background()); err != nil {
		c.logger.Warn(logModule, "Autosave failed, notes stay dirty", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// saveBuffer persists the current buffer. Saves are serialized and each one
// takes the newest buffer, so an older buffer never lands after a newer one.
func (c *Controller) saveBuffer(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if !c.dirty {
		if c.autosave == AutosavePending {
			c.cancelTimerLocked()
			c.autosave = AutosaveIdle
		}
		c.mu.Unlock()
		return nil
	}
	id, text, seq := c.notesOwner, c.notes, c.editSeq
	c.cancelTimerLocked()
	c.autosave = AutosaveSaving
	c.mu.Unlock()

	err := c.writeNotes(ctx, id, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autosave == AutosaveSaving {
		c.autosave = AutosaveIdle
	}
	if err == nil && c.editSeq == seq && c.notesOwner == id {
		c.dirty = false
	}
	return err
}

// writeNotes stores the notes, then writes them through to the cache. Callers hold saveMu.
func (c *Controller) writeNotes(ctx context.Context, id int64, text string) error {
	storeCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.UpdateNotes(storeCtx, id, text); err != nil {
		return err
	}

	c.writeThrough(id, func(conv *entity.Conversation) { conv.Notes = text })

	c.publish(ctx, events.NewConversationEvent(events.NotesSaved, id, map[string]interface{}{
		"length": len(text),
	}))
	return nil
}

// writeThrough patches conversation id in the session copy and in the cache
// without reading the store. The cached entry is patched when present, else the
// session copy seeds it; with neither, the next read-through fetches the row.
func (c *Controller) writeThrough(id int64, patch func(*entity.Conversation)) {
	var own *entity.Conversation
	c.mu.Lock()
	if c.conversation != nil && c.conversation.Id == id {
		patch(c.conversation)
		conv := *c.conversation
		own = &conv
	}
	c.mu.Unlock()

	if !c.cache.PatchConversation(id, patch) && own != nil {
		c.cache.UpdateConversationCache(*own)
	}
}

// Flush persists a dirty buffer now and waits for any save in flight.
func (c *Controller) Flush(ctx context.Context) State {
	err := c.saveBuffer(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn(logModule, "Flush failed, notes stay dirty", map[string]interface{}{
			"conversation_id": c.notesOwner,
			"error":           err.Error(),
		})
		c.lastErr = fmt.Sprintf("save notes: %v", err)
	}
	return c.snapshotLocked()
}

// OnHidden flushes when the shell window is hidden.
func (c *Controller) OnHidden(ctx context.Context) State {
	return c.Flush(ctx)
}

// Close flushes and stops arming timers. Later edits are buffered only.
func (c *Controller) Close(ctx context.Context) State {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.Flush(ctx)
}
