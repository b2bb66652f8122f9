package session

import (
	"context"
	"fmt"

	"ai-topic-notes/internal/entity"
	"ai-topic-notes/pkg/events"
	"ai-topic-notes/pkg/llm"
)

const summaryPromptTemplate = `Create a comprehensive summary about the topic "%s".

Structure your summary with:
1. **Overview & Definition**
2. **Key Concepts & Components**
3. **Technical Details & Methods**
4. **Current Trends & Developments**
5. **Applications & Use Cases**
6. **Resources & Further Learning**

Provide detailed analysis and insights about this topic.`

func (c *Controller) current() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID, c.selected && !c.loading
}

func (c *Controller) fail(op string, err error) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = fmt.Sprintf("%s: %v", op, err)
	return c.snapshotLocked()
}

// SendMessage stores the user message, asks the model (when one is configured)
// with the conversation history and stores its reply. The message cache is
// invalidated after each append and the session messages are reloaded.
func (c *Controller) SendMessage(ctx context.Context, content string, opts SendOptions) State {
	id, ok := c.current()
	if !ok {
		return c.fail("send message", ErrNoConversation)
	}

	if err := c.appendMessage(ctx, id, entity.MessageRoleUser, content); err != nil {
		return c.fail("send message", err)
	}

	if c.llm != nil {
		history := c.cache.GetMessages(ctx, id)
		reply, err := c.llm.Chat(ctx, toLLMHistory(history),
			llm.WithTemperature(0.7),
			llm.WithMaxTokens(1000),
			llm.WithReasoningEffort(reasoningEffort(opts.Thinking)),
		)
		if err != nil {
			c.logger.Warn(logModule, "Language model request failed", map[string]interface{}{
				"conversation_id": id,
				"error":           err.Error(),
			})
			c.reloadMessages(ctx, id)
			return c.fail("ask model", err)
		}

		if err := c.appendMessage(ctx, id, entity.MessageRoleAssistant, llm.StripThinking(reply)); err != nil {
			c.reloadMessages(ctx, id)
			return c.fail("save reply", err)
		}
	}

	c.reloadMessages(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = ""
	return c.snapshotLocked()
}

func (c *Controller) appendMessage(ctx context.Context, id int64, role, content string) error {
	storeCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	messageID, err := c.store.SaveMessage(storeCtx, id, role, content)
	if err != nil {
		return err
	}
	c.cache.InvalidateMessageCache(id)

	c.publish(ctx, events.NewConversationEvent(events.MessageSaved, id, map[string]interface{}{
		"message_id": messageID,
		"role":       role,
	}))
	return nil
}

// reloadMessages replaces the session messages if id is still current and the
// load succeeded.
func (c *Controller) reloadMessages(ctx context.Context, id int64) {
	storeCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	res := c.cache.FetchMessages(storeCtx, id)
	if res.Err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected && c.currentID == id {
		c.messages = res.Messages
	}
}

// UpdateSummary stores a summary for the current conversation and writes it
// through to the cache.
func (c *Controller) UpdateSummary(ctx context.Context, summary string) State {
	c.mu.Lock()
	id, token, ok := c.currentID, c.selectToken, c.selected && !c.loading
	c.mu.Unlock()
	if !ok {
		return c.fail("update summary", ErrNoConversation)
	}
	return c.updateSummary(ctx, id, token, summary)
}

// updateSummary writes the summary of conversation id. The session fields
// change only if the selection made under token is still current.
func (c *Controller) updateSummary(ctx context.Context, id int64, token uint64, summary string) State {
	storeCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.UpdateSummary(storeCtx, id, summary); err != nil {
		c.logger.Warn(logModule, "Failed to update summary", map[string]interface{}{
			"conversation_id": id,
			"error":           err.Error(),
		})
		return c.fail("update summary", err)
	}

	c.writeThrough(id, func(conv *entity.Conversation) { conv.Summary = summary })
	c.publish(ctx, events.NewConversationEvent(events.SummaryUpdated, id, nil))

	c.mu.Lock()
	defer c.mu.Unlock()
	if token == c.selectToken && c.selected && c.currentID == id {
		c.summary = summary
		if c.conversation != nil {
			c.conversation.Summary = summary
		}
	}
	c.lastErr = ""
	return c.snapshotLocked()
}

// GenerateSummary asks the model for a structured summary of the current topic
// and stores it for the conversation that was current when it was asked.
func (c *Controller) GenerateSummary(ctx context.Context) State {
	if c.llm == nil {
		return c.fail("generate summary", ErrNoLLM)
	}

	c.mu.Lock()
	selected := c.selected && !c.loading && c.conversation != nil
	var (
		id    int64
		token uint64
		name  string
	)
	if selected {
		id, token, name = c.currentID, c.selectToken, c.conversation.Name
	}
	c.mu.Unlock()
	if !selected {
		return c.fail("generate summary", ErrNoConversation)
	}

	reply, err := c.llm.Generate(ctx, fmt.Sprintf(summaryPromptTemplate, name),
		llm.WithTemperature(0.4),
		llm.WithMaxTokens(1200),
		llm.WithReasoningEffort("none"),
	)
	if err != nil {
		c.logger.Warn(logModule, "Summary generation failed", map[string]interface{}{
			"topic": name,
			"error": err.Error(),
		})
		return c.fail("generate summary", err)
	}

	return c.updateSummary(ctx, id, token, llm.StripThinking(reply))
}

func toLLMHistory(messages []entity.Message) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleUser
		if m.Role == entity.MessageRoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}
	return history
}

func reasoningEffort(thinking bool) string {
	if thinking {
		return "default"
	}
	return "none"
}
