package store

import (
	"context"

	"github.com/pushp314/devconnect-sync/internal/feed"
)

// ApplyEvent merges one message or message-request feed event into the
// store. Dedup is by canonical id only: a message this client just sent
// optimistically is matched by its temp id on the call path, not here,
// and a second feed delivery of the same canonical id is a no-op.
func (c *ConversationStore) ApplyEvent(ctx context.Context, ev feed.Event) {
	switch ev.Kind {
	case feed.MessageInserted:
		if ev.Message == nil {
			c.log.Warn().Msg("Dropping message insert without entity")
			return
		}
		m := *ev.Message

		c.mu.Lock()
		seq := c.messages[m.ConversationID]
		if hasMessage(seq, m.ID) {
			c.mu.Unlock()
			return
		}
		c.messages[m.ConversationID] = append(seq, m)
		c.bumpLastMessageAt(m.ConversationID, m.CreatedAt)
		fromCounterpart := m.SenderID != c.viewerID
		active := c.activeID == m.ConversationID
		if fromCounterpart && !active {
			c.unread++
		}
		c.mu.Unlock()

		if fromCounterpart && active {
			if err := c.MarkAsRead(ctx, m.ConversationID); err != nil {
				c.log.Debug().Err(err).Str("conversation", m.ConversationID).Msg("Auto mark-as-read failed")
			}
		}

	case feed.MessageUpdated:
		if ev.Message == nil {
			c.log.Warn().Msg("Dropping message update without entity")
			return
		}
		m := *ev.Message
		c.mu.Lock()
		seq := c.messages[m.ConversationID]
		for i := range seq {
			if seq[i].ID == m.ID {
				seq[i] = m
				break
			}
		}
		c.mu.Unlock()

	case feed.MessageDeleted:
		if ev.Message == nil {
			c.log.Warn().Msg("Dropping message delete without entity")
			return
		}
		m := *ev.Message
		c.mu.Lock()
		c.messages[m.ConversationID] = removeMessage(c.messages[m.ConversationID], m.ID)
		c.mu.Unlock()

	case feed.MessageRequestInserted, feed.MessageRequestUpdated:
		if ev.Request == nil {
			c.log.Warn().Msg("Dropping message request event without entity")
			return
		}
		c.mu.Lock()
		c.requests = upsertRequest(c.requests, *ev.Request)
		c.mu.Unlock()

	default:
		c.log.Warn().Str("kind", string(ev.Kind)).Msg("Dropping unexpected event kind for conversation store")
	}
}
