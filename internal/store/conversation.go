package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushp314/devconnect-sync/internal/gateway"
	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/pkg/errors"
	"github.com/pushp314/devconnect-sync/pkg/logger"
)

// ConversationStore holds the conversation list, per-conversation
// message sequences, the global unread counter, and pending message
// requests. Same optimistic/rollback discipline as RelationshipStore.
type ConversationStore struct {
	mu       sync.Mutex
	viewerID string
	gw       gateway.Gateway
	log      zerolog.Logger

	now   func() time.Time
	newID func() string

	conversations []models.Conversation
	messages      map[string][]models.Message
	requests      []models.MessageRequest
	unread        int
	activeID      string

	loading bool
	err     error
}

func NewConversationStore(viewerID string, gw gateway.Gateway) *ConversationStore {
	return &ConversationStore{
		viewerID: viewerID,
		gw:       gw,
		log:      logger.With("conversation-store"),
		now:      time.Now,
		newID:    models.NewLocalID,
		messages: make(map[string][]models.Message),
	}
}

// conversationSnapshot captures the sections a sendMessage optimistic
// step may touch: one message sequence and the conversation list (for
// the lastMessageAt bump).
type conversationSnapshot struct {
	conversationID string
	messages       []models.Message
	conversations  []models.Conversation
}

func (c *ConversationStore) capture(conversationID string) conversationSnapshot {
	return conversationSnapshot{
		conversationID: conversationID,
		messages:       cloneMessages(c.messages[conversationID]),
		conversations:  cloneConversations(c.conversations),
	}
}

func (c *ConversationStore) restore(snap conversationSnapshot) {
	c.messages[snap.conversationID] = snap.messages
	c.conversations = snap.conversations
}

// SendMessage appends a fully formed optimistic message with a temp id,
// bumps the conversation's lastMessageAt, then dispatches the gateway
// call. Success removes the temp entry and appends the canonical one;
// failure restores the pre-optimistic snapshot including lastMessageAt.
func (c *ConversationStore) SendMessage(ctx context.Context, conversationID, content string, msgType models.MessageType, reaction models.ReactionType) error {
	if strings.TrimSpace(content) == "" {
		err := errors.Validation("message content is empty")
		c.setErr(err)
		return err
	}
	if (msgType == models.MessageReaction) != (reaction != models.ReactionNone) {
		err := errors.Validation("reaction type must be set exactly for reaction messages")
		c.setErr(err)
		return err
	}

	tempID := c.newID()
	c.mu.Lock()
	snap := c.capture(conversationID)
	optimistic := models.Message{
		ID:             tempID,
		ConversationID: conversationID,
		SenderID:       c.viewerID,
		Content:        content,
		Type:           msgType,
		ReactionType:   reaction,
		CreatedAt:      c.now(),
	}
	c.messages[conversationID] = append(c.messages[conversationID], optimistic)
	c.bumpLastMessageAt(conversationID, optimistic.CreatedAt)
	c.err = nil
	c.mu.Unlock()

	canonical, err := c.gw.SendMessage(ctx, conversationID, content, msgType, reaction)
	if err != nil {
		c.mu.Lock()
		c.restore(snap)
		c.err = err
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("conversation", conversationID).Msg("Send failed, optimistic message rolled back")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Remove by temp id, then append the canonical copy unless the feed
	// already delivered it. Append rather than in-place swap preserves
	// arrival order.
	c.messages[conversationID] = removeMessage(c.messages[conversationID], tempID)
	if !hasMessage(c.messages[conversationID], canonical.ID) {
		c.messages[conversationID] = append(c.messages[conversationID], canonical)
	}
	c.bumpLastMessageAt(conversationID, canonical.CreatedAt)
	return nil
}

// FetchMessages loads one history page. Offset zero replaces the stored
// sequence (initial or refresh load); a non-zero offset appends the
// older page.
func (c *ConversationStore) FetchMessages(ctx context.Context, conversationID string, limit, offset int) error {
	page, err := c.gw.FetchMessages(ctx, conversationID, limit, offset)
	if err != nil {
		c.setErr(err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if offset == 0 {
		c.messages[conversationID] = page
	} else {
		c.messages[conversationID] = append(c.messages[conversationID], page...)
	}
	c.err = nil
	return nil
}

// CreateConversation returns the conversation with counterpartID,
// creating it remotely when none exists. The pair is canonically
// ordered server-side, so both parties resolve to the same row.
func (c *ConversationStore) CreateConversation(ctx context.Context, counterpartID string) (models.Conversation, error) {
	if counterpartID == c.viewerID {
		err := errors.Validation("cannot start a conversation with yourself")
		c.setErr(err)
		return models.Conversation{}, err
	}

	conv, err := c.gw.CreateConversation(ctx, counterpartID)
	if err != nil {
		c.setErr(err)
		return models.Conversation{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !hasConversation(c.conversations, conv.ID) {
		c.conversations = append(c.conversations, conv)
	}
	c.err = nil
	return conv, nil
}

// MarkAsRead flips readAt on every unread counterpart message in the
// conversation, persists through the gateway, then recomputes the
// global unread counter from authoritative state rather than
// decrementing locally.
func (c *ConversationStore) MarkAsRead(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	snap := c.capture(conversationID)
	readAt := c.now()
	seq := c.messages[conversationID]
	for i := range seq {
		if seq[i].SenderID != c.viewerID && seq[i].ReadAt == nil {
			t := readAt
			seq[i].ReadAt = &t
		}
	}
	c.err = nil
	c.mu.Unlock()

	if err := c.gw.MarkConversationRead(ctx, conversationID); err != nil {
		c.mu.Lock()
		c.restore(snap)
		c.err = err
		c.mu.Unlock()
		return err
	}

	unread, err := c.gw.FetchUnreadCount(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("Unread recount failed, keeping previous counter")
		return nil
	}
	c.mu.Lock()
	c.unread = unread
	c.mu.Unlock()
	return nil
}

// CreateConversationWithHost resolves an event's host, creates or
// reuses the conversation with them, and files a message request for
// it. All three steps must succeed before any store state changes, so
// the composite fails as a unit.
func (c *ConversationStore) CreateConversationWithHost(ctx context.Context, eventID string) (models.Conversation, models.MessageRequest, error) {
	host, err := c.gw.FetchEventHost(ctx, eventID)
	if err != nil {
		c.setErr(err)
		return models.Conversation{}, models.MessageRequest{}, err
	}

	conv, err := c.gw.CreateConversation(ctx, host.ID)
	if err != nil {
		c.setErr(err)
		return models.Conversation{}, models.MessageRequest{}, err
	}

	req, err := c.gw.CreateMessageRequest(ctx, conv.ID)
	if err != nil {
		c.setErr(err)
		return models.Conversation{}, models.MessageRequest{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !hasConversation(c.conversations, conv.ID) {
		c.conversations = append(c.conversations, conv)
	}
	c.requests = upsertRequest(c.requests, req)
	c.err = nil
	return conv, req, nil
}

// AcceptMessageRequest optimistically marks the request accepted.
func (c *ConversationStore) AcceptMessageRequest(ctx context.Context, requestID string) error {
	return c.resolveMessageRequest(ctx, requestID, models.MessageRequestAccepted, c.gw.AcceptMessageRequest)
}

// DeclineMessageRequest optimistically marks the request declined.
func (c *ConversationStore) DeclineMessageRequest(ctx context.Context, requestID string) error {
	return c.resolveMessageRequest(ctx, requestID, models.MessageRequestDeclined, c.gw.DeclineMessageRequest)
}

func (c *ConversationStore) resolveMessageRequest(ctx context.Context, requestID string, status models.MessageRequestStatus, call func(context.Context, string) error) error {
	c.mu.Lock()
	idx := -1
	for i := range c.requests {
		if c.requests[i].ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		err := errors.Validation("unknown message request " + requestID)
		c.setErr(err)
		return err
	}
	prev := cloneRequests(c.requests)
	c.requests[idx].Status = status
	c.err = nil
	c.mu.Unlock()

	if err := call(ctx, requestID); err != nil {
		c.mu.Lock()
		c.requests = prev
		c.err = err
		c.mu.Unlock()
		return err
	}
	return nil
}

// RefreshUnread re-fetches the authoritative unread counter. Used as a
// periodic backstop for missed push events.
func (c *ConversationStore) RefreshUnread(ctx context.Context) error {
	unread, err := c.gw.FetchUnreadCount(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.unread = unread
	c.mu.Unlock()
	return nil
}

// SetActive records the conversation currently open in the UI. Feed
// inserts for the active conversation trigger mark-as-read instead of
// bumping the unread counter.
func (c *ConversationStore) SetActive(conversationID string) {
	c.mu.Lock()
	c.activeID = conversationID
	c.mu.Unlock()
}

// Load performs the initial bulk fetch of conversations and the unread
// counter, with the same degraded-timeout discipline as the
// relationship store.
func (c *ConversationStore) Load(ctx context.Context) {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	conversations, convErr := c.gw.FetchConversations(ctx)
	unread, unreadErr := c.gw.FetchUnreadCount(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if convErr == nil {
		c.conversations = conversations
	}
	if unreadErr == nil {
		c.unread = unread
	}
	c.loading = false
	if ctx.Err() != nil {
		c.err = nil
		c.log.Warn().Msg("Initial conversation load timed out, continuing with partial data")
		return
	}
	if convErr != nil {
		c.err = convErr
		return
	}
	if unreadErr != nil {
		c.err = unreadErr
		return
	}
	c.err = nil
}

// Reset clears the store entirely, reallocating every collection.
func (c *ConversationStore) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations = nil
	c.messages = make(map[string][]models.Message)
	c.requests = nil
	c.unread = 0
	c.activeID = ""
	c.loading = false
	c.err = nil
}

func (c *ConversationStore) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// bumpLastMessageAt must be called with the lock held. It only moves
// the timestamp forward.
func (c *ConversationStore) bumpLastMessageAt(conversationID string, at time.Time) {
	for i := range c.conversations {
		if c.conversations[i].ID == conversationID {
			if c.conversations[i].LastMessageAt == nil || c.conversations[i].LastMessageAt.Before(at) {
				t := at
				c.conversations[i].LastMessageAt = &t
			}
			return
		}
	}
}

// Read-only accessors.

func (c *ConversationStore) Conversations() []models.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneConversations(c.conversations)
}

func (c *ConversationStore) Messages(conversationID string) []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneMessages(c.messages[conversationID])
}

func (c *ConversationStore) Requests() []models.MessageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRequests(c.requests)
}

func (c *ConversationStore) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

func (c *ConversationStore) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

func (c *ConversationStore) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *ConversationStore) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Slice helpers.

func hasConversation(conversations []models.Conversation, id string) bool {
	for _, conv := range conversations {
		if conv.ID == id {
			return true
		}
	}
	return false
}

func hasMessage(messages []models.Message, id string) bool {
	for _, m := range messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func removeMessage(messages []models.Message, id string) []models.Message {
	out := messages[:0:0]
	for _, m := range messages {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func upsertRequest(requests []models.MessageRequest, req models.MessageRequest) []models.MessageRequest {
	for i := range requests {
		if requests[i].ID == req.ID {
			requests[i] = req
			return requests
		}
	}
	return append(requests, req)
}
