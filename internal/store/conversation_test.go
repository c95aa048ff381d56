package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pushp314/devconnect-sync/internal/feed"
	"github.com/pushp314/devconnect-sync/internal/gateway"
	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/pkg/errors"
)

func newConversationFixture() (*ConversationStore, *gateway.Fake, models.Conversation) {
	fake := gateway.NewFake()
	conv := fake.SeedConversation(viewer, "bob")
	c := NewConversationStore(viewer, fake)
	c.Load(context.Background())
	return c, fake, conv
}

func messageInsert(conversationID, senderID, id string) feed.Event {
	return feed.Event{
		Kind: feed.MessageInserted,
		Message: &models.Message{
			ID:             id,
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        "hello",
			Type:           models.MessageText,
			CreatedAt:      time.Now(),
		},
	}
}

func TestSendMessageTempIDReplacement(t *testing.T) {
	c, _, conv := newConversationFixture()

	err := c.SendMessage(context.Background(), conv.ID, "hey bob", models.MessageText, models.ReactionNone)

	assert.NoError(t, err)
	seq := c.Messages(conv.ID)
	assert.Len(t, seq, 1)
	assert.False(t, models.IsLocalID(seq[0].ID))
	assert.Equal(t, "hey bob", seq[0].Content)
}

func TestSendMessageRollsBackOnGatewayError(t *testing.T) {
	c, fake, conv := newConversationFixture()
	fake.FailWith("SendMessage", errors.Gateway("network down", nil))

	err := c.SendMessage(context.Background(), conv.ID, "hey bob", models.MessageText, models.ReactionNone)

	assert.Error(t, err)
	assert.Empty(t, c.Messages(conv.ID))
	// The lastMessageAt bump is rolled back too, not just the message.
	for _, cv := range c.Conversations() {
		if cv.ID == conv.ID {
			assert.Nil(t, cv.LastMessageAt)
		}
	}
	assert.Error(t, c.Err())
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	c, fake, conv := newConversationFixture()
	before := len(fake.Calls)

	err := c.SendMessage(context.Background(), conv.ID, "   ", models.MessageText, models.ReactionNone)

	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Empty(t, c.Messages(conv.ID))
	assert.Len(t, fake.Calls, before)
}

func TestSendMessageValidatesReactionPairing(t *testing.T) {
	c, _, conv := newConversationFixture()

	err := c.SendMessage(context.Background(), conv.ID, "x", models.MessageReaction, models.ReactionNone)
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	err = c.SendMessage(context.Background(), conv.ID, "x", models.MessageText, models.ReactionThumbsUp)
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	err = c.SendMessage(context.Background(), conv.ID, "x", models.MessageReaction, models.ReactionThumbsUp)
	assert.NoError(t, err)
}

func TestSendMessageSurvivesFeedRace(t *testing.T) {
	c, _, conv := newConversationFixture()

	// The feed delivers the canonical copy while the gateway call is in
	// flight; the canonical append must not duplicate it. The fake
	// cannot interleave mid-call, so replay the feed copy right after:
	// apply-then-feed and feed-then-apply must converge.
	err := c.SendMessage(context.Background(), conv.ID, "hey", models.MessageText, models.ReactionNone)
	assert.NoError(t, err)
	seq := c.Messages(conv.ID)
	assert.Len(t, seq, 1)

	c.ApplyEvent(context.Background(), feed.Event{Kind: feed.MessageInserted, Message: &seq[0]})

	assert.Len(t, c.Messages(conv.ID), 1)
}

func TestFetchMessagesReplacesAtOffsetZero(t *testing.T) {
	c, fake, conv := newConversationFixture()
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m-old"))

	fake.SetMessages(conv.ID, []models.Message{
		{ID: "m1", ConversationID: conv.ID, SenderID: "bob", Content: "fresh", Type: models.MessageText},
	})
	err := c.FetchMessages(context.Background(), conv.ID, 50, 0)

	assert.NoError(t, err)
	seq := c.Messages(conv.ID)
	assert.Len(t, seq, 1)
	assert.Equal(t, "m1", seq[0].ID)
}

func TestFetchMessagesAppendsOlderPages(t *testing.T) {
	c, fake, conv := newConversationFixture()

	fake.SetMessages(conv.ID, []models.Message{{ID: "m2", ConversationID: conv.ID, Type: models.MessageText}})
	assert.NoError(t, c.FetchMessages(context.Background(), conv.ID, 1, 0))

	fake.SetMessages(conv.ID, []models.Message{{ID: "m1", ConversationID: conv.ID, Type: models.MessageText}})
	assert.NoError(t, c.FetchMessages(context.Background(), conv.ID, 1, 1))

	seq := c.Messages(conv.ID)
	assert.Len(t, seq, 2)
	assert.Equal(t, "m2", seq[0].ID)
	assert.Equal(t, "m1", seq[1].ID)
}

func TestCreateConversationResolvesSameRowForBothDirections(t *testing.T) {
	fake := gateway.NewFake()
	conv := fake.SeedConversation("alice", "bob")

	aliceStore := NewConversationStore("alice", fake)
	bobStore := NewConversationStore("bob", fake)

	got1, err1 := aliceStore.CreateConversation(context.Background(), "bob")
	got2, err2 := bobStore.CreateConversation(context.Background(), "alice")

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, conv.ID, got1.ID)
	assert.Equal(t, got1.ID, got2.ID)
	assert.Len(t, aliceStore.Conversations(), 1)

	// Creating it again does not duplicate the list entry.
	_, err := aliceStore.CreateConversation(context.Background(), "bob")
	assert.NoError(t, err)
	assert.Len(t, aliceStore.Conversations(), 1)
}

func TestCreateConversationRejectsSelf(t *testing.T) {
	c, fake, _ := newConversationFixture()
	before := len(fake.Calls)

	_, err := c.CreateConversation(context.Background(), viewer)

	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Len(t, fake.Calls, before)
}

func TestMarkAsReadFlipsAndRecounts(t *testing.T) {
	c, fake, conv := newConversationFixture()
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m1"))
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, viewer, "m2"))
	assert.Equal(t, 1, c.Unread())

	fake.Unread = 0
	err := c.MarkAsRead(context.Background(), conv.ID)

	assert.NoError(t, err)
	seq := c.Messages(conv.ID)
	assert.NotNil(t, seq[0].ReadAt)
	// The viewer's own message is untouched.
	assert.Nil(t, seq[1].ReadAt)
	// The counter comes from the authoritative re-fetch, not a local
	// decrement.
	assert.Equal(t, 0, c.Unread())
}

func TestMarkAsReadRollsBackOnGatewayError(t *testing.T) {
	c, fake, conv := newConversationFixture()
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m1"))
	fake.FailWith("MarkConversationRead", errors.Gateway("nope", nil))

	err := c.MarkAsRead(context.Background(), conv.ID)

	assert.Error(t, err)
	assert.Nil(t, c.Messages(conv.ID)[0].ReadAt)
}

func TestFeedInsertDedupsByCanonicalID(t *testing.T) {
	c, _, conv := newConversationFixture()
	ev := messageInsert(conv.ID, "bob", "m1")

	c.ApplyEvent(context.Background(), ev)
	c.ApplyEvent(context.Background(), ev)

	assert.Len(t, c.Messages(conv.ID), 1)
	assert.Equal(t, 1, c.Unread())
}

func TestFeedUpdateReplacesMessageInPlace(t *testing.T) {
	c, _, conv := newConversationFixture()
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m1"))

	updated := messageInsert(conv.ID, "bob", "m1")
	updated.Kind = feed.MessageUpdated
	updated.Message.Content = "edited"

	c.ApplyEvent(context.Background(), updated)
	c.ApplyEvent(context.Background(), updated)

	seq := c.Messages(conv.ID)
	assert.Len(t, seq, 1)
	assert.Equal(t, "edited", seq[0].Content)
	// An update never touches the unread counter.
	assert.Equal(t, 1, c.Unread())
}

func TestFeedUpdateForUnknownMessageIsNoOp(t *testing.T) {
	c, _, conv := newConversationFixture()

	updated := messageInsert(conv.ID, "bob", "m-missing")
	updated.Kind = feed.MessageUpdated

	c.ApplyEvent(context.Background(), updated)

	assert.Empty(t, c.Messages(conv.ID))
}

func TestFeedDeleteRemovesMessageAndIsIdempotent(t *testing.T) {
	c, _, conv := newConversationFixture()
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m1"))
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m2"))

	deleted := messageInsert(conv.ID, "bob", "m1")
	deleted.Kind = feed.MessageDeleted

	c.ApplyEvent(context.Background(), deleted)
	c.ApplyEvent(context.Background(), deleted)

	seq := c.Messages(conv.ID)
	assert.Len(t, seq, 1)
	assert.Equal(t, "m2", seq[0].ID)
}

func TestFeedInsertBumpsLastMessageAt(t *testing.T) {
	c, _, conv := newConversationFixture()

	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m1"))

	for _, cv := range c.Conversations() {
		if cv.ID == conv.ID {
			assert.NotNil(t, cv.LastMessageAt)
		}
	}
}

func TestFeedInsertForActiveConversationMarksRead(t *testing.T) {
	c, fake, conv := newConversationFixture()
	c.SetActive(conv.ID)
	fake.Unread = 0

	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m1"))

	assert.Equal(t, 0, c.Unread())
	seq := c.Messages(conv.ID)
	assert.Len(t, seq, 1)
	assert.NotNil(t, seq[0].ReadAt)
	assert.Contains(t, fake.Calls, "MarkConversationRead")
}

func TestFeedInsertOwnMessageDoesNotCountUnread(t *testing.T) {
	c, _, conv := newConversationFixture()

	c.ApplyEvent(context.Background(), messageInsert(conv.ID, viewer, "m1"))

	assert.Equal(t, 0, c.Unread())
}

func TestCreateConversationWithHostComposite(t *testing.T) {
	fake := gateway.NewFake()
	fake.Hosts["event-1"] = models.Profile{ID: "host", Username: "host"}
	c := NewConversationStore(viewer, fake)

	conv, req, err := c.CreateConversationWithHost(context.Background(), "event-1")

	assert.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, conv.ID, req.ConversationID)
	assert.Equal(t, models.MessageRequestPending, req.Status)
	assert.Len(t, c.Conversations(), 1)
	assert.Len(t, c.Requests(), 1)
}

func TestCreateConversationWithHostFailsAsUnit(t *testing.T) {
	fake := gateway.NewFake()
	fake.Hosts["event-1"] = models.Profile{ID: "host"}
	fake.FailWith("CreateMessageRequest", errors.Gateway("denied", nil))
	c := NewConversationStore(viewer, fake)

	_, _, err := c.CreateConversationWithHost(context.Background(), "event-1")

	assert.Error(t, err)
	// No partial insertion: the conversation is not kept without its
	// message request.
	assert.Empty(t, c.Conversations())
	assert.Empty(t, c.Requests())
}

func TestMessageRequestResolveRollsBack(t *testing.T) {
	c, fake, conv := newConversationFixture()
	c.ApplyEvent(context.Background(), feed.Event{
		Kind:    feed.MessageRequestInserted,
		Request: &models.MessageRequest{ID: "r1", ConversationID: conv.ID, RequesterID: "bob", Status: models.MessageRequestPending},
	})
	fake.FailWith("AcceptMessageRequest", errors.Gateway("nope", nil))

	err := c.AcceptMessageRequest(context.Background(), "r1")

	assert.Error(t, err)
	assert.Equal(t, models.MessageRequestPending, c.Requests()[0].Status)

	fake.FailWith("AcceptMessageRequest", nil)
	assert.NoError(t, c.AcceptMessageRequest(context.Background(), "r1"))
	assert.Equal(t, models.MessageRequestAccepted, c.Requests()[0].Status)
}

func TestResetClearsConversationState(t *testing.T) {
	c, _, conv := newConversationFixture()
	c.ApplyEvent(context.Background(), messageInsert(conv.ID, "bob", "m1"))
	c.SetActive(conv.ID)

	c.Reset()

	assert.Empty(t, c.Conversations())
	assert.Empty(t, c.Messages(conv.ID))
	assert.Equal(t, 0, c.Unread())
	assert.Equal(t, "", c.ActiveID())
}
