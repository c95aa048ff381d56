package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/pkg/errors"
)

func TestDecodeFriendshipInsert(t *testing.T) {
	raw := []byte(`{
		"topic": "friendships:alice",
		"eventType": "insert",
		"table": "friendships",
		"entity": {"id": "f1", "ownerId": "alice", "counterpartId": "bob", "status": "pending"}
	}`)

	topic, ev, err := Decode(raw)

	assert.NoError(t, err)
	assert.Equal(t, FriendshipTopic("alice"), topic)
	assert.Equal(t, FriendshipInserted, ev.Kind)
	assert.NotNil(t, ev.Friendship)
	assert.Equal(t, "bob", ev.Friendship.CounterpartID)
	assert.Equal(t, models.FriendshipPending, ev.Friendship.Status)
	assert.Nil(t, ev.Message)
	assert.Nil(t, ev.Request)
}

func TestDecodeMessageDelete(t *testing.T) {
	raw := []byte(`{
		"topic": "messages:c1",
		"eventType": "delete",
		"table": "messages",
		"entity": {"id": "m1", "conversationId": "c1", "senderId": "bob", "content": "x", "type": "text"}
	}`)

	topic, ev, err := Decode(raw)

	assert.NoError(t, err)
	assert.Equal(t, ConversationTopic("c1"), topic)
	assert.Equal(t, MessageDeleted, ev.Kind)
	assert.Equal(t, "m1", ev.Message.ID)
}

func TestDecodeMessageRequestUpdate(t *testing.T) {
	raw := []byte(`{
		"topic": "messages:c1",
		"eventType": "update",
		"table": "message_requests",
		"entity": {"id": "r1", "conversationId": "c1", "requesterId": "bob", "status": "accepted"}
	}`)

	_, ev, err := Decode(raw)

	assert.NoError(t, err)
	assert.Equal(t, MessageRequestUpdated, ev.Kind)
	assert.Equal(t, models.MessageRequestAccepted, ev.Request.Status)
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	cases := map[string][]byte{
		"not json":       []byte(`{{`),
		"missing topic":  []byte(`{"eventType":"insert","table":"friendships","entity":{}}`),
		"unknown table":  []byte(`{"topic":"t","eventType":"insert","table":"events","entity":{}}`),
		"bad event type": []byte(`{"topic":"t","eventType":"upsert","table":"friendships","entity":{}}`),
		"request delete": []byte(`{"topic":"t","eventType":"delete","table":"message_requests","entity":{}}`),
		"bad entity":     []byte(`{"topic":"t","eventType":"insert","table":"messages","entity":[1,2]}`),
	}

	for name, raw := range cases {
		_, _, err := Decode(raw)
		assert.Error(t, err, name)
		assert.True(t, errors.IsKind(err, errors.KindFeed), name)
	}
}
