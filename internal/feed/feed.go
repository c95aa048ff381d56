// Package feed delivers insert/update/delete push notifications,
// independent of the gateway call path.
package feed

// Topic identifies one push subscription: either all friendship events
// for a viewer, or all message events for a conversation.
type Topic string

func FriendshipTopic(viewerID string) Topic {
	return Topic("friendships:" + viewerID)
}

func ConversationTopic(conversationID string) Topic {
	return Topic("messages:" + conversationID)
}

// Handler receives decoded events for one topic.
type Handler func(Event)

// Unsubscribe tears down one subscription. Safe to call more than once.
type Unsubscribe func()

// Feed is the push-channel subscription boundary. Subscribing twice for
// the same topic is a no-op returning the existing subscription's
// teardown.
type Feed interface {
	Subscribe(topic Topic, fn Handler) (Unsubscribe, error)
	Close() error
}
