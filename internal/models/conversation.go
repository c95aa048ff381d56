package models

import "time"

// Conversation is a 1:1 channel between two users, canonically ordered
// so User1ID < User2ID lexicographically. Exactly one row exists per
// pair regardless of who initiated it.
type Conversation struct {
	ID            string     `json:"id"`
	User1ID       string     `json:"user1Id"`
	User2ID       string     `json:"user2Id"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// CanonicalPair orders two user ids so that (a, b) and (b, a) map to
// the same conversation key.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// CounterpartOf returns the participant that is not viewerID.
func (c Conversation) CounterpartOf(viewerID string) string {
	if c.User1ID == viewerID {
		return c.User2ID
	}
	return c.User1ID
}

// MessageRequestStatus is the status of a message request.
type MessageRequestStatus string

const (
	MessageRequestPending  MessageRequestStatus = "pending"
	MessageRequestAccepted MessageRequestStatus = "accepted"
	MessageRequestDeclined MessageRequestStatus = "declined"
)

// MessageRequest gates whether a conversation may receive messages from
// a non-reciprocating party. At most one active request exists per
// (conversation, requester).
type MessageRequest struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversationId"`
	RequesterID    string               `json:"requesterId"`
	Status         MessageRequestStatus `json:"status"`
}
