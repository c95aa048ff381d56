package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType: text or reaction
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageReaction MessageType = "reaction"
)

// ReactionType is non-empty iff the message type is reaction.
type ReactionType string

const (
	ReactionThumbsUp   ReactionType = "thumbs_up"
	ReactionThumbsDown ReactionType = "thumbs_down"
	ReactionNone       ReactionType = ""
)

// Message is an ordered unit of content within exactly one conversation.
// Ordering is by CreatedAt ascending, ties broken by insertion order.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	SenderID       string       `json:"senderId"`
	Content        string       `json:"content"`
	Type           MessageType  `json:"type"`
	ReactionType   ReactionType `json:"reactionType,omitempty"`
	ReadAt         *time.Time   `json:"readAt"`
	CreatedAt      time.Time    `json:"createdAt"`
}

const localIDPrefix = "local-"

// NewLocalID mints a temporary identifier for an optimistically created
// entity, distinguishable from server-issued ids until the gateway call
// resolves.
func NewLocalID() string {
	return localIDPrefix + uuid.New().String()
}

// IsLocalID reports whether id was minted by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
