// Package gateway is the thin async call boundary to the remote
// authority. It never touches store state directly; it only returns
// results for the stores' reconciliation rules to apply.
package gateway

import (
	"context"

	"github.com/pushp314/devconnect-sync/internal/models"
)

// Requests bundles the viewer's sent and received friend requests.
type Requests struct {
	Sent     []models.RequestEntry `json:"sent"`
	Received []models.RequestEntry `json:"received"`
}

// Gateway is the remote mutation/query boundary. Every call blocks
// until the remote authority confirms or rejects.
type Gateway interface {
	// Friendship graph
	SendFriendRequest(ctx context.Context, counterpartID string) (models.Friendship, error)
	AcceptFriendRequest(ctx context.Context, counterpartID string) (models.Friendship, error)
	DeclineFriendRequest(ctx context.Context, counterpartID string) error
	CancelFriendRequest(ctx context.Context, counterpartID string) error
	RemoveFriend(ctx context.Context, counterpartID string) error
	BlockUser(ctx context.Context, counterpartID string) (models.Friendship, error)
	UnblockUser(ctx context.Context, counterpartID string) error
	FetchFriends(ctx context.Context) ([]models.Profile, error)
	FetchRequests(ctx context.Context) (Requests, error)
	FetchSuggestions(ctx context.Context) ([]models.Profile, error)
	FetchStatus(ctx context.Context, counterpartID string) (models.Status, error)
	FetchProfiles(ctx context.Context, ids []string) ([]models.Profile, error)
	FetchStatuses(ctx context.Context, ids []string) (map[string]models.Status, error)

	// Conversations and messages
	CreateConversation(ctx context.Context, counterpartID string) (models.Conversation, error)
	FetchConversations(ctx context.Context) ([]models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, content string, msgType models.MessageType, reaction models.ReactionType) (models.Message, error)
	FetchMessages(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string) error
	FetchUnreadCount(ctx context.Context) (int, error)
	CreateMessageRequest(ctx context.Context, conversationID string) (models.MessageRequest, error)
	AcceptMessageRequest(ctx context.Context, requestID string) error
	DeclineMessageRequest(ctx context.Context, requestID string) error
	FetchEventHost(ctx context.Context, eventID string) (models.Profile, error)
}
