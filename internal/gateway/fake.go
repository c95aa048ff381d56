package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/pkg/errors"
)

// Fake is an in-memory Gateway used by tests and by offline tooling.
// Behavior is canned but stateful enough to act like the backend:
// conversations are canonically keyed per pair, messages get server
// ids, and any method can be made to fail by name via Errs.
type Fake struct {
	mu sync.Mutex

	// Errs maps a method name ("SendMessage", "FetchProfiles", ...) to
	// the error every call to it should return.
	Errs map[string]error

	Profiles      map[string]models.Profile
	Statuses      map[string]models.Status
	Friends       []models.Profile
	Requests      Requests
	Suggestions   []models.Profile
	Conversations map[string]models.Conversation // keyed "u1|u2", canonical order
	Messages      map[string][]models.Message    // next FetchMessages page per conversation
	Hosts         map[string]models.Profile      // eventID -> host
	Unread        int

	// Calls records every method invocation in order.
	Calls []string
}

func NewFake() *Fake {
	return &Fake{
		Errs:          make(map[string]error),
		Profiles:      make(map[string]models.Profile),
		Statuses:      make(map[string]models.Status),
		Conversations: make(map[string]models.Conversation),
		Messages:      make(map[string][]models.Message),
		Hosts:         make(map[string]models.Profile),
	}
}

var _ Gateway = (*Fake)(nil)

// FailWith makes every subsequent call to method return err.
func (f *Fake) FailWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errs[method] = err
}

func (f *Fake) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, method)
	return f.Errs[method]
}

func (f *Fake) friendship(ownerID, counterpartID string, status models.FriendshipStatus) models.Friendship {
	now := time.Now()
	return models.Friendship{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		CounterpartID: counterpartID,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (f *Fake) SendFriendRequest(_ context.Context, counterpartID string) (models.Friendship, error) {
	if err := f.enter("SendFriendRequest"); err != nil {
		return models.Friendship{}, err
	}
	return f.friendship("", counterpartID, models.FriendshipPending), nil
}

func (f *Fake) AcceptFriendRequest(_ context.Context, counterpartID string) (models.Friendship, error) {
	if err := f.enter("AcceptFriendRequest"); err != nil {
		return models.Friendship{}, err
	}
	return f.friendship(counterpartID, "", models.FriendshipAccepted), nil
}

func (f *Fake) DeclineFriendRequest(_ context.Context, _ string) error {
	return f.enter("DeclineFriendRequest")
}

func (f *Fake) CancelFriendRequest(_ context.Context, _ string) error {
	return f.enter("CancelFriendRequest")
}

func (f *Fake) RemoveFriend(_ context.Context, _ string) error {
	return f.enter("RemoveFriend")
}

func (f *Fake) BlockUser(_ context.Context, counterpartID string) (models.Friendship, error) {
	if err := f.enter("BlockUser"); err != nil {
		return models.Friendship{}, err
	}
	return f.friendship("", counterpartID, models.FriendshipBlocked), nil
}

func (f *Fake) UnblockUser(_ context.Context, _ string) error {
	return f.enter("UnblockUser")
}

func (f *Fake) FetchFriends(_ context.Context) ([]models.Profile, error) {
	if err := f.enter("FetchFriends"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Profile{}, f.Friends...), nil
}

func (f *Fake) FetchRequests(_ context.Context) (Requests, error) {
	if err := f.enter("FetchRequests"); err != nil {
		return Requests{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Requests, nil
}

func (f *Fake) FetchSuggestions(_ context.Context) ([]models.Profile, error) {
	if err := f.enter("FetchSuggestions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Profile{}, f.Suggestions...), nil
}

func (f *Fake) FetchStatus(_ context.Context, counterpartID string) (models.Status, error) {
	if err := f.enter("FetchStatus"); err != nil {
		return models.StatusNone, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.Statuses[counterpartID]; ok {
		return s, nil
	}
	return models.StatusNone, nil
}

func (f *Fake) FetchProfiles(_ context.Context, ids []string) ([]models.Profile, error) {
	if err := f.enter("FetchProfiles"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Profile
	for _, id := range ids {
		if p, ok := f.Profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) FetchStatuses(_ context.Context, ids []string) (map[string]models.Status, error) {
	if err := f.enter("FetchStatuses"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.Status, len(ids))
	for _, id := range ids {
		if s, ok := f.Statuses[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// CreateConversation canonicalizes the pair so both parties resolve to
// the same conversation. The fake does not know the caller's id, so the
// pair key is "|counterpartID" unless SeedConversation installed one.
func (f *Fake) CreateConversation(_ context.Context, counterpartID string) (models.Conversation, error) {
	if err := f.enter("CreateConversation"); err != nil {
		return models.Conversation{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.Conversations {
		if conv.User1ID == counterpartID || conv.User2ID == counterpartID {
			return conv, nil
		}
	}
	u1, u2 := models.CanonicalPair("", counterpartID)
	conv := models.Conversation{
		ID:        uuid.New().String(),
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: time.Now(),
	}
	f.Conversations[u1+"|"+u2] = conv
	return conv, nil
}

// SeedConversation installs a conversation between two users.
func (f *Fake) SeedConversation(a, b string) models.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	u1, u2 := models.CanonicalPair(a, b)
	if conv, ok := f.Conversations[u1+"|"+u2]; ok {
		return conv
	}
	conv := models.Conversation{
		ID:        uuid.New().String(),
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: time.Now(),
	}
	f.Conversations[u1+"|"+u2] = conv
	return conv
}

func (f *Fake) FetchConversations(_ context.Context) ([]models.Conversation, error) {
	if err := f.enter("FetchConversations"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Conversation, 0, len(f.Conversations))
	for _, conv := range f.Conversations {
		out = append(out, conv)
	}
	return out, nil
}

func (f *Fake) SendMessage(_ context.Context, conversationID, content string, msgType models.MessageType, reaction models.ReactionType) (models.Message, error) {
	if err := f.enter("SendMessage"); err != nil {
		return models.Message{}, err
	}
	return models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Content:        content,
		Type:           msgType,
		ReactionType:   reaction,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *Fake) FetchMessages(_ context.Context, conversationID string, limit, offset int) ([]models.Message, error) {
	if err := f.enter("FetchMessages"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message{}, f.Messages[conversationID]...), nil
}

// SetMessages installs the page the next FetchMessages call returns.
func (f *Fake) SetMessages(conversationID string, messages []models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages[conversationID] = messages
}

func (f *Fake) MarkConversationRead(_ context.Context, _ string) error {
	return f.enter("MarkConversationRead")
}

func (f *Fake) FetchUnreadCount(_ context.Context) (int, error) {
	if err := f.enter("FetchUnreadCount"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Unread, nil
}

func (f *Fake) CreateMessageRequest(_ context.Context, conversationID string) (models.MessageRequest, error) {
	if err := f.enter("CreateMessageRequest"); err != nil {
		return models.MessageRequest{}, err
	}
	return models.MessageRequest{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Status:         models.MessageRequestPending,
	}, nil
}

func (f *Fake) AcceptMessageRequest(_ context.Context, _ string) error {
	return f.enter("AcceptMessageRequest")
}

func (f *Fake) DeclineMessageRequest(_ context.Context, _ string) error {
	return f.enter("DeclineMessageRequest")
}

func (f *Fake) FetchEventHost(_ context.Context, eventID string) (models.Profile, error) {
	if err := f.enter("FetchEventHost"); err != nil {
		return models.Profile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if host, ok := f.Hosts[eventID]; ok {
		return host, nil
	}
	return models.Profile{}, errors.Gateway("no host for event "+eventID, nil)
}
