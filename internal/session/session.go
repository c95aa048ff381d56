// Package session ties the two stores, the feed subscriptions, and the
// polling backstop to one authenticated viewer. It replaces what would
// otherwise be process-wide singletons with an explicit context object
// whose lifecycle follows the identity provider.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushp314/devconnect-sync/internal/feed"
	"github.com/pushp314/devconnect-sync/internal/gateway"
	"github.com/pushp314/devconnect-sync/internal/identity"
	"github.com/pushp314/devconnect-sync/internal/store"
	"github.com/pushp314/devconnect-sync/pkg/logger"
)

// Options tunes session behavior. Zero values fall back to defaults.
type Options struct {
	// LoadTimeout bounds the initial bulk load; on expiry loading
	// completes with partial data.
	LoadTimeout time.Duration
	// UnreadPollInterval is the backstop re-check cadence. Zero
	// disables the poller.
	UnreadPollInterval time.Duration
}

const defaultLoadTimeout = 10 * time.Second

// Session owns both stores and all feed subscriptions for one viewer.
// When the viewer changes or signs out, everything is torn down and
// the stores are cleared entirely before anything is established for
// the next identity.
type Session struct {
	gw   gateway.Gateway
	fd   feed.Feed
	opts Options
	log  zerolog.Logger

	mu            sync.Mutex
	viewerID      string
	relationships *store.RelationshipStore
	conversations *store.ConversationStore
	subs          map[feed.Topic]feed.Unsubscribe
	poller        *Poller
}

// New builds a session bound to the identity provider. If identity has
// already resolved, the session starts immediately; otherwise it stays
// empty until the provider reports a viewer.
func New(ident identity.Provider, gw gateway.Gateway, fd feed.Feed, opts Options) *Session {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}
	s := &Session{
		gw:   gw,
		fd:   fd,
		opts: opts,
		log:  logger.With("session"),
		subs: make(map[feed.Topic]feed.Unsubscribe),
	}

	ident.Watch(s.onViewerChange)
	if viewerID, ready := ident.Viewer(); ready && viewerID != "" {
		s.onViewerChange(viewerID)
	}
	return s
}

// Relationships returns the relationship store, or nil before identity
// resolves.
func (s *Session) Relationships() *store.RelationshipStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationships
}

// Conversations returns the conversation store, or nil before identity
// resolves.
func (s *Session) Conversations() *store.ConversationStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations
}

func (s *Session) onViewerChange(viewerID string) {
	s.teardown()
	if viewerID == "" {
		s.log.Info().Msg("Signed out, session cleared")
		return
	}
	s.start(viewerID)
}

func (s *Session) start(viewerID string) {
	s.mu.Lock()
	s.viewerID = viewerID
	s.relationships = store.NewRelationshipStore(viewerID, s.gw)
	s.conversations = store.NewConversationStore(viewerID, s.gw)
	relationships := s.relationships
	conversations := s.conversations
	s.mu.Unlock()

	s.log.Info().Str("viewer", viewerID).Msg("Session starting")

	// Friendship events for this viewer flow through one subscription.
	s.subscribe(feed.FriendshipTopic(viewerID), func(ev feed.Event) {
		relationships.ApplyEvent(context.Background(), ev)
	})

	// Bounded initial load: on expiry the stores keep partial data and
	// clear their loading flags themselves.
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.LoadTimeout)
	defer cancel()
	relationships.Load(ctx)
	conversations.Load(ctx)

	s.SyncSubscriptions()

	if s.opts.UnreadPollInterval > 0 {
		s.mu.Lock()
		s.poller = NewPoller(s.opts.UnreadPollInterval, s.pollTick)
		s.mu.Unlock()
	}
}

// pollTick is the missed-push backstop: re-check the unread counter and
// reconcile the per-conversation subscription set.
func (s *Session) pollTick() {
	s.mu.Lock()
	conversations := s.conversations
	s.mu.Unlock()
	if conversations == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conversations.RefreshUnread(ctx); err != nil {
		s.log.Debug().Err(err).Msg("Unread backstop poll failed")
	}
	s.SyncSubscriptions()
}

// SyncSubscriptions reconciles per-conversation feed subscriptions with
// the store's conversation list: lazily created as conversations become
// known, torn down when a conversation is no longer present. This
// bounds open channels to the number of known conversations.
func (s *Session) SyncSubscriptions() {
	s.mu.Lock()
	conversations := s.conversations
	viewerID := s.viewerID
	s.mu.Unlock()
	if conversations == nil {
		return
	}

	wanted := map[feed.Topic]bool{feed.FriendshipTopic(viewerID): true}
	for _, conv := range conversations.Conversations() {
		topic := feed.ConversationTopic(conv.ID)
		wanted[topic] = true
		s.subscribe(topic, func(ev feed.Event) {
			conversations.ApplyEvent(context.Background(), ev)
		})
	}

	s.mu.Lock()
	var stale []feed.Topic
	for topic := range s.subs {
		if !wanted[topic] {
			stale = append(stale, topic)
		}
	}
	s.mu.Unlock()
	for _, topic := range stale {
		s.unsubscribe(topic)
	}
}

// subscribe is a no-op when the topic is already subscribed.
func (s *Session) subscribe(topic feed.Topic, fn feed.Handler) {
	s.mu.Lock()
	if _, exists := s.subs[topic]; exists {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	unsub, err := s.fd.Subscribe(topic, fn)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", string(topic)).Msg("Subscribe failed")
		return
	}

	s.mu.Lock()
	if _, exists := s.subs[topic]; exists {
		s.mu.Unlock()
		unsub()
		return
	}
	s.subs[topic] = unsub
	s.mu.Unlock()
}

func (s *Session) unsubscribe(topic feed.Topic) {
	s.mu.Lock()
	unsub := s.subs[topic]
	delete(s.subs, topic)
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// teardown removes every subscription, stops the poller, and clears
// both stores entirely.
func (s *Session) teardown() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[feed.Topic]feed.Unsubscribe)
	poller := s.poller
	s.poller = nil
	relationships := s.relationships
	conversations := s.conversations
	s.relationships = nil
	s.conversations = nil
	s.viewerID = ""
	s.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
	if poller != nil {
		poller.Stop()
	}
	if relationships != nil {
		relationships.Reset()
	}
	if conversations != nil {
		conversations.Reset()
	}
}

// Close shuts the session down. The feed itself is owned by the caller.
func (s *Session) Close() {
	s.teardown()
}

// SubscriptionCount reports the number of live feed subscriptions.
func (s *Session) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
