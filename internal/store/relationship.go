package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushp314/devconnect-sync/internal/gateway"
	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/pkg/errors"
	"github.com/pushp314/devconnect-sync/pkg/logger"
)

// RelationshipStore holds the viewer's friendship graph: friends,
// incoming/outgoing requests, suggestions, and a per-counterpart status
// cache. Every mutating method applies an optimistic transition first,
// then dispatches the gateway call; a rejected call restores the exact
// snapshot captured before the optimistic step.
type RelationshipStore struct {
	mu       sync.Mutex
	viewerID string
	gw       gateway.Gateway
	log      zerolog.Logger

	now   func() time.Time
	newID func() string

	friends     []models.Profile
	incoming    []models.RequestEntry
	outgoing    []models.RequestEntry
	suggestions []models.Profile
	statusCache map[string]models.Status

	loading bool
	err     error
}

func NewRelationshipStore(viewerID string, gw gateway.Gateway) *RelationshipStore {
	return &RelationshipStore{
		viewerID:    viewerID,
		gw:          gw,
		log:         logger.With("relationship-store"),
		now:         time.Now,
		newID:       models.NewLocalID,
		statusCache: make(map[string]models.Status),
	}
}

// relationshipSnapshot captures every collection an optimistic step may
// touch.
type relationshipSnapshot struct {
	friends     []models.Profile
	incoming    []models.RequestEntry
	outgoing    []models.RequestEntry
	suggestions []models.Profile
	statusCache map[string]models.Status
}

// capture must be called with the lock held.
func (r *RelationshipStore) capture() relationshipSnapshot {
	return relationshipSnapshot{
		friends:     cloneProfiles(r.friends),
		incoming:    cloneEntries(r.incoming),
		outgoing:    cloneEntries(r.outgoing),
		suggestions: cloneProfiles(r.suggestions),
		statusCache: cloneStatuses(r.statusCache),
	}
}

// restore must be called with the lock held.
func (r *RelationshipStore) restore(snap relationshipSnapshot) {
	r.friends = snap.friends
	r.incoming = snap.incoming
	r.outgoing = snap.outgoing
	r.suggestions = snap.suggestions
	r.statusCache = snap.statusCache
}

// fail records err on the store and rolls back to snap.
func (r *RelationshipStore) fail(snap relationshipSnapshot, err error) error {
	r.mu.Lock()
	r.restore(snap)
	r.err = err
	r.mu.Unlock()
	r.log.Warn().Err(err).Msg("Gateway rejected mutation, optimistic state rolled back")
	return err
}

// SendRequest optimistically records an outgoing pending request for
// counterpartID, then asks the gateway to create it.
func (r *RelationshipStore) SendRequest(ctx context.Context, counterpartID string) error {
	if counterpartID == r.viewerID {
		err := errors.Validation("cannot send a friend request to yourself")
		r.setErr(err)
		return err
	}

	r.mu.Lock()
	snap := r.capture()
	if !hasEntry(r.outgoing, counterpartID) {
		r.outgoing = append(r.outgoing, models.RequestEntry{
			CounterpartID: counterpartID,
			Friendship: models.Friendship{
				ID:            r.newID(),
				OwnerID:       r.viewerID,
				CounterpartID: counterpartID,
				Status:        models.FriendshipPending,
				CreatedAt:     r.now(),
				UpdatedAt:     r.now(),
			},
		})
	}
	r.suggestions = removeProfile(r.suggestions, counterpartID)
	r.statusCache[counterpartID] = models.StatusPendingSent
	r.err = nil
	r.mu.Unlock()

	if _, err := r.gw.SendFriendRequest(ctx, counterpartID); err != nil {
		return r.fail(snap, err)
	}
	// Confirmation and temp-id substitution arrive via the change feed.
	return nil
}

// AcceptRequest moves counterpartID from incoming requests to friends.
func (r *RelationshipStore) AcceptRequest(ctx context.Context, counterpartID string) error {
	r.mu.Lock()
	entry, ok := findEntry(r.incoming, counterpartID)
	if !ok {
		r.mu.Unlock()
		err := errors.Validation("no incoming request from " + counterpartID)
		r.setErr(err)
		return err
	}
	snap := r.capture()
	r.incoming = removeEntry(r.incoming, counterpartID)
	profile := entry.Profile
	if profile.ID == "" {
		profile = models.PlaceholderProfile(counterpartID)
	}
	if !hasProfile(r.friends, counterpartID) {
		r.friends = append(r.friends, profile)
	}
	r.statusCache[counterpartID] = models.StatusAccepted
	r.err = nil
	r.mu.Unlock()

	if _, err := r.gw.AcceptFriendRequest(ctx, counterpartID); err != nil {
		return r.fail(snap, err)
	}

	// Out-of-band detail fetch; failure keeps the placeholder rather
	// than blocking the accept.
	if profiles, err := r.gw.FetchProfiles(ctx, []string{counterpartID}); err == nil && len(profiles) > 0 {
		r.mu.Lock()
		r.friends = upsertProfile(r.friends, profiles[0])
		r.mu.Unlock()
	} else if err != nil {
		r.log.Debug().Err(err).Str("counterpart", counterpartID).Msg("Profile enrichment failed, keeping placeholder")
	}
	return nil
}

// DeclineRequest removes the incoming request from counterpartID.
func (r *RelationshipStore) DeclineRequest(ctx context.Context, counterpartID string) error {
	r.mu.Lock()
	snap := r.capture()
	r.incoming = removeEntry(r.incoming, counterpartID)
	r.statusCache[counterpartID] = models.StatusNone
	r.err = nil
	r.mu.Unlock()

	if err := r.gw.DeclineFriendRequest(ctx, counterpartID); err != nil {
		return r.fail(snap, err)
	}
	return nil
}

// CancelRequest withdraws the viewer's own pending request.
func (r *RelationshipStore) CancelRequest(ctx context.Context, counterpartID string) error {
	r.mu.Lock()
	snap := r.capture()
	r.outgoing = removeEntry(r.outgoing, counterpartID)
	r.statusCache[counterpartID] = models.StatusNone
	r.err = nil
	r.mu.Unlock()

	if err := r.gw.CancelFriendRequest(ctx, counterpartID); err != nil {
		return r.fail(snap, err)
	}
	return nil
}

// RemoveFriend drops counterpartID from the friends list.
func (r *RelationshipStore) RemoveFriend(ctx context.Context, counterpartID string) error {
	r.mu.Lock()
	snap := r.capture()
	r.friends = removeProfile(r.friends, counterpartID)
	r.statusCache[counterpartID] = models.StatusNone
	r.err = nil
	r.mu.Unlock()

	if err := r.gw.RemoveFriend(ctx, counterpartID); err != nil {
		return r.fail(snap, err)
	}
	return nil
}

// BlockUser removes any relationship with counterpartID and marks the
// pair blocked.
func (r *RelationshipStore) BlockUser(ctx context.Context, counterpartID string) error {
	if counterpartID == r.viewerID {
		err := errors.Validation("cannot block yourself")
		r.setErr(err)
		return err
	}

	r.mu.Lock()
	snap := r.capture()
	r.friends = removeProfile(r.friends, counterpartID)
	r.incoming = removeEntry(r.incoming, counterpartID)
	r.outgoing = removeEntry(r.outgoing, counterpartID)
	r.suggestions = removeProfile(r.suggestions, counterpartID)
	r.statusCache[counterpartID] = models.StatusBlocked
	r.err = nil
	r.mu.Unlock()

	if _, err := r.gw.BlockUser(ctx, counterpartID); err != nil {
		return r.fail(snap, err)
	}
	return nil
}

// UnblockUser clears a block.
func (r *RelationshipStore) UnblockUser(ctx context.Context, counterpartID string) error {
	r.mu.Lock()
	snap := r.capture()
	r.statusCache[counterpartID] = models.StatusNone
	r.err = nil
	r.mu.Unlock()

	if err := r.gw.UnblockUser(ctx, counterpartID); err != nil {
		return r.fail(snap, err)
	}
	return nil
}

// Status returns the cached status for counterpartID, fetching through
// the gateway on a miss. A value merged from the feed while the fetch
// was in flight wins over the fetched one.
func (r *RelationshipStore) Status(ctx context.Context, counterpartID string) (models.Status, error) {
	r.mu.Lock()
	if s, ok := r.statusCache[counterpartID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	fetched, err := r.gw.FetchStatus(ctx, counterpartID)
	if err != nil {
		r.setErr(err)
		return models.StatusNone, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statusCache[counterpartID]; ok {
		return s, nil
	}
	r.statusCache[counterpartID] = fetched
	return fetched, nil
}

// Load performs the initial bulk fetch of the friendship graph. When
// ctx expires before everything resolves, loading completes with
// whatever partial data arrived and no error is surfaced: the bound is
// a liveness guarantee, not a correctness one.
func (r *RelationshipStore) Load(ctx context.Context) {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	friends, friendsErr := r.gw.FetchFriends(ctx)
	requests, requestsErr := r.gw.FetchRequests(ctx)
	suggestions, suggestionsErr := r.gw.FetchSuggestions(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if friendsErr == nil {
		r.friends = friends
		for _, p := range friends {
			r.statusCache[p.ID] = models.StatusAccepted
		}
	}
	if requestsErr == nil {
		r.outgoing = requests.Sent
		r.incoming = requests.Received
		for _, e := range requests.Sent {
			r.statusCache[e.CounterpartID] = models.StatusPendingSent
		}
		for _, e := range requests.Received {
			r.statusCache[e.CounterpartID] = models.StatusPendingReceived
		}
	}
	if suggestionsErr == nil {
		r.suggestions = suggestions
	}

	r.loading = false
	if ctx.Err() != nil {
		r.err = nil
		r.log.Warn().Msg("Initial friendship load timed out, continuing with partial data")
		return
	}
	for _, err := range []error{friendsErr, requestsErr, suggestionsErr} {
		if err != nil {
			r.err = err
			return
		}
	}
	r.err = nil
}

// Reset clears the store entirely. Collections are reallocated, not
// truncated, so no state leaks across identities.
func (r *RelationshipStore) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.friends = nil
	r.incoming = nil
	r.outgoing = nil
	r.suggestions = nil
	r.statusCache = make(map[string]models.Status)
	r.loading = false
	r.err = nil
}

func (r *RelationshipStore) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Read-only accessors. Slices are copied so callers cannot mutate
// store state behind the lock.

func (r *RelationshipStore) Friends() []models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneProfiles(r.friends)
}

func (r *RelationshipStore) Incoming() []models.RequestEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneEntries(r.incoming)
}

func (r *RelationshipStore) Outgoing() []models.RequestEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneEntries(r.outgoing)
}

func (r *RelationshipStore) Suggestions() []models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneProfiles(r.suggestions)
}

// CachedStatus returns the cached status without fetching.
func (r *RelationshipStore) CachedStatus(counterpartID string) (models.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.statusCache[counterpartID]
	return s, ok
}

func (r *RelationshipStore) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

func (r *RelationshipStore) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Slice helpers, all keyed by counterpart id.

func hasEntry(entries []models.RequestEntry, counterpartID string) bool {
	_, ok := findEntry(entries, counterpartID)
	return ok
}

func findEntry(entries []models.RequestEntry, counterpartID string) (models.RequestEntry, bool) {
	for _, e := range entries {
		if e.CounterpartID == counterpartID {
			return e, true
		}
	}
	return models.RequestEntry{}, false
}

func removeEntry(entries []models.RequestEntry, counterpartID string) []models.RequestEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.CounterpartID != counterpartID {
			out = append(out, e)
		}
	}
	return out
}

func hasProfile(profiles []models.Profile, id string) bool {
	for _, p := range profiles {
		if p.ID == id {
			return true
		}
	}
	return false
}

func removeProfile(profiles []models.Profile, id string) []models.Profile {
	out := profiles[:0:0]
	for _, p := range profiles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func upsertProfile(profiles []models.Profile, p models.Profile) []models.Profile {
	for i := range profiles {
		if profiles[i].ID == p.ID {
			profiles[i] = p
			return profiles
		}
	}
	return append(profiles, p)
}
