package store

import (
	"context"

	"github.com/pushp314/devconnect-sync/internal/feed"
	"github.com/pushp314/devconnect-sync/internal/models"
)

// ApplyEvent merges one friendship feed event into the store. The merge
// is idempotent and commutative with the optimistic call path: applying
// the same event twice, or in either order relative to the local
// optimistic change it confirms, converges to the same state.
func (r *RelationshipStore) ApplyEvent(ctx context.Context, ev feed.Event) {
	if ev.Friendship == nil {
		r.log.Warn().Str("kind", string(ev.Kind)).Msg("Dropping friendship event without entity")
		return
	}
	f := *ev.Friendship
	if f.OwnerID != r.viewerID && f.CounterpartID != r.viewerID {
		r.log.Warn().Str("id", f.ID).Msg("Dropping friendship event not involving viewer")
		return
	}
	counterpart := f.OtherParty(r.viewerID)

	switch ev.Kind {
	case feed.FriendshipInserted, feed.FriendshipUpdated:
		switch f.Status {
		case models.FriendshipPending:
			r.mergePending(ctx, f, counterpart)
		case models.FriendshipAccepted:
			r.mergeAccepted(ctx, counterpart)
		case models.FriendshipBlocked:
			r.mergeBlocked(counterpart)
		}
	case feed.FriendshipDeleted:
		r.mu.Lock()
		r.friends = removeProfile(r.friends, counterpart)
		r.incoming = removeEntry(r.incoming, counterpart)
		r.outgoing = removeEntry(r.outgoing, counterpart)
		r.statusCache[counterpart] = models.StatusNone
		r.mu.Unlock()
	default:
		r.log.Warn().Str("kind", string(ev.Kind)).Msg("Dropping unexpected event kind for friendship store")
	}
}

// mergePending upserts a pending request on the correct side. The
// dedup key is the counterpart id, not the row id, so a feed delivery
// never duplicates an optimistic temp entry for the same counterpart.
// An accepted or blocked pair is never downgraded: those states promote
// unconditionally regardless of feed delivery order.
func (r *RelationshipStore) mergePending(ctx context.Context, f models.Friendship, counterpart string) {
	r.mu.Lock()
	if hasProfile(r.friends, counterpart) {
		r.mu.Unlock()
		return
	}
	if s := r.statusCache[counterpart]; s == models.StatusAccepted || s == models.StatusBlocked {
		r.mu.Unlock()
		return
	}

	sent := f.OwnerID == r.viewerID
	existing := r.outgoing
	if !sent {
		existing = r.incoming
	}
	if hasEntry(existing, counterpart) {
		if sent {
			r.statusCache[counterpart] = models.StatusPendingSent
		} else {
			r.statusCache[counterpart] = models.StatusPendingReceived
		}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	// Best-effort enrichment. On failure an id-only entry is still
	// inserted so the relationship is not silently lost.
	profile := models.PlaceholderProfile(counterpart)
	if profiles, err := r.gw.FetchProfiles(ctx, []string{counterpart}); err == nil && len(profiles) > 0 {
		profile = profiles[0]
	} else if err != nil {
		r.log.Debug().Err(err).Str("counterpart", counterpart).Msg("Profile enrichment failed for feed insert")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: state may have moved while the fetch was in flight.
	if hasProfile(r.friends, counterpart) {
		return
	}
	if s := r.statusCache[counterpart]; s == models.StatusAccepted || s == models.StatusBlocked {
		return
	}
	entry := models.RequestEntry{CounterpartID: counterpart, Friendship: f, Profile: profile}
	if sent {
		if !hasEntry(r.outgoing, counterpart) {
			r.outgoing = append(r.outgoing, entry)
		}
		r.statusCache[counterpart] = models.StatusPendingSent
	} else {
		if !hasEntry(r.incoming, counterpart) {
			r.incoming = append(r.incoming, entry)
		}
		r.statusCache[counterpart] = models.StatusPendingReceived
	}
}

// mergeAccepted promotes the pair to friends, clearing any request
// entries for the counterpart on either side.
func (r *RelationshipStore) mergeAccepted(ctx context.Context, counterpart string) {
	r.mu.Lock()
	r.incoming = removeEntry(r.incoming, counterpart)
	r.outgoing = removeEntry(r.outgoing, counterpart)
	r.statusCache[counterpart] = models.StatusAccepted
	present := hasProfile(r.friends, counterpart)
	r.mu.Unlock()
	if present {
		return
	}

	profile := models.PlaceholderProfile(counterpart)
	if profiles, err := r.gw.FetchProfiles(ctx, []string{counterpart}); err == nil && len(profiles) > 0 {
		profile = profiles[0]
	} else if err != nil {
		r.log.Debug().Err(err).Str("counterpart", counterpart).Msg("Profile enrichment failed for accepted merge")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: a delete or block merged while the fetch was in flight
	// must not be undone by a stale append.
	if r.statusCache[counterpart] != models.StatusAccepted {
		return
	}
	if !hasProfile(r.friends, counterpart) {
		r.friends = append(r.friends, profile)
	}
}

func (r *RelationshipStore) mergeBlocked(counterpart string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.friends = removeProfile(r.friends, counterpart)
	r.statusCache[counterpart] = models.StatusBlocked
}
