package models

import "time"

// FriendshipStatus is the stored status of a friendship row.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Status is the friendship status as seen from one side, derived from
// the row's owner and stored status.
type Status string

const (
	StatusNone            Status = "none"
	StatusPendingSent     Status = "pending_sent"
	StatusPendingReceived Status = "pending_received"
	StatusAccepted        Status = "accepted"
	StatusBlocked         Status = "blocked"
)

// Friendship represents a directed-creation, bidirectional-effect
// relationship between two users. At most one row exists per unordered
// pair; the party whose id is OwnerID is the sender of a pending request.
type Friendship struct {
	ID            string           `json:"id"`
	OwnerID       string           `json:"ownerId"`
	CounterpartID string           `json:"counterpartId"`
	Status        FriendshipStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ViewerStatus derives the client-side status for the given viewer.
func (f Friendship) ViewerStatus(viewerID string) Status {
	switch f.Status {
	case FriendshipAccepted:
		return StatusAccepted
	case FriendshipBlocked:
		return StatusBlocked
	case FriendshipPending:
		if f.OwnerID == viewerID {
			return StatusPendingSent
		}
		return StatusPendingReceived
	}
	return StatusNone
}

// OtherParty returns the id of the party that is not viewerID.
func (f Friendship) OtherParty(viewerID string) string {
	if f.OwnerID == viewerID {
		return f.CounterpartID
	}
	return f.OwnerID
}

// RequestEntry is a list entry in the incoming or outgoing request
// collections. Profile may be zero-valued when the enrichment fetch
// failed; the relationship itself is still tracked by counterpart id.
type RequestEntry struct {
	CounterpartID string     `json:"counterpartId"`
	Friendship    Friendship `json:"friendship"`
	Profile       Profile    `json:"profile"`
}
