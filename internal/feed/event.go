package feed

import (
	"encoding/json"

	"github.com/pushp314/devconnect-sync/internal/models"
	"github.com/pushp314/devconnect-sync/pkg/errors"
)

// Kind is the closed set of change-feed event variants. Merge logic
// switches exhaustively over these instead of inspecting loose payloads.
type Kind string

const (
	FriendshipInserted     Kind = "friendship_inserted"
	FriendshipUpdated      Kind = "friendship_updated"
	FriendshipDeleted      Kind = "friendship_deleted"
	MessageInserted        Kind = "message_inserted"
	MessageUpdated         Kind = "message_updated"
	MessageDeleted         Kind = "message_deleted"
	MessageRequestInserted Kind = "message_request_inserted"
	MessageRequestUpdated  Kind = "message_request_updated"
)

// Event is the decoded tagged union delivered to subscribers. Exactly
// one of the entity pointers is non-nil, matching Kind.
type Event struct {
	Kind       Kind
	Friendship *models.Friendship
	Message    *models.Message
	Request    *models.MessageRequest
}

// frame is the wire shape of one feed delivery.
type frame struct {
	Topic     string          `json:"topic"`
	EventType string          `json:"eventType"` // insert | update | delete
	Table     string          `json:"table"`     // friendships | messages | message_requests
	Entity    json.RawMessage `json:"entity"`
}

// Decode maps a raw feed frame into the closed event union. Malformed
// or unattributable frames return a feed error; callers drop them with
// a diagnostic log and never let them reach the stores.
func Decode(raw []byte) (Topic, Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", Event{}, errors.Feed("undecodable frame", err)
	}
	if f.Topic == "" {
		return "", Event{}, errors.Feed("frame missing topic", nil)
	}

	var kind Kind
	ev := Event{}
	switch f.Table {
	case "friendships":
		var entity models.Friendship
		if err := json.Unmarshal(f.Entity, &entity); err != nil {
			return "", Event{}, errors.Feed("bad friendship entity", err)
		}
		ev.Friendship = &entity
		switch f.EventType {
		case "insert":
			kind = FriendshipInserted
		case "update":
			kind = FriendshipUpdated
		case "delete":
			kind = FriendshipDeleted
		}
	case "messages":
		var entity models.Message
		if err := json.Unmarshal(f.Entity, &entity); err != nil {
			return "", Event{}, errors.Feed("bad message entity", err)
		}
		ev.Message = &entity
		switch f.EventType {
		case "insert":
			kind = MessageInserted
		case "update":
			kind = MessageUpdated
		case "delete":
			kind = MessageDeleted
		}
	case "message_requests":
		var entity models.MessageRequest
		if err := json.Unmarshal(f.Entity, &entity); err != nil {
			return "", Event{}, errors.Feed("bad message request entity", err)
		}
		ev.Request = &entity
		switch f.EventType {
		case "insert":
			kind = MessageRequestInserted
		case "update":
			kind = MessageRequestUpdated
		}
	default:
		return "", Event{}, errors.Feed("unknown table "+f.Table, nil)
	}

	if kind == "" {
		return "", Event{}, errors.Feed("unsupported event type "+f.EventType+" for "+f.Table, nil)
	}
	ev.Kind = kind
	return Topic(f.Topic), ev, nil
}
