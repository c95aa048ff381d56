package store

import "github.com/pushp314/devconnect-sync/internal/models"

// Rollback is restore-full-snapshot, never incremental patch-undo, so a
// failed gateway call cannot leave a partially reverted store even when
// the optimistic step touched several collections. These helpers copy
// by value.

func cloneProfiles(in []models.Profile) []models.Profile {
	out := make([]models.Profile, len(in))
	copy(out, in)
	return out
}

func cloneEntries(in []models.RequestEntry) []models.RequestEntry {
	out := make([]models.RequestEntry, len(in))
	copy(out, in)
	return out
}

func cloneStatuses(in map[string]models.Status) map[string]models.Status {
	out := make(map[string]models.Status, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneConversations(in []models.Conversation) []models.Conversation {
	out := make([]models.Conversation, len(in))
	copy(out, in)
	return out
}

func cloneMessages(in []models.Message) []models.Message {
	out := make([]models.Message, len(in))
	copy(out, in)
	return out
}

func cloneRequests(in []models.MessageRequest) []models.MessageRequest {
	out := make([]models.MessageRequest, len(in))
	copy(out, in)
	return out
}
