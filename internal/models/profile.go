package models

// Profile is the counterpart details record shown in friends, request
// and suggestion lists.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Image    string `json:"image"`
}

// PlaceholderProfile returns a minimal record keyed only by id, used
// when a details fetch fails so the relationship is not silently lost.
func PlaceholderProfile(id string) Profile {
	return Profile{ID: id}
}
