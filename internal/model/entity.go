package model

import "strings"

// Entity is a tracked CRM contact and its current lifecycle stage.
// An empty StageValue means the contact has no recorded stage.
type Entity struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Email      string `json:"email,omitempty"`
	StageValue string `json:"stage_value,omitempty"`
}

// EntitySummary is a contact search result.
type EntitySummary = Entity

// DisplayName returns "First Last", falling back to the email and then the id.
func (e Entity) DisplayName() string {
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	if name != "" {
		return name
	}
	if e.Email != "" {
		return e.Email
	}
	return e.ID
}
