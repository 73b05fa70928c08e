package model

import "github.com/rotisserie/eris"

// ErrBloodTypeRequired is returned when a match request omits the blood type.
var ErrBloodTypeRequired = eris.New("model: blood_type is required")

// MatchRequest is a seeker-facing request for ranked donor candidates.
type MatchRequest struct {
	BloodType string   `json:"blood_type"`
	SeekerID  string   `json:"seeker_id,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	District  string   `json:"district,omitempty"`
}

// Validate checks the request for the required fields. Location is optional:
// a request without coordinates or a resolvable place name still ranks, with
// every distance treated as unresolved.
func (r *MatchRequest) Validate() error {
	if NormalizeBloodType(r.BloodType) == "" {
		return ErrBloodTypeRequired
	}
	return nil
}

// HasCoordinates reports whether the seeker supplied lat/lng directly.
func (r *MatchRequest) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}
