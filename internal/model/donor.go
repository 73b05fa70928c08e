// Package model defines the domain types shared across the matching engine.
package model

import (
	"strings"
	"time"
)

// Donor is a registered donor record as read from the donor repository.
// The engine never mutates donors; registration and profile editing live
// in the surrounding application.
type Donor struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	BloodType      string     `json:"blood_type"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	City           string     `json:"city,omitempty"`
	District       string     `json:"district,omitempty"`
	State          string     `json:"state,omitempty"`
	LastDonation   *time.Time `json:"last_donation,omitempty"`
	TotalDonations int        `json:"total_donations"`
	Available      bool       `json:"available"`
}

// HasCoordinates reports whether the donor record carries its own lat/lng.
func (d *Donor) HasCoordinates() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// DaysSinceLastDonation returns the whole days elapsed since the donor's
// last recorded donation, or -1 if none is recorded.
func (d *Donor) DaysSinceLastDonation(now time.Time) int {
	if d.LastDonation == nil {
		return -1
	}
	days := int(now.Sub(*d.LastDonation).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days
}

// NormalizeBloodType canonicalizes a blood type string for table lookups
// ("o+" -> "O+", " bombay " -> "BOMBAY").
func NormalizeBloodType(bt string) string {
	return strings.ToUpper(strings.TrimSpace(bt))
}
