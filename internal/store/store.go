// Package store persists donor records and match outcomes.
package store

import (
	"context"

	"github.com/lifelink-health/donormatch/internal/model"
)

// DonorFilter specifies criteria for listing donors.
type DonorFilter struct {
	// BloodTypes restricts results to donors with one of these types.
	// Empty means no restriction.
	BloodTypes []string `json:"blood_types,omitempty"`

	// AvailableOnly drops donors who have marked themselves unavailable.
	AvailableOnly bool `json:"available_only,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for the matching engine.
type Store interface {
	// Donors
	UpsertDonor(ctx context.Context, donor model.Donor) error
	GetDonor(ctx context.Context, donorID string) (*model.Donor, error)
	ListDonors(ctx context.Context, filter DonorFilter) ([]model.Donor, error)
	SetDonorAvailability(ctx context.Context, donorID string, available bool) error

	// Outcomes
	InsertOutcome(ctx context.Context, outcome model.MatchOutcome) error
	UpdateOutcomeStatus(ctx context.Context, outcomeID string, status model.OutcomeStatus, responseTimeSecs *int) error
	OutcomeStats(ctx context.Context) (model.OutcomeStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
