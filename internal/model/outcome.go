package model

import "time"

// OutcomeStatus tracks the real-world result of a suggested pairing.
type OutcomeStatus string

const (
	OutcomePending   OutcomeStatus = "pending"
	OutcomeAccepted  OutcomeStatus = "accepted"
	OutcomeRejected  OutcomeStatus = "rejected"
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeTimedOut  OutcomeStatus = "timed_out"
)

// Success reports whether the outcome counts as a successful suggestion for
// model recalibration.
func (s OutcomeStatus) Success() bool {
	return s == OutcomeAccepted || s == OutcomeCompleted
}

// MatchOutcome is the persisted record of a suggested donor-seeker pairing.
// Rows are inserted as pending by the engine and mutated later by external
// processes once a real-world result is known.
type MatchOutcome struct {
	ID               string        `json:"id"`
	DonorID          string        `json:"donor_id"`
	SeekerID         *string       `json:"seeker_id,omitempty"`
	SuggestedAt      time.Time     `json:"suggested_at"`
	Status           OutcomeStatus `json:"status"`
	ResponseTimeSecs *int          `json:"response_time_secs,omitempty"`
	SuitabilityScore float64       `json:"suitability_score"`
	DistanceKm       *float64      `json:"distance_km,omitempty"`
}

// OutcomeStats aggregates historical outcomes for recalibration.
type OutcomeStats struct {
	Total     int64 `json:"total"`
	Successes int64 `json:"successes"`
}

// SuccessRate returns successes/total, or 0.5 (neutral) when no outcomes
// have been resolved yet.
func (s OutcomeStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0.5
	}
	return float64(s.Successes) / float64(s.Total)
}
