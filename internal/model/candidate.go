package model

// Confidence buckets a candidate's predicted acceptance probability.
type Confidence string

const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceLow      Confidence = "low"
)

// ConfidenceFor maps a raw model probability to a reporting bucket.
func ConfidenceFor(p float64) Confidence {
	switch {
	case p > 0.7:
		return ConfidenceHigh
	case p > 0.4:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

// Candidate is a scored donor for a single match request. Candidates are
// transient: they are built, ranked, and returned within one request and
// never persisted as-is.
type Candidate struct {
	DonorID        string `json:"donor_id"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	BloodType      string `json:"blood_type"`
	City           string `json:"city,omitempty"`
	District       string `json:"district,omitempty"`
	State          string `json:"state,omitempty"`
	TotalDonations int    `json:"total_donations"`

	// DistanceKm is nil when neither record nor gazetteer could resolve a
	// location; distance is +Inf internally for ranking purposes.
	DistanceKm *float64 `json:"distance_km"`

	CompatibilityScore float64    `json:"compatibility_score"`
	HeuristicScore     float64    `json:"heuristic_score"`
	Probability        float64    `json:"probability"`
	Confidence         Confidence `json:"confidence"`

	// SuitabilityScore is the rounded 0-100 score for reporting. The exact
	// value is retained for ordering and outcome logging.
	SuitabilityScore      int     `json:"suitability_score"`
	SuitabilityScoreExact float64 `json:"-"`

	// distance mirrors DistanceKm with unresolved mapped to +Inf so sorting
	// never has to branch on nil.
	distance float64
}

// SetDistance records the ranking distance, keeping the reported pointer and
// the internal sort key in sync. Pass +Inf for unresolved.
func (c *Candidate) SetDistance(km float64, resolved bool) {
	c.distance = km
	if resolved {
		v := km
		c.DistanceKm = &v
	} else {
		c.DistanceKm = nil
	}
}

// Distance returns the ranking distance (+Inf when unresolved).
func (c *Candidate) Distance() float64 { return c.distance }

// MatchResponse is the ordered result of a match request.
type MatchResponse struct {
	RequestID  string      `json:"request_id"`
	BloodType  string      `json:"blood_type"`
	Compatible []string    `json:"compatible_types"`
	Candidates []Candidate `json:"candidates"`
}
