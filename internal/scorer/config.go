package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/lifelink-health/donormatch/internal/config"
)

// DefaultMatchingConfig returns a config.MatchingConfig with the engine's
// standard weights. Weights sum to 1.0.
func DefaultMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		DistanceWeight:      0.60,
		CompatibilityWeight: 0.20,
		RecencyWeight:       0.10,
		HistoryWeight:       0.10,

		RecencyHorizonDays: 180,
		HistorySaturation:  10,

		MaxLoggedSuggestions: 50,
		ScoreConcurrency:     8,
		FetchTimeoutSecs:     10,
	}
}

// WeightSum returns the sum of the factor weights.
func WeightSum(c config.MatchingConfig) float64 {
	return c.DistanceWeight + c.CompatibilityWeight + c.RecencyWeight + c.HistoryWeight
}

// ValidateConfig checks that a MatchingConfig is internally consistent.
func ValidateConfig(c config.MatchingConfig) error {
	var errs []string

	weights := map[string]float64{
		"distance_weight":      c.DistanceWeight,
		"compatibility_weight": c.CompatibilityWeight,
		"recency_weight":       c.RecencyWeight,
		"history_weight":       c.HistoryWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1.0, got %.3f", sum))
	}

	if c.RecencyHorizonDays < 0 {
		errs = append(errs, "recency_horizon_days must be >= 0")
	}
	if c.HistorySaturation < 0 {
		errs = append(errs, "history_saturation must be >= 0")
	}
	if c.MaxLoggedSuggestions < 0 {
		errs = append(errs, "max_logged_suggestions must be >= 0")
	}
	if c.ScoreConcurrency < 0 {
		errs = append(errs, "score_concurrency must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
