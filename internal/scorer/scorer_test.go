package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink-health/donormatch/internal/config"
	"github.com/lifelink-health/donormatch/internal/geo"
	"github.com/lifelink-health/donormatch/internal/model"
	"github.com/lifelink-health/donormatch/internal/predict"
)

func testSnapshot() *predict.Snapshot {
	return predict.New(config.ModelConfig{
		Bias:               0,
		DistanceWeight:     -0.01,
		HistoryWeight:      0.05,
		ResponseRateWeight: 0.5,
		LearningRate:       0.1,
		FallbackDistanceKm: 50,
	}).Current()
}

func TestDistanceFactorBands(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"at doorstep", 0, 1.0},
		{"hyper local", 1.5, 0.925},
		{"same neighbourhood", 6, 0.795},
		{"same city", 20, 0.545},
		{"same region", 65, 0.245},
		{"long haul", 300, 0.045},
		{"band edge", 500, 0.0},
		{"beyond cutoff", 501, 0.0},
		{"unresolved", geo.Unresolved, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceFactor(tt.distance), 1e-9)
		})
	}
}

func TestDistanceFactorMonotoneNonIncreasing(t *testing.T) {
	prev := DistanceFactor(0)
	for d := 0.5; d <= 520; d += 0.5 {
		cur := DistanceFactor(d)
		// Band boundaries introduce a small step; anything larger than the
		// documented rounding tolerance is a regression.
		assert.LessOrEqual(t, cur, prev+0.015, "factor rose at %.1f km", d)
		prev = cur
	}
}

func TestDistanceFactorBoundaryContinuity(t *testing.T) {
	for _, edge := range []float64{2, 10, 30, 100} {
		below := DistanceFactor(edge - 1e-6)
		above := DistanceFactor(edge)
		assert.InDelta(t, below, above, 0.011, "step too large at %.0f km", edge)
	}
}

func TestRecencyFactor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ago := func(days int) *time.Time {
		ts := now.AddDate(0, 0, -days)
		return &ts
	}

	tests := []struct {
		name  string
		donor model.Donor
		want  float64
	}{
		{"never donated", model.Donor{}, 1.0},
		{"donated today", model.Donor{LastDonation: ago(0)}, 0.0},
		{"ninety days", model.Donor{LastDonation: ago(90)}, 0.5},
		{"at horizon", model.Donor{LastDonation: ago(180)}, 1.0},
		{"past horizon", model.Donor{LastDonation: ago(400)}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RecencyFactor(&tt.donor, now, 180), 1e-9)
		})
	}
}

func TestHistoryFactor(t *testing.T) {
	assert.Equal(t, 0.0, HistoryFactor(0, 10))
	assert.InDelta(t, 0.5, HistoryFactor(5, 10), 1e-9)
	assert.Equal(t, 1.0, HistoryFactor(10, 10))
	assert.Equal(t, 1.0, HistoryFactor(25, 10))
	assert.Equal(t, 0.0, HistoryFactor(-1, 10))
}

func TestScoreCompatibleNearbyActiveDonor(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -200)
	donor := &model.Donor{
		ID:             "d1",
		Name:           "Asha",
		BloodType:      "O-",
		LastDonation:   &last,
		TotalDonations: 5,
		Available:      true,
	}

	c := Score(donor, 1.5, "AB+", testSnapshot(), DefaultMatchingConfig(), now)

	assert.InDelta(t, 86.5, c.HeuristicScore, 1e-9)
	assert.InDelta(t, 0.6536, c.Probability, 1e-3)
	assert.Equal(t, model.ConfidenceModerate, c.Confidence)
	assert.Equal(t, 80.0, c.CompatibilityScore)

	// Pre-boost blend lands at ~84.4; the hyper-local boost pushes it past
	// the ceiling and it clamps.
	assert.Equal(t, 100, c.SuitabilityScore)
	assert.Equal(t, 100.0, c.SuitabilityScoreExact)
	assert.Greater(t, c.SuitabilityScore, 85)

	require.NotNil(t, c.DistanceKm)
	assert.InDelta(t, 1.5, *c.DistanceKm, 1e-9)
}

func TestScoreExactMatchUnresolvedNewDonor(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	donor := &model.Donor{
		ID:        "d2",
		Name:      "Ravi",
		BloodType: "B+",
		Available: true,
	}

	c := Score(donor, geo.Unresolved, "B+", testSnapshot(), DefaultMatchingConfig(), now)

	assert.InDelta(t, 30.0, c.HeuristicScore, 1e-9)
	assert.InDelta(t, 0.4378, c.Probability, 1e-3)
	assert.Equal(t, model.ConfidenceModerate, c.Confidence)
	assert.Equal(t, 100.0, c.CompatibilityScore)

	// No proximity boost without a resolved distance.
	assert.InDelta(t, 31.4, c.SuitabilityScoreExact, 0.1)
	assert.Equal(t, 31, c.SuitabilityScore)

	assert.Nil(t, c.DistanceKm)
	assert.True(t, geo.IsUnresolved(c.Distance()))
}

func TestScoreProximityBoostTiers(t *testing.T) {
	now := time.Now()
	donor := &model.Donor{ID: "d3", BloodType: "A+", TotalDonations: 3}
	cfg := DefaultMatchingConfig()
	snap := testSnapshot()

	near := Score(donor, 1.0, "A+", snap, cfg, now)
	close := Score(donor, 3.0, "A+", snap, cfg, now)
	mid := Score(donor, 8.0, "A+", snap, cfg, now)

	assert.Greater(t, near.SuitabilityScoreExact, close.SuitabilityScoreExact)
	assert.Greater(t, close.SuitabilityScoreExact, mid.SuitabilityScoreExact)
}

func TestScoreAlwaysWithinRange(t *testing.T) {
	now := time.Now()
	cfg := DefaultMatchingConfig()
	snap := testSnapshot()

	distances := []float64{0, 0.1, 1.9, 2, 5, 9.9, 10, 29, 30, 99, 100, 499, 500, 501, 2000, geo.Unresolved}
	donations := []int{0, 1, 5, 10, 100}

	for _, d := range distances {
		for _, n := range donations {
			donor := &model.Donor{ID: "dx", BloodType: "O+", TotalDonations: n}
			c := Score(donor, d, "O+", snap, cfg, now)
			assert.GreaterOrEqual(t, c.SuitabilityScore, 0)
			assert.LessOrEqual(t, c.SuitabilityScore, 100)
			assert.GreaterOrEqual(t, c.SuitabilityScoreExact, 0.0)
			assert.LessOrEqual(t, c.SuitabilityScoreExact, 100.0)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultMatchingConfig()))

	bad := DefaultMatchingConfig()
	bad.DistanceWeight = 0.9
	err := ValidateConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")

	neg := DefaultMatchingConfig()
	neg.RecencyWeight = -0.1
	assert.Error(t, ValidateConfig(neg))
}

func TestWeightSum(t *testing.T) {
	assert.InDelta(t, 1.0, WeightSum(DefaultMatchingConfig()), 1e-9)
}
