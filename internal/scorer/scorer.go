// Package scorer implements the multi-factor suitability score for donor
// candidates.
package scorer

import (
	"math"
	"time"

	"github.com/lifelink-health/donormatch/internal/compat"
	"github.com/lifelink-health/donormatch/internal/config"
	"github.com/lifelink-health/donormatch/internal/geo"
	"github.com/lifelink-health/donormatch/internal/model"
	"github.com/lifelink-health/donormatch/internal/predict"
)

// Blend of heuristic score and model probability, and the proximity boost
// applied to hyper-local matches.
const (
	heuristicBlend  = 0.9
	predictionBlend = 0.1

	nearBoostKm   = 2.0
	nearBoost     = 1.25
	closeBoostKm  = 5.0
	closeBoost    = 1.10
	maxFinalScore = 100.0
)

// Score computes the full candidate score for one donor. Pure: it reads the
// donor, the request context, and one immutable model snapshot, so callers
// may run it concurrently per candidate.
func Score(d *model.Donor, distanceKm float64, requested string, snap *predict.Snapshot, cfg config.MatchingConfig, now time.Time) model.Candidate {
	compatScore := compat.Score(d.BloodType, requested)

	factors := map[string]float64{
		"distance":      DistanceFactor(distanceKm),
		"compatibility": compatScore / 100,
		"recency":       RecencyFactor(d, now, cfg.RecencyHorizonDays),
		"history":       HistoryFactor(d.TotalDonations, cfg.HistorySaturation),
	}
	weights := map[string]float64{
		"distance":      cfg.DistanceWeight,
		"compatibility": cfg.CompatibilityWeight,
		"recency":       cfg.RecencyWeight,
		"history":       cfg.HistoryWeight,
	}

	var heuristic float64
	for k, f := range factors {
		heuristic += f * weights[k]
	}
	heuristic *= 100

	probability := snap.Predict(distanceKm, d.TotalDonations)

	final := heuristic*heuristicBlend + probability*100*predictionBlend
	switch {
	case distanceKm < nearBoostKm:
		final *= nearBoost
	case distanceKm < closeBoostKm:
		final *= closeBoost
	}
	final = math.Min(final, maxFinalScore)

	c := model.Candidate{
		DonorID:               d.ID,
		Name:                  d.Name,
		Phone:                 d.Phone,
		Email:                 d.Email,
		BloodType:             d.BloodType,
		City:                  d.City,
		District:              d.District,
		State:                 d.State,
		TotalDonations:        d.TotalDonations,
		CompatibilityScore:    compatScore,
		HeuristicScore:        heuristic,
		Probability:           probability,
		Confidence:            model.ConfidenceFor(probability),
		SuitabilityScore:      int(math.Round(final)),
		SuitabilityScoreExact: final,
	}
	c.SetDistance(distanceKm, !geo.IsUnresolved(distanceKm))
	return c
}

// DistanceFactor maps distance in km to a 0-1 factor. Deliberately
// non-linear: hyper-local matches are rewarded far beyond what a linear
// falloff would give.
func DistanceFactor(d float64) float64 {
	switch {
	case geo.IsUnresolved(d):
		return 0
	case d < 2:
		return 0.90 + (1-d/2)*0.10
	case d < 10:
		return 0.70 + (1-(d-2)/8)*0.19
	case d < 30:
		return 0.40 + (1-(d-10)/20)*0.29
	case d < 100:
		return 0.10 + (1-(d-30)/70)*0.29
	case d <= 500:
		return math.Max(0, (1-(d-100)/400)*0.09)
	default:
		return 0
	}
}

// RecencyFactor models elapsed time since the last known donation, scaled
// over the configured horizon. Donors with no recorded donation are fully
// eligible (factor 1). Higher is better.
func RecencyFactor(d *model.Donor, now time.Time, horizonDays int) float64 {
	days := d.DaysSinceLastDonation(now)
	if days < 0 {
		return 1.0
	}
	if horizonDays <= 0 {
		horizonDays = 180
	}
	return math.Min(float64(days)/float64(horizonDays), 1.0)
}

// HistoryFactor rewards a track record of prior donations, saturating at
// the configured count.
func HistoryFactor(totalDonations, saturation int) float64 {
	if saturation <= 0 {
		saturation = 10
	}
	if totalDonations <= 0 {
		return 0
	}
	return math.Min(float64(totalDonations)/float64(saturation), 1.0)
}
