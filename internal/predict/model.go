// Package predict implements the predictive refinement model: a fixed-weight
// logistic unit whose bias is nudged by historical match outcomes. This is a
// heuristic drift, not gradient-based training.
package predict

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lifelink-health/donormatch/internal/config"
	"github.com/lifelink-health/donormatch/internal/geo"
	"github.com/lifelink-health/donormatch/internal/model"
)

// biasBound clamps the recalibrated bias so repeated nudges cannot push the
// sigmoid into a saturated regime.
const biasBound = 3.0

// Snapshot holds one immutable set of model parameters. Scoring calls read a
// snapshot and never observe a partial update.
type Snapshot struct {
	Bias               float64 `json:"bias"`
	WDistance          float64 `json:"w_distance"`
	WHistory           float64 `json:"w_history"`
	WResponseRate      float64 `json:"w_response_rate"`
	FallbackDistanceKm float64 `json:"fallback_distance_km"`
}

// Predict returns the acceptance probability for a candidate at the given
// distance with the given donation history. Unresolved distances use the
// fixed fallback so the sigmoid stays well-defined.
func (s *Snapshot) Predict(distanceKm float64, totalDonations int) float64 {
	d := distanceKm
	if geo.IsUnresolved(d) {
		d = s.FallbackDistanceKm
	}

	// Response rate is a two-valued proxy, not a measured rate: donors with
	// any recorded donation are assumed more responsive.
	responseRate := 0.5
	if totalDonations > 0 {
		responseRate = 0.8
	}

	z := s.Bias +
		s.WDistance*d +
		s.WHistory*float64(totalDonations) +
		s.WResponseRate*responseRate
	return sigmoid(z)
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

// StatsSource supplies aggregate outcome history for recalibration.
type StatsSource interface {
	OutcomeStats(ctx context.Context) (model.OutcomeStats, error)
}

// Model owns the current snapshot and serializes recalibration. Readers call
// Current and use the returned snapshot for the whole request.
type Model struct {
	current      atomic.Pointer[Snapshot]
	learningRate float64

	// recalMu serializes Recalibrate against itself; it never blocks Predict.
	recalMu sync.Mutex
}

// New builds a Model from the configured initial parameters.
func New(cfg config.ModelConfig) *Model {
	m := &Model{learningRate: cfg.LearningRate}
	m.current.Store(&Snapshot{
		Bias:               cfg.Bias,
		WDistance:          cfg.DistanceWeight,
		WHistory:           cfg.HistoryWeight,
		WResponseRate:      cfg.ResponseRateWeight,
		FallbackDistanceKm: cfg.FallbackDistanceKm,
	})
	return m
}

// Current returns the latest published snapshot.
func (m *Model) Current() *Snapshot {
	return m.current.Load()
}

// Recalibrate reads the aggregate outcome success rate and publishes a new
// snapshot with the bias nudged toward (rate - 0.5) scaled by the learning
// rate. Runs out-of-band, never in the scoring request path.
func (m *Model) Recalibrate(ctx context.Context, stats StatsSource) (*Snapshot, error) {
	m.recalMu.Lock()
	defer m.recalMu.Unlock()

	agg, err := stats.OutcomeStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "predict: read outcome stats")
	}

	old := m.current.Load()
	next := *old
	next.Bias = clamp(old.Bias+m.learningRate*(agg.SuccessRate()-0.5), -biasBound, biasBound)
	m.current.Store(&next)

	zap.L().Info("model recalibrated",
		zap.Int64("outcomes", agg.Total),
		zap.Float64("success_rate", agg.SuccessRate()),
		zap.Float64("old_bias", old.Bias),
		zap.Float64("new_bias", next.Bias),
	)
	return &next, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
