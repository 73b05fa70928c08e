package predict

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink-health/donormatch/internal/config"
	"github.com/lifelink-health/donormatch/internal/geo"
	"github.com/lifelink-health/donormatch/internal/model"
)

func testModelConfig() config.ModelConfig {
	return config.ModelConfig{
		Bias:               0,
		DistanceWeight:     -0.01,
		HistoryWeight:      0.05,
		ResponseRateWeight: 0.5,
		LearningRate:       0.1,
		FallbackDistanceKm: 50,
	}
}

type stubStats struct {
	stats model.OutcomeStats
	err   error
	calls int
}

func (s *stubStats) OutcomeStats(ctx context.Context) (model.OutcomeStats, error) {
	s.calls++
	return s.stats, s.err
}

func TestPredictBounds(t *testing.T) {
	snap := New(testModelConfig()).Current()

	tests := []struct {
		name      string
		distance  float64
		donations int
	}{
		{"close active donor", 1.5, 5},
		{"far inactive donor", 480, 0},
		{"zero everything", 0, 0},
		{"unresolved distance", geo.Unresolved, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := snap.Predict(tt.distance, tt.donations)
			assert.Greater(t, p, 0.0)
			assert.Less(t, p, 1.0)
		})
	}
}

func TestPredictMonotonicInDistanceAndHistory(t *testing.T) {
	snap := New(testModelConfig()).Current()

	// Closer is better.
	assert.Greater(t, snap.Predict(1, 5), snap.Predict(100, 5))
	// More donations is better.
	assert.Greater(t, snap.Predict(10, 8), snap.Predict(10, 1))
	// Any history flips the response-rate proxy from 0.5 to 0.8.
	assert.Greater(t, snap.Predict(10, 1), snap.Predict(10, 0))
}

func TestPredictUnresolvedUsesFallback(t *testing.T) {
	snap := New(testModelConfig()).Current()
	assert.InDelta(t, snap.Predict(50, 2), snap.Predict(geo.Unresolved, 2), 1e-12)
}

func TestRecalibrateNudgesBias(t *testing.T) {
	m := New(testModelConfig())
	src := &stubStats{stats: model.OutcomeStats{Total: 100, Successes: 80}}

	next, err := m.Recalibrate(context.Background(), src)
	require.NoError(t, err)

	// 0 + 0.1 * (0.8 - 0.5)
	assert.InDelta(t, 0.03, next.Bias, 1e-9)
	assert.Equal(t, next, m.Current())

	// A poor success rate nudges the other way.
	src.stats = model.OutcomeStats{Total: 100, Successes: 20}
	next, err = m.Recalibrate(context.Background(), src)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, next.Bias, 1e-9) // 0.03 + 0.1*(0.2-0.5)
}

func TestRecalibrateNoOutcomesIsNeutral(t *testing.T) {
	m := New(testModelConfig())
	src := &stubStats{stats: model.OutcomeStats{}}

	next, err := m.Recalibrate(context.Background(), src)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, next.Bias, 1e-9)
}

func TestRecalibrateBiasClamped(t *testing.T) {
	cfg := testModelConfig()
	cfg.Bias = 2.99
	cfg.LearningRate = 1.0
	m := New(cfg)

	src := &stubStats{stats: model.OutcomeStats{Total: 10, Successes: 10}}
	next, err := m.Recalibrate(context.Background(), src)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, next.Bias, 1e-9)
}

func TestRecalibrateErrorKeepsSnapshot(t *testing.T) {
	m := New(testModelConfig())
	before := m.Current()

	src := &stubStats{err: eris.New("db down")}
	_, err := m.Recalibrate(context.Background(), src)
	require.Error(t, err)
	assert.Same(t, before, m.Current())
}

func TestConcurrentPredictDuringRecalibrate(t *testing.T) {
	m := New(testModelConfig())
	src := &stubStats{stats: model.OutcomeStats{Total: 50, Successes: 30}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := m.Current()
				p := snap.Predict(float64(j%500), j%10)
				assert.Greater(t, p, 0.0)
				assert.Less(t, p, 1.0)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		_, err := m.Recalibrate(context.Background(), src)
		require.NoError(t, err)
	}
	wg.Wait()
}
