package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelink-health/donormatch/internal/config"
	"github.com/lifelink-health/donormatch/internal/matcher"
	"github.com/lifelink-health/donormatch/internal/model"
	"github.com/lifelink-health/donormatch/internal/outcomelog"
	"github.com/lifelink-health/donormatch/internal/predict"
	"github.com/lifelink-health/donormatch/internal/scorer"
	"github.com/lifelink-health/donormatch/internal/store"
)

func newTestEnv(t *testing.T) *engineEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "donormatch.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))

	mdl := predict.New(config.ModelConfig{
		Bias:               0,
		DistanceWeight:     -0.01,
		HistoryWeight:      0.05,
		ResponseRateWeight: 0.5,
		LearningRate:       0.1,
		FallbackDistanceKm: 50,
	})
	queue := outcomelog.NewQueue(st, config.OutcomeLogConfig{
		QueueSize: 16, MaxAttempts: 3, RetryBackoffMS: 1,
	})
	env := &engineEnv{
		Store:   st,
		Model:   mdl,
		Queue:   queue,
		Matcher: matcher.New(st, mdl, queue, scorer.DefaultMatchingConfig()),
	}
	t.Cleanup(env.Close)
	return env
}

func seedDonor(t *testing.T, env *engineEnv, donor model.Donor) {
	t.Helper()
	require.NoError(t, env.Store.UpsertDonor(context.Background(), donor))
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := newRouter(newTestEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMatchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	lat, lng := 12.9720, 77.5950
	seedDonor(t, env, model.Donor{
		ID: "d1", Name: "Asha", BloodType: "O-",
		Latitude: &lat, Longitude: &lng,
		TotalDonations: 5, Available: true,
	})
	seedDonor(t, env, model.Donor{
		ID: "d2", Name: "Ravi", BloodType: "A+",
		TotalDonations: 1, Available: true,
	})
	h := newRouter(env)

	rec := postJSON(t, h, "/api/v1/matches", model.MatchRequest{
		BloodType: "B+",
		City:      "Bengaluru",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "B+", resp.BloodType)
	assert.NotEmpty(t, resp.RequestID)

	// A+ is not compatible with a B+ recipient; only the O- donor ranks.
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "d1", resp.Candidates[0].DonorID)
	require.NotNil(t, resp.Candidates[0].DistanceKm)
}

func TestMatchEndpointValidation(t *testing.T) {
	h := newRouter(newTestEnv(t))

	rec := postJSON(t, h, "/api/v1/matches", model.MatchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "blood_type")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches", bytes.NewReader([]byte("{not json")))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestUpsertDonorEndpoint(t *testing.T) {
	env := newTestEnv(t)
	h := newRouter(env)

	rec := postJSON(t, h, "/api/v1/donors", model.Donor{
		ID: "d1", Name: "Asha", BloodType: "O-", Available: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := env.Store.GetDonor(context.Background(), "d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Asha", got.Name)

	missing := postJSON(t, h, "/api/v1/donors", model.Donor{ID: "d2"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestRecalibrateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	seedDonor(t, env, model.Donor{ID: "d1", Name: "Asha", BloodType: "O-", Available: true})

	ctx := context.Background()
	require.NoError(t, env.Store.InsertOutcome(ctx, model.MatchOutcome{
		ID: "o1", DonorID: "d1", SuitabilityScore: 80,
	}))
	require.NoError(t, env.Store.UpdateOutcomeStatus(ctx, "o1", model.OutcomeAccepted, nil))

	h := newRouter(env)
	rec := postJSON(t, h, "/api/v1/recalibrate", struct{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap predict.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	// One accepted outcome out of one: bias nudged up by lr * 0.5.
	assert.InDelta(t, 0.05, snap.Bias, 1e-9)
}

func TestModelEndpoint(t *testing.T) {
	h := newRouter(newTestEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/model", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap predict.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.InDelta(t, -0.01, snap.WDistance, 1e-9)
}

func TestUpdateOutcomeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	seedDonor(t, env, model.Donor{ID: "d1", Name: "Asha", BloodType: "O-", Available: true})

	ctx := context.Background()
	require.NoError(t, env.Store.InsertOutcome(ctx, model.MatchOutcome{
		ID: "o1", DonorID: "d1", SuitabilityScore: 80,
	}))

	h := newRouter(env)

	b, _ := json.Marshal(map[string]any{"status": "completed", "response_time_secs": 90})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/outcomes/o1", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stats, err := env.Store.OutcomeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Successes)

	// Bogus status is rejected before touching the store.
	b, _ = json.Marshal(map[string]any{"status": "maybe"})
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/outcomes/o1", bytes.NewReader(b))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown id maps to 404.
	b, _ = json.Marshal(map[string]any{"status": "rejected"})
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/outcomes/missing", bytes.NewReader(b))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
