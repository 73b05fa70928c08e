// Package matcher orchestrates a match request end to end: compatibility
// filtering, distance resolution, parallel scoring, ranking, and outcome
// logging.
package matcher

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lifelink-health/donormatch/internal/compat"
	"github.com/lifelink-health/donormatch/internal/config"
	"github.com/lifelink-health/donormatch/internal/geo"
	"github.com/lifelink-health/donormatch/internal/model"
	"github.com/lifelink-health/donormatch/internal/predict"
	"github.com/lifelink-health/donormatch/internal/scorer"
	"github.com/lifelink-health/donormatch/internal/store"
)

// DonorSource supplies candidate donors. Satisfied by store.Store.
type DonorSource interface {
	ListDonors(ctx context.Context, filter store.DonorFilter) ([]model.Donor, error)
}

// OutcomeSink accepts fire-and-forget outcome records. Satisfied by
// outcomelog.Queue.
type OutcomeSink interface {
	Enqueue(outcome model.MatchOutcome)
}

// Matcher runs match requests against a donor source.
type Matcher struct {
	donors DonorSource
	model  *predict.Model
	sink   OutcomeSink
	cfg    config.MatchingConfig

	now func() time.Time
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// New builds a Matcher. sink may be nil to disable outcome logging.
func New(donors DonorSource, mdl *predict.Model, sink OutcomeSink, cfg config.MatchingConfig, opts ...Option) *Matcher {
	m := &Matcher{
		donors: donors,
		model:  mdl,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindMatches returns the ranked candidate list for a request. Candidates
// are ordered by ascending distance with unresolved locations last; ties
// break on exact score, then donor id, so identical inputs always produce
// identical output.
func (m *Matcher) FindMatches(ctx context.Context, req model.MatchRequest) (*model.MatchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requested := model.NormalizeBloodType(req.BloodType)
	compatible := compat.DonorTypesFor(requested)

	donors, err := m.fetchDonors(ctx, compatible)
	if err != nil {
		return nil, err
	}

	seeker := m.resolveSeeker(req)
	snap := m.model.Current()
	now := m.now()

	candidates := m.scoreAll(ctx, donors, seeker, requested, snap, now)
	rank(candidates)

	resp := &model.MatchResponse{
		RequestID:  uuid.New().String(),
		BloodType:  requested,
		Compatible: compatible,
		Candidates: candidates,
	}
	m.logSuggestions(req, resp, now)

	zap.L().Info("match request served",
		zap.String("request_id", resp.RequestID),
		zap.String("blood_type", requested),
		zap.Int("candidates", len(candidates)),
	)
	return resp, nil
}

func (m *Matcher) fetchDonors(ctx context.Context, bloodTypes []string) ([]model.Donor, error) {
	timeout := time.Duration(m.cfg.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	donors, err := m.donors.ListDonors(fctx, store.DonorFilter{
		BloodTypes:    bloodTypes,
		AvailableOnly: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "matcher: list donors")
	}
	return donors, nil
}

// resolveSeeker determines the seeker's coordinates: explicit lat/lng wins,
// then the gazetteer, then nil (every distance unresolved).
func (m *Matcher) resolveSeeker(req model.MatchRequest) *geo.Coord {
	if req.HasCoordinates() {
		return &geo.Coord{Lat: *req.Latitude, Lng: *req.Longitude}
	}
	if c, ok := geo.Resolve(req.City, req.District); ok {
		return &c
	}
	return nil
}

// scoreAll scores donors in parallel with bounded concurrency. A panic while
// scoring one donor drops that donor only.
func (m *Matcher) scoreAll(ctx context.Context, donors []model.Donor, seeker *geo.Coord, requested string, snap *predict.Snapshot, now time.Time) []model.Candidate {
	limit := m.cfg.ScoreConcurrency
	if limit <= 0 {
		limit = 8
	}

	results := make([]*model.Candidate, len(donors))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range donors {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("candidate scoring panicked",
						zap.String("donor_id", donors[i].ID),
						zap.Any("panic", r),
					)
				}
			}()

			d := &donors[i]
			c := scorer.Score(d, m.donorDistance(d, seeker), requested, snap, m.cfg, now)
			results[i] = &c
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	candidates := make([]model.Candidate, 0, len(results))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	return candidates
}

func (m *Matcher) donorDistance(d *model.Donor, seeker *geo.Coord) float64 {
	var donorCoord *geo.Coord
	if d.HasCoordinates() {
		donorCoord = &geo.Coord{Lat: *d.Latitude, Lng: *d.Longitude}
	} else if c, ok := geo.Resolve(d.City, d.District); ok {
		donorCoord = &c
	}
	return geo.DistanceBetween(seeker, donorCoord)
}

// rank sorts candidates by ascending distance, unresolved last. Distance
// ties fall back to exact score descending, then donor id.
func rank(candidates []model.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := candidates[i].Distance(), candidates[j].Distance()
		if di != dj {
			return di < dj
		}
		si, sj := candidates[i].SuitabilityScoreExact, candidates[j].SuitabilityScoreExact
		if si != sj {
			return si > sj
		}
		return candidates[i].DonorID < candidates[j].DonorID
	})
}

// logSuggestions enqueues pending outcome rows for the top candidates. Best
// effort: the queue absorbs failures and never blocks the response.
func (m *Matcher) logSuggestions(req model.MatchRequest, resp *model.MatchResponse, now time.Time) {
	if m.sink == nil {
		return
	}

	n := len(resp.Candidates)
	if capN := m.cfg.MaxLoggedSuggestions; capN > 0 && n > capN {
		n = capN
	}

	var seekerID *string
	if req.SeekerID != "" {
		id := req.SeekerID
		seekerID = &id
	}

	for _, c := range resp.Candidates[:n] {
		outcome := model.MatchOutcome{
			ID:               uuid.New().String(),
			DonorID:          c.DonorID,
			SeekerID:         seekerID,
			SuggestedAt:      now,
			Status:           model.OutcomePending,
			SuitabilityScore: c.SuitabilityScoreExact,
		}
		if c.DistanceKm != nil {
			km := *c.DistanceKm
			outcome.DistanceKm = &km
		}
		m.sink.Enqueue(outcome)
	}
}
