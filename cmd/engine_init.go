package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/lifelink-health/donormatch/internal/matcher"
	"github.com/lifelink-health/donormatch/internal/outcomelog"
	"github.com/lifelink-health/donormatch/internal/predict"
	"github.com/lifelink-health/donormatch/internal/scorer"
	"github.com/lifelink-health/donormatch/internal/store"
)

// engineEnv holds the initialized store, model, outcome queue, and matcher
// shared by the serve/match/recalibrate commands.
type engineEnv struct {
	Store   store.Store
	Model   *predict.Model
	Queue   *outcomelog.Queue
	Matcher *matcher.Matcher
}

// Close drains the outcome queue and releases the store. Order matters: the
// queue writes through the store, so it must drain first.
func (e *engineEnv) Close() {
	if e.Queue != nil {
		e.Queue.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEngine sets up the store, runs migrations, and wires the matcher.
// Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	if err := scorer.ValidateConfig(cfg.Matching); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	mdl := predict.New(cfg.Model)
	queue := outcomelog.NewQueue(st, cfg.OutcomeLog)
	m := matcher.New(st, mdl, queue, cfg.Matching)

	return &engineEnv{Store: st, Model: mdl, Queue: queue, Matcher: m}, nil
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %q", cfg.Store.Driver)
	}
}
