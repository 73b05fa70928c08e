package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/lifelink-health/donormatch/internal/db"
	"github.com/lifelink-health/donormatch/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"get_donor":      `SELECT id, name, phone, email, blood_type, latitude, longitude, city, district, state, last_donation, total_donations, available FROM donors WHERE id = $1`,
	"insert_outcome": `INSERT INTO match_outcomes (id, donor_id, seeker_id, suggested_at, status, response_time_secs, suitability_score, distance_km) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"outcome_stats":  `SELECT COUNT(*), COUNT(*) FILTER (WHERE status IN ('accepted', 'completed')) FROM match_outcomes WHERE status <> 'pending'`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS donors (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name            TEXT NOT NULL,
	phone           TEXT,
	email           TEXT,
	blood_type      TEXT NOT NULL,
	latitude        DOUBLE PRECISION,
	longitude       DOUBLE PRECISION,
	city            TEXT,
	district        TEXT,
	state           TEXT,
	last_donation   TIMESTAMPTZ,
	total_donations INTEGER NOT NULL DEFAULT 0,
	available       BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_donors_blood_type ON donors(blood_type);
CREATE INDEX IF NOT EXISTS idx_donors_available ON donors(available);
CREATE INDEX IF NOT EXISTS idx_donors_type_available ON donors(blood_type, available);

CREATE TABLE IF NOT EXISTS match_outcomes (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	donor_id           TEXT NOT NULL REFERENCES donors(id),
	seeker_id          TEXT,
	suggested_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	status             TEXT NOT NULL DEFAULT 'pending',
	response_time_secs INTEGER,
	suitability_score  DOUBLE PRECISION NOT NULL,
	distance_km        DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_outcomes_donor_id ON match_outcomes(donor_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_status ON match_outcomes(status);
CREATE INDEX IF NOT EXISTS idx_outcomes_suggested_at ON match_outcomes(suggested_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertDonor(ctx context.Context, donor model.Donor) error {
	if donor.ID == "" {
		donor.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO donors (id, name, phone, email, blood_type, latitude, longitude, city, district, state, last_donation, total_donations, available, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   name = $2, phone = $3, email = $4, blood_type = $5,
		   latitude = $6, longitude = $7, city = $8, district = $9, state = $10,
		   last_donation = $11, total_donations = $12, available = $13, updated_at = $14`,
		donor.ID, donor.Name, donor.Phone, donor.Email,
		model.NormalizeBloodType(donor.BloodType),
		donor.Latitude, donor.Longitude, donor.City, donor.District, donor.State,
		donor.LastDonation, donor.TotalDonations, donor.Available, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert donor %s", donor.ID)
}

func (s *PostgresStore) GetDonor(ctx context.Context, donorID string) (*model.Donor, error) {
	var d model.Donor
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, phone, email, blood_type, latitude, longitude, city, district, state, last_donation, total_donations, available
		 FROM donors WHERE id = $1`,
		donorID,
	).Scan(&d.ID, &d.Name, &d.Phone, &d.Email, &d.BloodType,
		&d.Latitude, &d.Longitude, &d.City, &d.District, &d.State,
		&d.LastDonation, &d.TotalDonations, &d.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get donor %s", donorID)
	}
	return &d, nil
}

func (s *PostgresStore) ListDonors(ctx context.Context, filter DonorFilter) ([]model.Donor, error) {
	query := `SELECT id, name, phone, email, blood_type, latitude, longitude, city, district, state, last_donation, total_donations, available
	          FROM donors WHERE true`
	args := []any{}
	argIdx := 1

	if len(filter.BloodTypes) > 0 {
		query += fmt.Sprintf(` AND blood_type = ANY($%d)`, argIdx)
		args = append(args, filter.BloodTypes)
		argIdx++
	}
	if filter.AvailableOnly {
		query += ` AND available`
	}
	query += ` ORDER BY id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list donors")
	}
	defer rows.Close()

	var donors []model.Donor
	for rows.Next() {
		var d model.Donor
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.Email, &d.BloodType,
			&d.Latitude, &d.Longitude, &d.City, &d.District, &d.State,
			&d.LastDonation, &d.TotalDonations, &d.Available); err != nil {
			return nil, eris.Wrap(err, "postgres: scan donor")
		}
		donors = append(donors, d)
	}
	return donors, eris.Wrap(rows.Err(), "postgres: list donors iterate")
}

func (s *PostgresStore) SetDonorAvailability(ctx context.Context, donorID string, available bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE donors SET available = $1, updated_at = $2 WHERE id = $3`,
		available, time.Now().UTC(), donorID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set donor availability %s", donorID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("donor not found: %s", donorID)
	}
	return nil
}

func (s *PostgresStore) InsertOutcome(ctx context.Context, outcome model.MatchOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.New().String()
	}
	if outcome.SuggestedAt.IsZero() {
		outcome.SuggestedAt = time.Now().UTC()
	}
	if outcome.Status == "" {
		outcome.Status = model.OutcomePending
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_outcomes (id, donor_id, seeker_id, suggested_at, status, response_time_secs, suitability_score, distance_km)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		outcome.ID, outcome.DonorID, outcome.SeekerID, outcome.SuggestedAt,
		string(outcome.Status), outcome.ResponseTimeSecs,
		outcome.SuitabilityScore, outcome.DistanceKm,
	)
	return eris.Wrapf(err, "postgres: insert outcome for donor %s", outcome.DonorID)
}

func (s *PostgresStore) UpdateOutcomeStatus(ctx context.Context, outcomeID string, status model.OutcomeStatus, responseTimeSecs *int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE match_outcomes SET status = $1, response_time_secs = $2 WHERE id = $3`,
		string(status), responseTimeSecs, outcomeID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update outcome %s", outcomeID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("outcome not found: %s", outcomeID)
	}
	return nil
}

// OutcomeStats counts resolved outcomes only. Pending rows say nothing about
// whether the suggestion worked and would dilute the success rate.
func (s *PostgresStore) OutcomeStats(ctx context.Context) (model.OutcomeStats, error) {
	var stats model.OutcomeStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status IN ('accepted', 'completed'))
		 FROM match_outcomes WHERE status <> 'pending'`,
	).Scan(&stats.Total, &stats.Successes)
	if err != nil {
		return model.OutcomeStats{}, eris.Wrap(err, "postgres: outcome stats")
	}
	return stats, nil
}
