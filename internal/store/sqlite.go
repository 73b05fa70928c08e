package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lifelink-health/donormatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS donors (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	phone           TEXT,
	email           TEXT,
	blood_type      TEXT NOT NULL,
	latitude        REAL,
	longitude       REAL,
	city            TEXT,
	district        TEXT,
	state           TEXT,
	last_donation   DATETIME,
	total_donations INTEGER NOT NULL DEFAULT 0,
	available       INTEGER NOT NULL DEFAULT 1,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_donors_blood_type ON donors(blood_type);
CREATE INDEX IF NOT EXISTS idx_donors_available ON donors(available);

CREATE TABLE IF NOT EXISTS match_outcomes (
	id                 TEXT PRIMARY KEY,
	donor_id           TEXT NOT NULL REFERENCES donors(id),
	seeker_id          TEXT,
	suggested_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	status             TEXT NOT NULL DEFAULT 'pending',
	response_time_secs INTEGER,
	suitability_score  REAL NOT NULL,
	distance_km        REAL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_donor_id ON match_outcomes(donor_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_status ON match_outcomes(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDonor(ctx context.Context, donor model.Donor) error {
	if donor.ID == "" {
		donor.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO donors (id, name, phone, email, blood_type, latitude, longitude, city, district, state, last_donation, total_donations, available, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, phone = excluded.phone, email = excluded.email,
		   blood_type = excluded.blood_type, latitude = excluded.latitude,
		   longitude = excluded.longitude, city = excluded.city,
		   district = excluded.district, state = excluded.state,
		   last_donation = excluded.last_donation,
		   total_donations = excluded.total_donations,
		   available = excluded.available, updated_at = excluded.updated_at`,
		donor.ID, donor.Name, donor.Phone, donor.Email,
		model.NormalizeBloodType(donor.BloodType),
		donor.Latitude, donor.Longitude, donor.City, donor.District, donor.State,
		donor.LastDonation, donor.TotalDonations, donor.Available, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert donor %s", donor.ID)
}

func (s *SQLiteStore) GetDonor(ctx context.Context, donorID string) (*model.Donor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, email, blood_type, latitude, longitude, city, district, state, last_donation, total_donations, available
		 FROM donors WHERE id = ?`,
		donorID,
	)

	d, err := scanDonor(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get donor %s", donorID)
	}
	return d, nil
}

func (s *SQLiteStore) ListDonors(ctx context.Context, filter DonorFilter) ([]model.Donor, error) {
	query := `SELECT id, name, phone, email, blood_type, latitude, longitude, city, district, state, last_donation, total_donations, available
	          FROM donors WHERE 1=1`
	var args []any

	if len(filter.BloodTypes) > 0 {
		query += ` AND blood_type IN (?` + strings.Repeat(", ?", len(filter.BloodTypes)-1) + `)`
		for _, bt := range filter.BloodTypes {
			args = append(args, bt)
		}
	}
	if filter.AvailableOnly {
		query += ` AND available = 1`
	}
	query += ` ORDER BY id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list donors")
	}
	defer rows.Close()

	var donors []model.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan donor")
		}
		donors = append(donors, *d)
	}
	return donors, eris.Wrap(rows.Err(), "sqlite: list donors iterate")
}

func (s *SQLiteStore) SetDonorAvailability(ctx context.Context, donorID string, available bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE donors SET available = ?, updated_at = ? WHERE id = ?`,
		available, time.Now().UTC(), donorID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set donor availability %s", donorID)
	}
	return checkRowsAffected(res, "donor", donorID)
}

func (s *SQLiteStore) InsertOutcome(ctx context.Context, outcome model.MatchOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.New().String()
	}
	if outcome.SuggestedAt.IsZero() {
		outcome.SuggestedAt = time.Now().UTC()
	}
	if outcome.Status == "" {
		outcome.Status = model.OutcomePending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_outcomes (id, donor_id, seeker_id, suggested_at, status, response_time_secs, suitability_score, distance_km)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.ID, outcome.DonorID, outcome.SeekerID, outcome.SuggestedAt,
		string(outcome.Status), outcome.ResponseTimeSecs,
		outcome.SuitabilityScore, outcome.DistanceKm,
	)
	return eris.Wrapf(err, "sqlite: insert outcome for donor %s", outcome.DonorID)
}

func (s *SQLiteStore) UpdateOutcomeStatus(ctx context.Context, outcomeID string, status model.OutcomeStatus, responseTimeSecs *int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE match_outcomes SET status = ?, response_time_secs = ? WHERE id = ?`,
		string(status), responseTimeSecs, outcomeID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update outcome %s", outcomeID)
	}
	return checkRowsAffected(res, "outcome", outcomeID)
}

func (s *SQLiteStore) OutcomeStats(ctx context.Context) (model.OutcomeStats, error) {
	var stats model.OutcomeStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status IN ('accepted', 'completed') THEN 1 ELSE 0 END), 0)
		 FROM match_outcomes WHERE status <> 'pending'`,
	).Scan(&stats.Total, &stats.Successes)
	if err != nil {
		return model.OutcomeStats{}, eris.Wrap(err, "sqlite: outcome stats")
	}
	return stats, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*model.Donor, error) {
	var d model.Donor
	var phone, email, city, district, state sql.NullString
	var lat, lng sql.NullFloat64
	var lastDonation sql.NullTime

	err := row.Scan(&d.ID, &d.Name, &phone, &email, &d.BloodType,
		&lat, &lng, &city, &district, &state,
		&lastDonation, &d.TotalDonations, &d.Available)
	if err != nil {
		return nil, err
	}

	d.Phone = phone.String
	d.Email = email.String
	d.City = city.String
	d.District = district.String
	d.State = state.String
	if lat.Valid {
		d.Latitude = &lat.Float64
	}
	if lng.Valid {
		d.Longitude = &lng.Float64
	}
	if lastDonation.Valid {
		t := lastDonation.Time
		d.LastDonation = &t
	}
	return &d, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", entity)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
