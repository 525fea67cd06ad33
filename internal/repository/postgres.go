package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/workforce"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS candidates (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL DEFAULT '',
		role     TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS candidate_skills (
		candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		ordinal      INTEGER NOT NULL,
		name         TEXT NOT NULL,
		level        SMALLINT NOT NULL CHECK (level BETWEEN 1 AND 5),
		PRIMARY KEY (candidate_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS candidate_certifications (
		candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		ordinal      INTEGER NOT NULL,
		name         TEXT NOT NULL,
		issuer       TEXT NOT NULL DEFAULT '',
		expires_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (candidate_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS skill_demand (
		skill_key  TEXT PRIMARY KEY,
		skill      TEXT NOT NULL,
		demand     INTEGER NOT NULL CHECK (demand >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS report_snapshots (
		id         UUID PRIMARY KEY,
		request_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		report     JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_report_snapshots_request ON report_snapshots(request_id, created_at);
`

// PostgresStore is the shared backend for teams running the CLI against one
// database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and runs migrations.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", workforce.ErrInvalidInput)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ReplaceCandidates swaps the stored pool for candidates in one transaction.
func (s *PostgresStore) ReplaceCandidates(ctx context.Context, candidates []workforce.Candidate) error {
	if err := workforce.ValidateCandidates(candidates); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM candidates`); err != nil {
		return fmt.Errorf("failed to clear candidates: %w", err)
	}

	var people, skills, certs [][]any
	for pos, c := range candidates {
		people = append(people, []any{c.ID, c.Name, c.Role, pos})
		for i, skill := range c.Skills {
			skills = append(skills, []any{c.ID, i, skill.Name, int16(skill.Level)})
		}
		for i, cert := range c.Certifications {
			certs = append(certs, []any{c.ID, i, cert.Name, cert.Issuer, cert.ExpiresAt.UTC()})
		}
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"candidates", []string{"id", "name", "role", "position"}, people},
		{"candidate_skills", []string{"candidate_id", "ordinal", "name", "level"}, skills},
		{"candidate_certifications", []string{"candidate_id", "ordinal", "name", "issuer", "expires_at"}, certs},
	}
	for _, cp := range copies {
		if len(cp.rows) == 0 {
			continue
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{cp.table}, cp.columns, pgx.CopyFromRows(cp.rows)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", cp.table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit candidates: %w", err)
	}
	return nil
}

// Candidates returns the stored pool in import order.
func (s *PostgresStore) Candidates(ctx context.Context) ([]workforce.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, role FROM candidates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}

	var candidates []workforce.Candidate
	index := make(map[string]int)
	for rows.Next() {
		var c workforce.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Role); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		index[c.ID] = len(candidates)
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	skillRows, err := s.pool.Query(ctx,
		`SELECT candidate_id, name, level FROM candidate_skills ORDER BY candidate_id, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}
	defer skillRows.Close()
	for skillRows.Next() {
		var (
			id    string
			skill workforce.Skill
			level int16
		)
		if err := skillRows.Scan(&id, &skill.Name, &level); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skill.Level = workforce.Level(level)
		if i, ok := index[id]; ok {
			candidates[i].Skills = append(candidates[i].Skills, skill)
		}
	}
	if err := skillRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read skills: %w", err)
	}

	certRows, err := s.pool.Query(ctx,
		`SELECT candidate_id, name, issuer, expires_at FROM candidate_certifications ORDER BY candidate_id, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("failed to query certifications: %w", err)
	}
	defer certRows.Close()
	for certRows.Next() {
		var (
			id   string
			cert workforce.Certification
		)
		if err := certRows.Scan(&id, &cert.Name, &cert.Issuer, &cert.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan certification: %w", err)
		}
		cert.ExpiresAt = cert.ExpiresAt.UTC()
		if i, ok := index[id]; ok {
			candidates[i].Certifications = append(candidates[i].Certifications, cert)
		}
	}
	if err := certRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read certifications: %w", err)
	}

	return candidates, nil
}

// SetDemand stores the baseline demand for skill, replacing any previous value.
func (s *PostgresStore) SetDemand(ctx context.Context, skill string, demand int) error {
	key := workforce.SkillKey(skill)
	if key == "" || demand < 0 {
		return fmt.Errorf("%w: bad demand %q=%d", workforce.ErrInvalidInput, skill, demand)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO skill_demand (skill_key, skill, demand)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (skill_key) DO UPDATE SET skill = $2, demand = $3, updated_at = NOW()`,
		key, strings.TrimSpace(skill), demand,
	)
	if err != nil {
		return fmt.Errorf("failed to set demand %s: %w", skill, err)
	}
	return nil
}

func (s *PostgresStore) BaselineDemand(ctx context.Context, skill string) (int, bool, error) {
	var demand int
	err := s.pool.QueryRow(ctx,
		`SELECT demand FROM skill_demand WHERE skill_key = $1`, workforce.SkillKey(skill),
	).Scan(&demand)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get demand %s: %w", skill, err)
	}
	return demand, true, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}

	body, err := json.Marshal(snapshot.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO report_snapshots (id, request_id, created_at, report) VALUES ($1, $2, $3, $4)`,
		snapshot.ID, snapshot.RequestID, snapshot.CreatedAt, body,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// Snapshots lists stored snapshots oldest first. An empty requestID lists all.
func (s *PostgresStore) Snapshots(ctx context.Context, requestID string) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, request_id, created_at, report FROM report_snapshots
		 WHERE $1 = '' OR request_id = $1
		 ORDER BY created_at, id`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap Snapshot
			body []byte
		)
		if err := rows.Scan(&snap.ID, &snap.RequestID, &snap.CreatedAt, &body); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Report = &readiness.Report{}
		if err := json.Unmarshal(body, snap.Report); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
