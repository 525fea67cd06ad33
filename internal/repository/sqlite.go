package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/workforce"
)

const sqliteSchema = `
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
		level        INTEGER NOT NULL,
		PRIMARY KEY (candidate_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS candidate_certifications (
		candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		ordinal      INTEGER NOT NULL,
		name         TEXT NOT NULL,
		issuer       TEXT NOT NULL DEFAULT '',
		expires_at   TEXT NOT NULL,
		PRIMARY KEY (candidate_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS skill_demand (
		skill_key  TEXT PRIMARY KEY,
		skill      TEXT NOT NULL,
		demand     INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS report_snapshots (
		id         TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		report     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_report_snapshots_request ON report_snapshots(request_id, created_at);
`

// SQLiteStore keeps the pool, demand and snapshots in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", workforce.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceCandidates swaps the stored pool for candidates in one transaction.
func (s *SQLiteStore) ReplaceCandidates(ctx context.Context, candidates []workforce.Candidate) error {
	if err := workforce.ValidateCandidates(candidates); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"candidate_certifications", "candidate_skills", "candidates"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite: clear %s: %w", table, err)
		}
	}

	for pos, c := range candidates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO candidates (id, name, role, position) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Role, pos,
		); err != nil {
			return fmt.Errorf("sqlite: insert candidate %s: %w", c.ID, err)
		}
		for i, skill := range c.Skills {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO candidate_skills (candidate_id, ordinal, name, level) VALUES (?, ?, ?, ?)`,
				c.ID, i, skill.Name, int(skill.Level),
			); err != nil {
				return fmt.Errorf("sqlite: insert skill %s/%s: %w", c.ID, skill.Name, err)
			}
		}
		for i, cert := range c.Certifications {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO candidate_certifications (candidate_id, ordinal, name, issuer, expires_at) VALUES (?, ?, ?, ?, ?)`,
				c.ID, i, cert.Name, cert.Issuer, cert.ExpiresAt.UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("sqlite: insert certification %s/%s: %w", c.ID, cert.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Candidates returns the stored pool in import order.
func (s *SQLiteStore) Candidates(ctx context.Context) ([]workforce.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, role FROM candidates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []workforce.Candidate
	index := make(map[string]int)
	for rows.Next() {
		var c workforce.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Role); err != nil {
			return nil, fmt.Errorf("sqlite: scan candidate: %w", err)
		}
		index[c.ID] = len(candidates)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read candidates: %w", err)
	}

	if err := s.loadSkills(ctx, candidates, index); err != nil {
		return nil, err
	}
	if err := s.loadCertifications(ctx, candidates, index); err != nil {
		return nil, err
	}

	return candidates, nil
}

func (s *SQLiteStore) loadSkills(ctx context.Context, candidates []workforce.Candidate, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id, name, level FROM candidate_skills ORDER BY candidate_id, ordinal`)
	if err != nil {
		return fmt.Errorf("sqlite: query skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			skill workforce.Skill
			level int
		)
		if err := rows.Scan(&id, &skill.Name, &level); err != nil {
			return fmt.Errorf("sqlite: scan skill: %w", err)
		}
		skill.Level = workforce.Level(level)
		if i, ok := index[id]; ok {
			candidates[i].Skills = append(candidates[i].Skills, skill)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadCertifications(ctx context.Context, candidates []workforce.Candidate, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id, name, issuer, expires_at FROM candidate_certifications ORDER BY candidate_id, ordinal`)
	if err != nil {
		return fmt.Errorf("sqlite: query certifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			cert    workforce.Certification
			expires string
		)
		if err := rows.Scan(&id, &cert.Name, &cert.Issuer, &expires); err != nil {
			return fmt.Errorf("sqlite: scan certification: %w", err)
		}
		cert.ExpiresAt, err = time.Parse(time.RFC3339, expires)
		if err != nil {
			return fmt.Errorf("sqlite: certification %s/%s: %w", id, cert.Name, err)
		}
		if i, ok := index[id]; ok {
			candidates[i].Certifications = append(candidates[i].Certifications, cert)
		}
	}
	return rows.Err()
}

// SetDemand stores the baseline demand for skill, replacing any previous value.
func (s *SQLiteStore) SetDemand(ctx context.Context, skill string, demand int) error {
	key := workforce.SkillKey(skill)
	if key == "" || demand < 0 {
		return fmt.Errorf("%w: bad demand %q=%d", workforce.ErrInvalidInput, skill, demand)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skill_demand (skill_key, skill, demand, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (skill_key) DO UPDATE SET skill = excluded.skill, demand = excluded.demand, updated_at = excluded.updated_at`,
		key, strings.TrimSpace(skill), demand, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set demand %s: %w", skill, err)
	}
	return nil
}

func (s *SQLiteStore) BaselineDemand(ctx context.Context, skill string) (int, bool, error) {
	var demand int
	err := s.db.QueryRowContext(ctx,
		`SELECT demand FROM skill_demand WHERE skill_key = ?`, workforce.SkillKey(skill),
	).Scan(&demand)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: demand %s: %w", skill, err)
	}
	return demand, true, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}

	body, err := json.Marshal(snapshot.Report)
	if err != nil {
		return fmt.Errorf("sqlite: marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO report_snapshots (id, request_id, created_at, report) VALUES (?, ?, ?, ?)`,
		snapshot.ID.String(), snapshot.RequestID, snapshot.CreatedAt.UTC().Format(time.RFC3339Nano), string(body),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// Snapshots lists stored snapshots oldest first. An empty requestID lists all.
func (s *SQLiteStore) Snapshots(ctx context.Context, requestID string) ([]Snapshot, error) {
	query := `SELECT id, request_id, created_at, report FROM report_snapshots`
	var args []any
	if requestID != "" {
		query += ` WHERE request_id = ?`
		args = append(args, requestID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var id, created, body string
		var snap Snapshot
		if err := rows.Scan(&id, &snap.RequestID, &created, &body); err != nil {
			return nil, fmt.Errorf("sqlite: scan snapshot: %w", err)
		}
		if snap.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("sqlite: snapshot id %q: %w", id, err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("sqlite: snapshot %s time: %w", id, err)
		}
		snap.Report = &readiness.Report{}
		if err := json.Unmarshal([]byte(body), snap.Report); err != nil {
			return nil, fmt.Errorf("sqlite: snapshot %s report: %w", id, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
