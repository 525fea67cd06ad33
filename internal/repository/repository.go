// Package repository loads candidate pools and skill demand for the host and
// keeps audit snapshots of produced reports. Backends: a YAML/JSON file,
// SQLite and PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/workforce"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnsupported   = errors.New("operation is not supported by this backend")
	ErrUnknownDriver = errors.New("unknown repository driver")
)

// CandidateRepository supplies the candidate pool snapshot.
type CandidateRepository interface {
	Candidates(ctx context.Context) ([]workforce.Candidate, error)
}

// DemandLookup resolves the current demand baseline of a skill.
type DemandLookup interface {
	BaselineDemand(ctx context.Context, skill string) (demand int, ok bool, err error)
}

// SnapshotStore keeps an audit copy of every produced report.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
}

// Writer is implemented by the backends that accept imports.
type Writer interface {
	ReplaceCandidates(ctx context.Context, candidates []workforce.Candidate) error
	SetDemand(ctx context.Context, skill string, demand int) error
}

// Store is the full surface a backend exposes to the CLI.
type Store interface {
	CandidateRepository
	DemandLookup
	SnapshotStore
	Close() error
}

// Snapshot is a stored report.
type Snapshot struct {
	ID        uuid.UUID         `json:"id" yaml:"id"`
	RequestID string            `json:"request_id" yaml:"request_id"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	Report    *readiness.Report `json:"report" yaml:"report"`
}

// NewSnapshot wraps report with a fresh id.
func NewSnapshot(requestID string, report *readiness.Report, now time.Time) Snapshot {
	return Snapshot{
		ID:        uuid.New(),
		RequestID: requestID,
		CreatedAt: now.UTC(),
		Report:    report,
	}
}

func (s Snapshot) validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: snapshot id is empty", workforce.ErrInvalidInput)
	}
	if s.Report == nil {
		return fmt.Errorf("%w: snapshot %s has no report", workforce.ErrInvalidInput, s.ID)
	}
	return nil
}

var (
	_ Store  = (*FileRepository)(nil)
	_ Store  = (*SQLiteStore)(nil)
	_ Store  = (*PostgresStore)(nil)
	_ Writer = (*SQLiteStore)(nil)
	_ Writer = (*PostgresStore)(nil)
)

// Config selects and configures a backend.
type Config struct {
	Driver string `mapstructure:"driver"`
	// Path is the document for the file driver and the database file for sqlite.
	Path string `mapstructure:"path"`
	// DSN is the postgres connection string. It is usually loaded from a secret file.
	DSN string `mapstructure:"dsn"`
}

// Open returns the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverFile, "":
		store, err = asStore(LoadFile(cfg.Path))
	case DriverSQLite:
		store, err = asStore(OpenSQLite(cfg.Path))
	case DriverPostgres:
		store, err = asStore(ConnectPostgres(ctx, cfg.DSN))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return store, nil
}

func asStore[T Store](s T, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
