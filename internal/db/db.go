package db

import (
	"context"
	"fmt"
)

// Backend identifies a storage backend implementation.
type Backend string

// Supported backends.
const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config selects and configures the storage backend. It is built once at
// process start and passed to Open.
type Config struct {
	Backend Backend

	// Path is the SQLite database file (or ":memory:").
	Path string

	// URL is the PostgreSQL connection string.
	URL string
}

// Dialect describes the SQL differences callers need to know about.
type Dialect struct {
	Backend Backend

	// Goqu is the goqu dialect name used for generated queries.
	Goqu string

	// LockSuffix is appended to a SELECT to lock the selected rows until the
	// end of the transaction. Empty where the transaction already holds a
	// database-wide write lock.
	LockSuffix string
}

// Result is the outcome of Execute. Rows is populated when rows were
// expected, LastInsertID and RowsAffected otherwise.
type Result struct {
	Rows         []Row
	LastInsertID int64
	RowsAffected int64
}

// Execer runs parameterized statements. Statements use ? placeholders
// regardless of backend.
type Execer interface {
	Execute(ctx context.Context, stmt string, params []any, expectRows bool) (Result, error)
	Query(ctx context.Context, stmt string, params ...any) ([]Row, error)
	Exec(ctx context.Context, stmt string, params ...any) (Result, error)
	Dialect() Dialect
}

// Storage is a database handle that can also open a unit of work.
type Storage interface {
	Execer

	// WithTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Execer) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Open opens the backend selected by cfg.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return OpenSQLite(cfg.Path)
	case BackendPostgres:
		return OpenPostgres(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// QueryOne returns the first row of the result, or nil if there is none.
func QueryOne(ctx context.Context, ex Execer, stmt string, params ...any) (Row, error) {
	rows, err := ex.Query(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
