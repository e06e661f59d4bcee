package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// runner executes statements on either a pool or a transaction.
type runner struct {
	ext      sqlx.ExtContext
	dialect  Dialect
	classify func(error) error
}

func (r runner) Dialect() Dialect { return r.dialect }

// Execute rebinds placeholders for the backend and runs the statement.
func (r runner) Execute(ctx context.Context, stmt string, params []any, expectRows bool) (Result, error) {
	query := r.ext.Rebind(stmt)

	if expectRows {
		rows, err := r.ext.QueryxContext(ctx, query, params...)
		if err != nil {
			return Result{}, r.classify(err)
		}
		defer rows.Close()

		var out []Row
		for rows.Next() {
			m := make(map[string]any)
			if err := rows.MapScan(m); err != nil {
				return Result{}, r.classify(err)
			}
			out = append(out, normalizeRow(m))
		}
		if err := rows.Err(); err != nil {
			return Result{}, r.classify(err)
		}
		return Result{Rows: out}, nil
	}

	res, err := r.ext.ExecContext(ctx, query, params...)
	if err != nil {
		return Result{}, r.classify(err)
	}

	var result Result
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	// pgx does not support LastInsertId; callers needing ids use RETURNING.
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertID = id
	}
	return result, nil
}

// Query runs a statement that returns rows.
func (r runner) Query(ctx context.Context, stmt string, params ...any) ([]Row, error) {
	res, err := r.Execute(ctx, stmt, params, true)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Exec runs a statement that returns no rows.
func (r runner) Exec(ctx context.Context, stmt string, params ...any) (Result, error) {
	return r.Execute(ctx, stmt, params, false)
}

// sqlxStore is the pooled handle shared by both backends.
type sqlxStore struct {
	runner
	db *sqlx.DB
}

func newSQLXStore(db *sqlx.DB, dialect Dialect, classify func(error) error) sqlxStore {
	return sqlxStore{
		runner: runner{ext: db, dialect: dialect, classify: classify},
		db:     db,
	}
}

// WithTx runs fn in one transaction, committing only if fn succeeds.
func (s sqlxStore) WithTx(ctx context.Context, fn func(tx Execer) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", s.classify(err))
	}
	defer tx.Rollback()

	if err := fn(runner{ext: tx, dialect: s.dialect, classify: s.classify}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", s.classify(err))
	}
	return nil
}

// Ping verifies the backend is reachable.
func (s sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.classify(err)
	}
	return nil
}

// Close closes the pool.
func (s sqlxStore) Close() error {
	return s.db.Close()
}
