package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Storage error classes. Backend errors are wrapped so both the class and
// the original driver error remain reachable through errors.Is/As.
var (
	ErrConnection = errors.New("storage unavailable")
	ErrConstraint = errors.New("constraint violation")
	ErrQuery      = errors.New("query failed")

	// ErrConflict marks a transaction the backend aborted to resolve a
	// deadlock or serialization failure. Nothing was committed; the
	// operation can be retried as a whole.
	ErrConflict = errors.New("transaction conflict")
)

func classified(class, err error) error {
	return fmt.Errorf("%w: %w", class, err)
}

// passthrough reports errors that must reach the caller unclassified.
func passthrough(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isConnectionLoss(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func classifySQLite(err error) error {
	if err == nil || passthrough(err) {
		return err
	}
	if isConnectionLoss(err) {
		return classified(ErrConnection, err)
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return classified(ErrConstraint, err)
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_NOTADB,
			sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_READONLY:
			return classified(ErrConnection, err)
		}
	}
	return classified(ErrQuery, err)
}

func classifyPostgres(err error) error {
	if err == nil || passthrough(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return classified(ErrConflict, err)
		}
		switch pgErr.Code[:2] {
		case "23": // integrity constraint violation
			return classified(ErrConstraint, err)
		case "08", "53", "57": // connection, resources, operator intervention
			return classified(ErrConnection, err)
		default:
			return classified(ErrQuery, err)
		}
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || isConnectionLoss(err) {
		return classified(ErrConnection, err)
	}
	return classified(ErrQuery, err)
}
