package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	// sqlx does not know the modernc driver name.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// sqliteDSN appends the connection parameters every connection needs.
// _txlock=immediate makes BEGIN take the write lock up front, so a
// transaction that reads stock and then writes it cannot interleave with
// another writer.
func sqliteDSN(path string) string {
	params := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)&_txlock=immediate&_time_format=sqlite"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// OpenSQLite opens a SQLite database file. Use ":memory:" for a private
// in-memory database.
func OpenSQLite(path string) (Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("opening database: empty sqlite path")
	}

	db, err := sqlx.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", classifySQLite(err))
	}

	// One connection: writers are serialized anyway and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", classifySQLite(err))
	}

	return newSQLXStore(db, Dialect{Backend: BackendSQLite, Goqu: "sqlite3"}, classifySQLite), nil
}
