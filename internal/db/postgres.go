package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// OpenPostgres connects to a PostgreSQL server through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, url string) (Storage, error) {
	if url == "" {
		return nil, fmt.Errorf("opening database: empty postgres url")
	}

	db, err := sqlx.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", classifyPostgres(err))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", classifyPostgres(err))
	}

	dialect := Dialect{Backend: BackendPostgres, Goqu: "postgres", LockSuffix: " FOR UPDATE"}
	return newSQLXStore(db, dialect, classifyPostgres), nil
}
