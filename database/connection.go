package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ridoystarlord/bookingsdb/config"
)

// DriverName is the database/sql driver registered by pgx's stdlib package.
const DriverName = "pgx"

var (
	db     *sql.DB
	dbOnce sync.Once
	dbErr  error
)

// Open creates a pool for url and verifies it with a ping.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	conn, err := sql.Open(DriverName, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return conn, nil
}

// Get returns a process-wide pool for cfg.DatabaseURL. Only the first
// call's configuration is used.
func Get(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	dbOnce.Do(func() {
		if dbErr = cfg.RequireDatabase(); dbErr != nil {
			return
		}
		db, dbErr = Open(ctx, cfg.DatabaseURL)
	})
	return db, dbErr
}

// Close closes the shared pool (should be called on application shutdown)
func Close() {
	if db != nil {
		db.Close()
	}
}
