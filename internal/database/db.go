// Package database owns the MySQL pool shared by the seat and booking
// repositories. Hold expiry is compared against UTC_TIMESTAMP() in SQL,
// so the DSN pins loc=UTC and time.Time values scanned out of
// reserved_until are already in the zone the sweeps compare in.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Reservation transactions are short: one read plus a burst of guarded
// updates. A modest pool keeps row-lock contention low without starving
// the expiry sweeper.
const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Open connects to MySQL and verifies the connection with a ping.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// parseTime maps DATETIME columns to time.Time on scan.
// clientFoundRows makes RowsAffected report rows matched rather than
// rows changed; the status-guarded updates read a zero count as a
// guard miss, which must not fire when an update rewrites identical
// values.
func dsn(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, host, port, name)
}
