// Package migrations applies the embedded SQL schema at startup.  Files
// are versioned by numeric prefix and applied through goose, which
// records them in its goose_db_version table.  A named MySQL lock
// serialises concurrent instances; goose only takes an advisory lock of
// its own on Postgres.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var migrationFiles embed.FS

// lockName identifies the named lock held while migrating.  MySQL ties
// named locks to the connection, so Apply pins one connection for the
// whole run and releases the lock on that same connection.
const lockName = "event_seat_booking.migrations"

// Apply runs pending migrations against db.  The caller should invoke
// it before serving traffic; on error the schema may be partially
// applied and the process should not continue.
func Apply(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	var locked int
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, 10)`, lockName).Scan(&locked); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if locked != 1 {
		return fmt.Errorf("migration lock %q not acquired", lockName)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT RELEASE_LOCK(?)`, lockName)
	}()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
