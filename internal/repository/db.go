package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Open creates the SQLite handle for the submission audit log and applies the
// schema. Path ":memory:" gives an ephemeral store for tests and dry runs.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening audit database", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The audit writer is serialized through the submission gate; one
	// connection keeps modernc's file locking out of the picture.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("audit database ready")
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS submission_log (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL,
	source_file   TEXT NOT NULL,
	document_type TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	action        TEXT NOT NULL,
	detail        TEXT NOT NULL DEFAULT '',
	submitted_ref TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submission_log_document ON submission_log(document_id);
CREATE INDEX IF NOT EXISTS idx_submission_log_action ON submission_log(action);
`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate submission_log: %w", err)
	}
	return nil
}

// Close closes the database handle gracefully.
func Close(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close audit database", "error", err)
		return
	}
	logger.Info("audit database closed")
}

// HealthCheck pings the handle to catch path and permission issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}
