// Package db opens the SQLite catalog and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// SQLiteBusyTimeoutMS is how long a connection waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

// dsn appends driver parameters to path so that every pooled connection,
// not just the first, runs in WAL mode with foreign keys enforced.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d", path, sep, SQLiteBusyTimeoutMS)
}

// Open opens the database at path and checks that it is reachable. logger
// may be nil.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to open database at %s", path),
			"check that the directory exists and is writable")
	}
	logger.Debugw("Database opened", "path", path)
	return conn, nil
}

// OpenWithMigrations opens the database and applies pending migrations.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	conn, err := Open(path, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(conn, logger); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to migrate database at %s", path)
	}
	return conn, nil
}
