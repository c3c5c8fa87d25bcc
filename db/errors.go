package db

import (
	"strings"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// ErrDatabaseClosed marks work that reached the database after shutdown
// closed it, typically an ingestion job still saving rows.
var ErrDatabaseClosed = errors.New("database is closed")

// closedMessages are what database/sql and the sqlite driver report for a
// closed handle. Their errors are not wrapped at the source, so they are
// recognised by text.
var closedMessages = []string{
	"sql: database is closed",
	"database is closed",
}

// IsDatabaseClosed reports whether err means the connection is gone and
// retrying the row is pointless.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	msg := err.Error()
	for _, m := range closedMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
