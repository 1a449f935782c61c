// Package repository is the data-access layer.  Each exported method maps
// one logical operation onto the store, and ownership predicates live in
// the SQL so that the store stays the authoritative check.  The sentinel
// values below let handlers tell failure scenarios apart.
package repository

import (
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional write lost a race with a
// concurrent update.  Re-reading and resubmitting is always safe.
var ErrConflict = errors.New("reservation was modified concurrently")

// ErrInUse is returned when a row cannot be deleted because reservations
// still reference it.
var ErrInUse = errors.New("still referenced by reservations")

// ErrInsufficientSlots is returned when a package cannot absorb the
// requested number of travelers.
var ErrInsufficientSlots = errors.New("not enough available slots")

// ErrEmailExists is returned on sign-up with a registered address.
var ErrEmailExists = errors.New("email already exists")

// ErrInvalidToken is returned for unknown, expired, revoked or used tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// isUniqueViolation recognises duplicate-key errors from every supported
// driver.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isForeignKeyViolation recognises a delete refused by a referencing row.
func isForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1451
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// now is the timestamp written to created_at/updated_at columns.  mysql
// TIMESTAMP columns keep whole seconds, so everything is truncated to keep
// values round-trippable across drivers.
func now() time.Time { return time.Now().UTC().Truncate(time.Second) }
