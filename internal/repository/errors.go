package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	// ErrEventNotFound indicates that an event was not located in the DB.
	ErrEventNotFound = errors.New("event not found")
	// ErrAlreadyHeld is returned by TryClaim when the (event, user) pair
	// already has a holder record.
	ErrAlreadyHeld = errors.New("seat already held")
	// ErrStoreUnavailable wraps transient infrastructure failures (lost
	// connections, lock timeouts, deadlocks, busy database).
	ErrStoreUnavailable = errors.New("store unavailable")
)

// MySQL server error numbers used below.
const (
	mysqlDuplicateEntry       = 1062
	mysqlLockWaitTimeout      = 1205
	mysqlDeadlock             = 1213
	mysqlFullTextIndexMissing = 1191
)

// classify wraps transient errors with ErrStoreUnavailable.  Context
// cancellation is passed through untouched so callers never retry it.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlDeadlock
	}
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isDuplicateKey reports whether err is a unique-constraint violation.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		// Without extended result codes only the primary code is set.
		if liteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT {
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

// isFullTextMissing reports whether MySQL rejected a MATCH clause because
// no FULLTEXT index covers the listed columns.
func isFullTextMissing(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlFullTextIndexMissing
}
