// Package repository implements MySQL persistence for seats, accounts and
// tickets.  Lookups that find nothing return the sentinel errors below so
// that higher layers can tell "absent" from a storage failure.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrSeatNotFound is returned when no seat exists at the given row and number.
var ErrSeatNotFound = errors.New("seat not found")

// ErrAccountNotFound is returned when no account exists under the given name.
var ErrAccountNotFound = errors.New("account not found")

// ErrTicketNotFound is returned when a ticket code is unknown.
var ErrTicketNotFound = errors.New("ticket not found")

// querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx.  Methods
// taking an optional transaction run against the pool when it is nil.
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ErrDuplicateAccount is returned when an account insert collides with a
// row created by a concurrent purchase under the same name.
var ErrDuplicateAccount = errors.New("account already exists")

// isDuplicateKey reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
