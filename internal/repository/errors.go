// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow handlers to distinguish between
// failure scenarios and map them to HTTP status codes.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not take part in.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict signals that an operation cannot proceed because of existing
// state, such as an overlapping booking.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// Not-found errors per entity.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrListingNotFound      = errors.New("listing not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrConversationNotFound = errors.New("conversation not found")
)

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
