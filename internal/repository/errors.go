// Package repository defines the persistence layer and the error values
// shared by every repository. Handlers translate the four sentinels into HTTP
// status codes with errors.Is; entity-specific errors wrap one of them so the
// message stays precise while the classification stays stable.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound means the referenced row does not exist (HTTP 404).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of the
// current state, such as starting a game on an occupied table or stopping a
// session twice (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrValidation signals malformed or inconsistent input (HTTP 400).
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when the caller may not perform the operation
// (HTTP 403).
var ErrForbidden = errors.New("forbidden")

var (
	ErrTableNotFound   = fmt.Errorf("table %w", ErrNotFound)
	ErrClientNotFound  = fmt.Errorf("client %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrTariffNotFound  = fmt.Errorf("tariff %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	ErrTableOccupied     = fmt.Errorf("%w: table is occupied", ErrConflict)
	ErrTableOutOfService = fmt.Errorf("%w: table is out of service", ErrConflict)
	ErrTableUnknown      = fmt.Errorf("%w: table does not exist", ErrConflict)
	ErrTableHasSessions  = fmt.Errorf("%w: table has recorded sessions", ErrConflict)
	ErrSessionStopped    = fmt.Errorf("%w: session already stopped", ErrConflict)
	ErrNumberTaken       = fmt.Errorf("%w: table number already in use", ErrConflict)
	ErrClientNameTaken   = fmt.Errorf("%w: client name already in use", ErrConflict)
	ErrEmailExists       = fmt.Errorf("%w: email already exists", ErrConflict)
)

// isDuplicateKey reports whether err is a unique constraint violation on
// either supported driver.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
