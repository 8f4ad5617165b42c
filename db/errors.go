package db

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"rfid_locker_lending/lending"
)

const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgInvalidTextRepresent = "22P02"
)

// classify maps driver errors onto the store sentinels the engine understands.
// Anything else passes through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lending.ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", lending.ErrDuplicate, pgErr.ConstraintName)
		case pgCheckViolation:
			// available_units left its bounds; the guarded write did not apply
			return lending.ErrStaleWrite
		case pgInvalidTextRepresent:
			return lending.ErrNoRows
		}
	}
	return err
}

// validID reports whether id can be a primary key. Malformed ids never reach
// Postgres, where a cast error would abort the surrounding transaction.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
