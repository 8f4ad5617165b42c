package lending

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable class of an engine error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindTransient  Kind = "transient"
)

// Error is returned by every engine operation. Code is stable and safe to
// match on; Msg is meant for people.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so wrapped copies compare equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// KindOf returns the kind of err, or KindTransient for anything the engine
// did not classify.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: msg}
}

func notFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Msg: msg}
}

func conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Msg: msg}
}

var (
	ErrEquipmentNotFound   = notFound("equipment_not_found", "equipment not found")
	ErrUserNotFound        = notFound("user_not_found", "user not found")
	ErrLockerNotFound      = notFound("locker_not_found", "locker not found")
	ErrTransactionNotFound = notFound("transaction_not_found", "transaction not found")
	ErrCardNotRegistered   = notFound("card_not_registered", "card is not registered to any user")

	ErrEquipmentExhausted     = conflict("equipment_exhausted", "equipment not available")
	ErrNoLockers              = conflict("no_lockers_available", "no available lockers")
	ErrLedgerOverflow         = conflict("ledger_overflow", "available units would exceed total units")
	ErrLockerNotAvailable     = conflict("locker_not_available", "locker is not available")
	ErrLockerNotOccupied      = conflict("locker_not_occupied", "locker is not occupied")
	ErrNotYetPickedUp         = conflict("not_yet_picked_up", "cannot return equipment that has not been picked up yet")
	ErrReturnAlreadyRequested = conflict("return_already_requested", "return already requested, please go to the locker to complete return")
	ErrNotReturnable          = conflict("not_returnable", "this transaction cannot be returned")
	ErrNotCancellable         = conflict("not_cancellable", "only reservations awaiting pickup can be cancelled")
	ErrNotExpirable           = conflict("not_expirable", "transaction is not eligible for expiry")
	ErrIllegalTransition      = conflict("illegal_transition", "transition not allowed from current status")
	ErrUnauthorizedCard       = conflict("unauthorized_card", "unauthorized RFID card")
	ErrNoAuthorizedTx         = conflict("no_authorized_transaction", "no authorized transaction at this locker")
	ErrDuplicateTap           = conflict("duplicate_tap", "tap already being processed")

	// ErrStaleWrite is returned by stores when a guarded update matched no row.
	ErrStaleWrite = conflict("stale_write", "record changed concurrently, nothing was applied")

	ErrStoreUnavailable = &Error{Kind: KindTransient, Code: "store_unavailable", Msg: "store unavailable, nothing was changed"}
)

// Store-level sentinels. Stores return these; the engine maps them to the
// typed errors above.
var (
	ErrNoRows    = errors.New("no rows")
	ErrDuplicate = errors.New("duplicate key")
)

// StoreFailure wraps an unclassified store error as transient.
func StoreFailure(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrStoreUnavailable.wrap(err)
}

// orNotFound maps ErrNoRows to the given not-found error.
func orNotFound(err error, nf *Error) error {
	if errors.Is(err, ErrNoRows) {
		return nf
	}
	return err
}
