package lending

import (
	"context"
	"time"

	"rfid_locker_lending/models"
)

// Store is the single authoritative data store the engine runs against.
type Store interface {
	// InTx runs fn as one all-or-nothing unit of work. If fn returns an
	// error every write made through tx is rolled back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	UserByCard(ctx context.Context, cardID string) (*models.User, error)
	ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.TransactionView, error)
	// ExpiredPickups returns ids of pending_pickup transactions whose due
	// date is before now or that were created before createdBefore. A zero
	// createdBefore matches on the due date only.
	ExpiredPickups(ctx context.Context, now, createdBefore time.Time, limit int) ([]string, error)
	LogAccess(ctx context.Context, entry *models.AccessLog) error
}

// Tx is the view of the store inside a unit of work. Lock* methods acquire
// the row exclusively until the unit ends. Set*/Advance* methods are guarded
// writes: they return ErrStaleWrite when the row is no longer in the expected
// prior state.
type Tx interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByCard(ctx context.Context, cardID string) (*models.User, error)

	EquipmentByID(ctx context.Context, id string) (*models.Equipment, error)
	LockEquipment(ctx context.Context, id string) (*models.Equipment, error)
	SetAvailableUnits(ctx context.Context, id string, from, to int) error

	LockerByID(ctx context.Context, id string) (*models.Locker, error)
	LockLocker(ctx context.Context, id string) (*models.Locker, error)
	// LockFreeLocker locks the available locker with the lowest compartment
	// number that no concurrent unit of work holds.
	LockFreeLocker(ctx context.Context) (*models.Locker, error)
	SetLockerState(ctx context.Context, id string, from, to models.LockerStatus, occupant *string) error

	LockTransaction(ctx context.Context, id string) (*models.Transaction, error)
	LockTransactionAt(ctx context.Context, userID, lockerID string, status models.TxStatus) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	AdvanceTransaction(ctx context.Context, t *models.Transaction, from models.TxStatus) error
}
