package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

// InTx runs fn inside one database transaction. Row locks taken through the
// Tx are held until commit or rollback.
func (r *Repo) InTx(ctx context.Context, fn func(tx lending.Tx) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.LockTimeout > 0 {
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.LockTimeout.Milliseconds())).Error; err != nil {
				return err
			}
		}
		return fn(&unit{tx: tx})
	})
}

type unit struct{ tx *gorm.DB }

func (u *unit) db(ctx context.Context) *gorm.DB { return u.tx.WithContext(ctx) }

// guarded turns a conditional update that matched nothing into ErrStaleWrite.
func guarded(res *gorm.DB) error {
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return lending.ErrStaleWrite
	}
	return nil
}

func (u *unit) UserByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, lending.ErrNoRows
	}
	var usr models.User
	if err := u.db(ctx).First(&usr, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &usr, nil
}

func (u *unit) UserByCard(ctx context.Context, cardID string) (*models.User, error) {
	return userByCard(u.db(ctx), cardID)
}

func (u *unit) EquipmentByID(ctx context.Context, id string) (*models.Equipment, error) {
	return u.equipment(ctx, id, false)
}

func (u *unit) LockEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	return u.equipment(ctx, id, true)
}

func (u *unit) equipment(ctx context.Context, id string, lock bool) (*models.Equipment, error) {
	if !validID(id) {
		return nil, lending.ErrNoRows
	}
	q := u.db(ctx)
	if lock {
		q = q.Clauses(forUpdate)
	}
	var eq models.Equipment
	if err := q.First(&eq, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &eq, nil
}

func (u *unit) SetAvailableUnits(ctx context.Context, id string, from, to int) error {
	return guarded(u.db(ctx).Model(&models.Equipment{}).
		Where("id = ? AND available_units = ?", id, from).
		Updates(map[string]any{"available_units": to, "updated_at": time.Now()}))
}

func (u *unit) LockerByID(ctx context.Context, id string) (*models.Locker, error) {
	return u.locker(ctx, id, false)
}

func (u *unit) LockLocker(ctx context.Context, id string) (*models.Locker, error) {
	return u.locker(ctx, id, true)
}

func (u *unit) locker(ctx context.Context, id string, lock bool) (*models.Locker, error) {
	if !validID(id) {
		return nil, lending.ErrNoRows
	}
	q := u.db(ctx)
	if lock {
		q = q.Clauses(forUpdate)
	}
	var l models.Locker
	if err := q.First(&l, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &l, nil
}

// LockFreeLocker skips rows other borrowers hold, so concurrent borrows land
// on different compartments instead of queueing on the same one.
func (u *unit) LockFreeLocker(ctx context.Context) (*models.Locker, error) {
	var l models.Locker
	if err := u.db(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.LockerAvailable).
		Order("compartment_number ASC").
		Take(&l).Error; err != nil {
		return nil, classify(err)
	}
	return &l, nil
}

func (u *unit) SetLockerState(ctx context.Context, id string, from, to models.LockerStatus, occupant *string) error {
	return guarded(u.db(ctx).Model(&models.Locker{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":               to,
			"current_equipment_id": occupant,
			"updated_at":           time.Now(),
		}))
}

func (u *unit) LockTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	if !validID(id) {
		return nil, lending.ErrNoRows
	}
	var t models.Transaction
	if err := u.db(ctx).Clauses(forUpdate).First(&t, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (u *unit) LockTransactionAt(ctx context.Context, userID, lockerID string, status models.TxStatus) (*models.Transaction, error) {
	if !validID(userID) || !validID(lockerID) {
		return nil, lending.ErrNoRows
	}
	var t models.Transaction
	if err := u.db(ctx).
		Clauses(forUpdate).
		Where("user_id = ? AND locker_id = ? AND status = ?", userID, lockerID, status).
		Order("created_at ASC").
		Take(&t).Error; err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (u *unit) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	return classify(u.db(ctx).Create(t).Error)
}

func (u *unit) AdvanceTransaction(ctx context.Context, t *models.Transaction, from models.TxStatus) error {
	return guarded(u.db(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", t.ID, from).
		Updates(map[string]any{
			"status":      t.Status,
			"borrow_time": t.BorrowTime,
			"return_time": t.ReturnTime,
			"updated_at":  t.UpdatedAt,
		}))
}
