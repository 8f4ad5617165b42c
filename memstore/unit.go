package memstore

import (
	"context"
	"time"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

// unit works on a private copy of the state while the store mutex is held,
// so every read is already exclusive and the Lock* methods are plain reads.
type unit struct{ st *state }

func (u *unit) UserByID(_ context.Context, id string) (*models.User, error) {
	if usr, ok := u.st.users[id]; ok {
		return &usr, nil
	}
	return nil, lending.ErrNoRows
}

func (u *unit) UserByCard(_ context.Context, cardID string) (*models.User, error) {
	return u.st.userByCard(cardID)
}

func (u *unit) EquipmentByID(_ context.Context, id string) (*models.Equipment, error) {
	if eq, ok := u.st.equipment[id]; ok {
		return &eq, nil
	}
	return nil, lending.ErrNoRows
}

func (u *unit) LockEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	return u.EquipmentByID(ctx, id)
}

func (u *unit) SetAvailableUnits(_ context.Context, id string, from, to int) error {
	eq, ok := u.st.equipment[id]
	if !ok || eq.AvailableUnits != from {
		return lending.ErrStaleWrite
	}
	if to < 0 || to > eq.TotalUnits {
		// same rule as the check constraint on the equipment table
		return lending.ErrStaleWrite
	}
	eq.AvailableUnits = to
	eq.UpdatedAt = time.Now()
	u.st.equipment[id] = eq
	return nil
}

func (u *unit) LockerByID(_ context.Context, id string) (*models.Locker, error) {
	if l, ok := u.st.lockers[id]; ok {
		return &l, nil
	}
	return nil, lending.ErrNoRows
}

func (u *unit) LockLocker(ctx context.Context, id string) (*models.Locker, error) {
	return u.LockerByID(ctx, id)
}

func (u *unit) LockFreeLocker(_ context.Context) (*models.Locker, error) {
	var best *models.Locker
	for _, l := range u.st.lockers {
		if l.Status != models.LockerAvailable {
			continue
		}
		if best == nil || l.CompartmentNumber < best.CompartmentNumber {
			best = &l
		}
	}
	if best == nil {
		return nil, lending.ErrNoRows
	}
	return best, nil
}

func (u *unit) SetLockerState(_ context.Context, id string, from, to models.LockerStatus, occupant *string) error {
	l, ok := u.st.lockers[id]
	if !ok || l.Status != from {
		return lending.ErrStaleWrite
	}
	l.Status = to
	l.CurrentEquipmentID = occupant
	l.UpdatedAt = time.Now()
	u.st.lockers[id] = l
	return nil
}

func (u *unit) LockTransaction(_ context.Context, id string) (*models.Transaction, error) {
	if t, ok := u.st.transactions[id]; ok {
		return &t, nil
	}
	return nil, lending.ErrNoRows
}

func (u *unit) LockTransactionAt(_ context.Context, userID, lockerID string, status models.TxStatus) (*models.Transaction, error) {
	var hit *models.Transaction
	for _, t := range u.st.transactions {
		if t.UserID != userID || t.Status != status || t.LockerID == nil || *t.LockerID != lockerID {
			continue
		}
		if hit == nil || t.CreatedAt.Before(hit.CreatedAt) {
			hit = &t
		}
	}
	if hit == nil {
		return nil, lending.ErrNoRows
	}
	return hit, nil
}

func (u *unit) InsertTransaction(_ context.Context, t *models.Transaction) error {
	if _, ok := u.st.transactions[t.ID]; ok {
		return lending.ErrDuplicate
	}
	if t.LockerID != nil && t.Status.Holding() {
		for _, other := range u.st.transactions {
			if other.Status.Holding() && other.LockerID != nil && *other.LockerID == *t.LockerID {
				return lending.ErrDuplicate
			}
		}
	}
	u.st.transactions[t.ID] = *t
	return nil
}

func (u *unit) AdvanceTransaction(_ context.Context, t *models.Transaction, from models.TxStatus) error {
	cur, ok := u.st.transactions[t.ID]
	if !ok || cur.Status != from {
		return lending.ErrStaleWrite
	}
	cur.Status = t.Status
	cur.BorrowTime = t.BorrowTime
	cur.ReturnTime = t.ReturnTime
	cur.UpdatedAt = t.UpdatedAt
	u.st.transactions[t.ID] = cur
	return nil
}
