package lending

import (
	"context"
	"errors"

	"rfid_locker_lending/models"
)

// occupy picks the free locker with the lowest compartment number and binds
// equipmentID to it.
func occupy(ctx context.Context, tx Tx, equipmentID string) (*models.Locker, error) {
	l, err := tx.LockFreeLocker(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, ErrNoLockers
		}
		return nil, err
	}
	if l.Status != models.LockerAvailable {
		return nil, ErrLockerNotAvailable
	}
	if err := tx.SetLockerState(ctx, l.ID, models.LockerAvailable, models.LockerOccupied, &equipmentID); err != nil {
		return nil, err
	}
	l.Status = models.LockerOccupied
	l.CurrentEquipmentID = &equipmentID
	return l, nil
}

// free releases an occupied locker and clears its occupant.
func free(ctx context.Context, tx Tx, lockerID string) (*models.Locker, error) {
	l, err := tx.LockLocker(ctx, lockerID)
	if err != nil {
		return nil, orNotFound(err, ErrLockerNotFound)
	}
	if l.Status != models.LockerOccupied {
		return nil, ErrLockerNotOccupied
	}
	if err := tx.SetLockerState(ctx, l.ID, models.LockerOccupied, models.LockerAvailable, nil); err != nil {
		return nil, err
	}
	l.Status = models.LockerAvailable
	l.CurrentEquipmentID = nil
	return l, nil
}
