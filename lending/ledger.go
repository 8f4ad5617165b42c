package lending

import (
	"context"

	"rfid_locker_lending/models"
)

// debit takes one unit of equipmentID out of the pool. It never lets
// available_units go below zero.
func debit(ctx context.Context, tx Tx, equipmentID string) (*models.Equipment, error) {
	eq, err := tx.LockEquipment(ctx, equipmentID)
	if err != nil {
		return nil, orNotFound(err, ErrEquipmentNotFound)
	}
	if eq.AvailableUnits <= 0 {
		return nil, ErrEquipmentExhausted
	}
	if err := tx.SetAvailableUnits(ctx, eq.ID, eq.AvailableUnits, eq.AvailableUnits-1); err != nil {
		return nil, err
	}
	eq.AvailableUnits--
	return eq, nil
}

// credit puts one unit of equipmentID back. It refuses to push
// available_units above total_units.
func credit(ctx context.Context, tx Tx, equipmentID string) (*models.Equipment, error) {
	eq, err := tx.LockEquipment(ctx, equipmentID)
	if err != nil {
		return nil, orNotFound(err, ErrEquipmentNotFound)
	}
	if eq.AvailableUnits >= eq.TotalUnits {
		return nil, ErrLedgerOverflow
	}
	if err := tx.SetAvailableUnits(ctx, eq.ID, eq.AvailableUnits, eq.AvailableUnits+1); err != nil {
		return nil, err
	}
	eq.AvailableUnits++
	return eq, nil
}
