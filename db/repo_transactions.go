package db

import (
	"context"
	"time"

	"rfid_locker_lending/models"
)

// ListTransactions returns transactions joined with equipment, locker and
// user names, newest first.
func (r *Repo) ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.TransactionView, error) {
	q := r.DB.WithContext(ctx).
		Table(models.TransactionTable + " t").
		Select(`
			t.*,
			e.name AS equipment_name,
			l.compartment_number,
			u.name AS user_name,
			u.sit_id
		`).
		Joins("JOIN " + models.EquipmentTable + " e ON e.id = t.equipment_id").
		Joins("JOIN " + models.UserTable + " u ON u.id = t.user_id").
		Joins("LEFT JOIN " + models.LockerTable + " l ON l.id = t.locker_id")

	if f.UserID != "" {
		if !validID(f.UserID) {
			return nil, nil
		}
		q = q.Where("t.user_id = ?", f.UserID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("t.status IN ?", f.Statuses)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []models.TransactionView
	if err := q.Order("t.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repo) ExpiredPickups(ctx context.Context, now, createdBefore time.Time, limit int) ([]string, error) {
	q := r.DB.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("status = ?", models.StatusPendingPickup)
	if createdBefore.IsZero() {
		q = q.Where("due_date IS NOT NULL AND due_date < ?", now)
	} else {
		q = q.Where("((due_date IS NOT NULL AND due_date < ?) OR created_at < ?)", now, createdBefore)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var ids []string
	if err := q.Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
