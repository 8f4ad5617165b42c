package db

import (
	"context"
	"fmt"

	"rfid_locker_lending/models"
)

func (r *Repo) LogAccess(ctx context.Context, entry *models.AccessLog) error {
	if err := r.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

// ListAccessLogs returns the most recent decisions, optionally for one locker.
func (r *Repo) ListAccessLogs(ctx context.Context, lockerID string, limit int) ([]models.AccessLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := r.DB.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if lockerID != "" {
		q = q.Where("locker_id = ?", lockerID)
	}
	var logs []models.AccessLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
