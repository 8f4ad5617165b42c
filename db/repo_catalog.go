package db

import (
	"context"

	"gorm.io/gorm"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

// Equipment

func (r *Repo) CreateEquipment(ctx context.Context, eq *models.Equipment) error {
	return classify(r.DB.WithContext(ctx).Create(eq).Error)
}

func (r *Repo) FindEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	if !validID(id) {
		return nil, lending.ErrNoRows
	}
	var eq models.Equipment
	if err := r.DB.WithContext(ctx).First(&eq, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &eq, nil
}

func (r *Repo) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	var items []models.Equipment
	err := r.DB.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

// Lockers

func (r *Repo) lockerViews(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table(models.LockerTable+" l").
		Select(`
			l.*,
			e.name     AS equipment_name,
			e.category AS equipment_category
		`).
		Joins("LEFT JOIN " + models.EquipmentTable + " e ON e.id = l.current_equipment_id")
}

// ListLockers returns lockers by compartment number, optionally only the free ones.
func (r *Repo) ListLockers(ctx context.Context, onlyAvailable bool) ([]models.LockerView, error) {
	q := r.lockerViews(ctx)
	if onlyAvailable {
		q = q.Where("l.status = ?", models.LockerAvailable)
	}
	var rows []models.LockerView
	if err := q.Order("l.compartment_number ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repo) FindLockerByCompartment(ctx context.Context, compartment int) (*models.LockerView, error) {
	var rows []models.LockerView
	if err := r.lockerViews(ctx).
		Where("l.compartment_number = ?", compartment).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, lending.ErrNoRows
	}
	return &rows[0], nil
}

func (r *Repo) CountLockers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Locker{}).Count(&n).Error
	return n, err
}

func (r *Repo) CreateLockers(ctx context.Context, lockers []models.Locker) error {
	if len(lockers) == 0 {
		return nil
	}
	return classify(r.DB.WithContext(ctx).Create(&lockers).Error)
}
