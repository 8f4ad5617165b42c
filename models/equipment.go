// models/equipment.go
package models

import "time"

const EquipmentTable = "equipment"

// Equipment is a lendable equipment type with a pool of interchangeable units.
type Equipment struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"equipment_id"`
	Name           string    `gorm:"size:200;not null" json:"name"`
	Category       string    `gorm:"size:100;index" json:"category"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	TotalUnits     int       `gorm:"not null;default:0;check:chk_equipment_total_units,total_units >= 0" json:"total_units"`
	AvailableUnits int       `gorm:"not null;default:0;check:chk_equipment_available_units,available_units >= 0 AND available_units <= total_units" json:"available_units"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Equipment) TableName() string { return EquipmentTable }
