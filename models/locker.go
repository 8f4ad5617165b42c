// models/locker.go
package models

import "time"

const LockerTable = "lockers"

type LockerStatus string

const (
	LockerAvailable LockerStatus = "available"
	LockerOccupied  LockerStatus = "occupied"
)

func (s LockerStatus) Valid() bool {
	return s == LockerAvailable || s == LockerOccupied
}

type Locker struct {
	ID                string       `gorm:"type:uuid;primaryKey" json:"locker_id"`
	CompartmentNumber int          `gorm:"uniqueIndex;not null" json:"compartment_number"`
	Location          string       `gorm:"size:200" json:"location,omitempty"`
	Status            LockerStatus `gorm:"size:20;not null;default:'available';index" json:"status"`
	// 静态配置：该柜格用于哪类设备，与当前占用无关
	BoundEquipmentID *string `gorm:"type:uuid" json:"bound_equipment_id,omitempty"`
	// 当前占用者，释放时清空
	CurrentEquipmentID *string   `gorm:"type:uuid" json:"current_equipment_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Locker) TableName() string { return LockerTable }

// LockerView is a locker joined with the name of the equipment it currently holds.
type LockerView struct {
	Locker
	EquipmentName     *string `json:"equipment_name,omitempty"`
	EquipmentCategory *string `json:"equipment_category,omitempty"`
}
