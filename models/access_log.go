package models

import "time"

const AccessLogTable = "access_logs"

// AccessLog 记录每一次刷卡判定（审计用，不属于借还状态）
type AccessLog struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	CardID        string    `gorm:"size:64;index;not null" json:"card_id"`
	LockerID      string    `gorm:"size:64;not null" json:"locker_id"`
	UserID        *string   `gorm:"type:uuid" json:"user_id,omitempty"`
	TransactionID *string   `gorm:"type:uuid" json:"transaction_id,omitempty"`
	Decision      string    `gorm:"size:16;not null" json:"decision"`
	Reason        *string   `gorm:"size:64" json:"reason,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (AccessLog) TableName() string { return AccessLogTable }
