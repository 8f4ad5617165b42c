// models/transaction.go
package models

import (
	"fmt"
	"time"
)

const TransactionTable = "transactions"

// TxStatus is the lifecycle state of a Transaction.
type TxStatus string

const (
	StatusPendingPickup TxStatus = "pending_pickup"
	StatusActive        TxStatus = "active"
	StatusPendingReturn TxStatus = "pending_return"
	StatusCompleted     TxStatus = "completed"
	StatusCancelled     TxStatus = "cancelled"
	StatusExpired       TxStatus = "expired"
)

var allStatuses = []TxStatus{
	StatusPendingPickup,
	StatusActive,
	StatusPendingReturn,
	StatusCompleted,
	StatusCancelled,
	StatusExpired,
}

func ParseTxStatus(s string) (TxStatus, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

func (s TxStatus) Valid() bool {
	_, err := ParseTxStatus(string(s))
	return err == nil
}

// Terminal statuses accept no further transitions.
func (s TxStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// Holding statuses keep a locker occupied and a unit debited.
func (s TxStatus) Holding() bool {
	return s == StatusPendingPickup || s == StatusActive || s == StatusPendingReturn
}

func HoldingStatuses() []TxStatus {
	return []TxStatus{StatusPendingPickup, StatusActive, StatusPendingReturn}
}

type Transaction struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"transaction_id"`
	UserID      string     `gorm:"type:uuid;not null;index:idx_transactions_tap,priority:1" json:"user_id"`
	EquipmentID string     `gorm:"type:uuid;not null;index" json:"equipment_id"`
	LockerID    *string    `gorm:"type:uuid;index:idx_transactions_tap,priority:2" json:"locker_id,omitempty"`
	Status      TxStatus   `gorm:"size:20;not null;index:idx_transactions_tap,priority:3" json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	BorrowTime  *time.Time `json:"borrow_time,omitempty"`
	ReturnTime  *time.Time `json:"return_time,omitempty"`
	CreatedAt   time.Time  `gorm:"index;not null" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Transaction) TableName() string { return TransactionTable }

// Overdue reports whether the due date has passed at now.
func (t *Transaction) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now)
}

// TransactionView is a transaction joined with the names a client displays.
type TransactionView struct {
	Transaction
	EquipmentName     string `json:"equipment_name"`
	CompartmentNumber *int   `json:"compartment_number,omitempty"`
	UserName          string `json:"user_name,omitempty"`
	SitID             string `json:"sit_id,omitempty"`
}

// TransactionFilter narrows a transaction listing. Results are ordered by created_at DESC.
type TransactionFilter struct {
	UserID   string
	Statuses []TxStatus
	Limit    int
}
