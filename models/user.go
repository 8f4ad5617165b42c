package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const UserTable = "users"

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// SIT ID ranges. The role is always derived from these, never taken from the client.
const (
	staffSitIDMin   = 1000000
	staffSitIDMax   = 1999999
	studentSitIDMin = 2000000
	studentSitIDMax = 3000000
)

var ErrInvalidSitID = errors.New("invalid SIT ID: staff IDs are 1000000-1999999, student IDs are 2000000-3000000")

// RoleForSitID derives the role from the numeric range of a SIT ID.
func RoleForSitID(sitID string) (Role, error) {
	n, err := strconv.Atoi(strings.TrimSpace(sitID))
	if err != nil {
		return "", ErrInvalidSitID
	}
	switch {
	case n >= staffSitIDMin && n <= staffSitIDMax:
		return RoleStaff, nil
	case n >= studentSitIDMin && n <= studentSitIDMax:
		return RoleStudent, nil
	}
	return "", ErrInvalidSitID
}

type User struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"user_id"`
	SitID string `gorm:"uniqueIndex;size:16;not null" json:"sit_id"`
	Name  string `gorm:"size:255;not null" json:"name"`
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role  Role   `gorm:"size:20;not null" json:"role"`
	// 未绑定卡片前为空
	RFIDUID *string `gorm:"column:rfid_uid;uniqueIndex;size:64" json:"rfid_uid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return UserTable }

func (u *User) IsStaff() bool { return u.Role == RoleStaff }

// UserPage is one page of a user listing plus the total match count.
type UserPage struct {
	Users []User `json:"users"`
	Total int64  `json:"total"`
}
