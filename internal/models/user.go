package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleSuperadmin UserRole = "superadmin"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Avatar       string         `gorm:"type:varchar(512)" json:"avatar,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsSuperadmin reports whether the user holds the platform-wide override role.
func (u *User) IsSuperadmin() bool {
	return u.Role == UserRoleSuperadmin
}
