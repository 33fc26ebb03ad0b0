package models

import (
	"time"

	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation invites a user by email into a company with a preset
// designation. Token is an opaque UUID handed out in the invite link.
type Invitation struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	Token       string           `gorm:"type:varchar(36);uniqueIndex;not null" json:"token"`
	CompanyID   uint64           `gorm:"not null;index" json:"company_id"`
	Email       string           `gorm:"type:varchar(255);not null;index" json:"email"`
	Designation string           `gorm:"type:varchar(255);not null;default:'Employee'" json:"designation"`
	Salary      float64          `gorm:"not null;default:0" json:"salary"`
	Status      InvitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	InvitedByID uint64           `gorm:"not null" json:"invited_by_id"`
	ExpiresAt   time.Time        `json:"expires_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`

	Company   Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	InvitedBy User    `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
}

// Expired reports whether the invitation can no longer be accepted.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
