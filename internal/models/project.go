package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint64         `gorm:"not null;index" json:"owner_id"`
	CompanyID   *uint64        `gorm:"index" json:"company_id,omitempty"`
	StartDate   *time.Time     `json:"start_date,omitempty"`
	EndDate     *time.Time     `json:"end_date,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner   User            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Company *Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

type ProjectMember struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	ProjectID uint64    `gorm:"not null;index" json:"project_id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	AddedByID *uint64   `json:"added_by_id,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// HasMember reports whether a user is an explicit project member.
func (p *Project) HasMember(userID uint64) bool {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return true
		}
	}
	return false
}
