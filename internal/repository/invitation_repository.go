package repository

import (
	"github.com/mwrueen/offtix-back/internal/models"
	"gorm.io/gorm"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

// Create creates a new invitation
func (r *GormInvitationRepository) Create(invitation *models.Invitation) error {
	return r.db.Create(invitation).Error
}

// FindByToken finds an invitation by its token
func (r *GormInvitationRepository) FindByToken(token string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.Preload("Company").Preload("InvitedBy").
		Where("token = ?", token).
		First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// Update updates an invitation
func (r *GormInvitationRepository) Update(invitation *models.Invitation) error {
	return r.db.Save(invitation).Error
}

// ListPendingByEmail lists pending invitations addressed to an email
func (r *GormInvitationRepository) ListPendingByEmail(email string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := r.db.Preload("Company").Preload("InvitedBy").
		Where("email = ? AND status = ?", email, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// FindPending finds a pending invitation for an email at a company
func (r *GormInvitationRepository) FindPending(companyID uint64, email string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.Where("company_id = ? AND email = ? AND status = ?", companyID, email, models.InvitationPending).
		First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListForCompany lists a company's invitations
func (r *GormInvitationRepository) ListForCompany(companyID uint64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := r.db.Preload("InvitedBy").
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}
