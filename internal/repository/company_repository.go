package repository

import (
	"github.com/mwrueen/offtix-back/internal/models"
	"gorm.io/gorm"
)

// GormCompanyRepository is a GORM implementation of CompanyRepository
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &GormCompanyRepository{db: db}
}

// Create creates a company along with any seeded designations and members
func (r *GormCompanyRepository) Create(company *models.Company) error {
	return r.db.Create(company).Error
}

// FindByID finds a company by ID with optional preloading
func (r *GormCompanyRepository) FindByID(id uint64, preload ...string) (*models.Company, error) {
	var company models.Company
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// Update updates a company
func (r *GormCompanyRepository) Update(company *models.Company) error {
	return r.db.Save(company).Error
}

// ListForUser lists companies the user owns or belongs to
func (r *GormCompanyRepository) ListForUser(userID uint64) ([]models.Company, error) {
	var companies []models.Company
	memberSubQuery := r.db.Model(&models.CompanyMember{}).
		Select("company_id").
		Where("user_id = ?", userID)
	err := r.db.
		Preload("Owner").
		Preload("Designations").
		Preload("Members").
		Where("owner_id = ? OR id IN (?)", userID, memberSubQuery).
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// AddDesignation adds a designation to a company
func (r *GormCompanyRepository) AddDesignation(designation *models.Designation) error {
	return r.db.Create(designation).Error
}

// UpdateDesignation updates a designation
func (r *GormCompanyRepository) UpdateDesignation(designation *models.Designation) error {
	return r.db.Save(designation).Error
}

// FindDesignation finds a designation scoped to a company
func (r *GormCompanyRepository) FindDesignation(companyID, designationID uint64) (*models.Designation, error) {
	var designation models.Designation
	if err := r.db.Where("company_id = ? AND id = ?", companyID, designationID).
		First(&designation).Error; err != nil {
		return nil, err
	}
	return &designation, nil
}

// DeleteDesignation removes a designation from a company
func (r *GormCompanyRepository) DeleteDesignation(companyID, designationID uint64) error {
	return r.db.Where("company_id = ? AND id = ?", companyID, designationID).
		Delete(&models.Designation{}).Error
}

// CountMembersByDesignation counts members referencing a designation name
func (r *GormCompanyRepository) CountMembersByDesignation(companyID uint64, designationName string) (int64, error) {
	var count int64
	err := r.db.Model(&models.CompanyMember{}).
		Where("company_id = ? AND designation = ?", companyID, designationName).
		Count(&count).Error
	return count, err
}

// AddMember adds a member to a company
func (r *GormCompanyRepository) AddMember(member *models.CompanyMember) error {
	return r.db.Create(member).Error
}

// UpdateMember updates a company member
func (r *GormCompanyRepository) UpdateMember(member *models.CompanyMember) error {
	return r.db.Save(member).Error
}

// RemoveMember removes a member and their salary history
func (r *GormCompanyRepository) RemoveMember(companyID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var member models.CompanyMember
		if err := tx.Where("company_id = ? AND user_id = ?", companyID, userID).
			First(&member).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", member.ID).
			Delete(&models.SalaryRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&member).Error
	})
}

// FindMember finds a specific company member
func (r *GormCompanyRepository) FindMember(companyID, userID uint64) (*models.CompanyMember, error) {
	var member models.CompanyMember
	if err := r.db.Preload("SalaryHistory").
		Where("company_id = ? AND user_id = ?", companyID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// AddSalaryRecord appends a salary history entry
func (r *GormCompanyRepository) AddSalaryRecord(record *models.SalaryRecord) error {
	return r.db.Create(record).Error
}

// AddHoliday adds a company holiday
func (r *GormCompanyRepository) AddHoliday(holiday *models.Holiday) error {
	return r.db.Create(holiday).Error
}

// RemoveHoliday removes a company holiday
func (r *GormCompanyRepository) RemoveHoliday(companyID, holidayID uint64) error {
	res := r.db.Where("company_id = ? AND id = ?", companyID, holidayID).
		Delete(&models.Holiday{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
