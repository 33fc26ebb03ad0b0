package models

import (
	"time"

	"gorm.io/gorm"
)

// PermissionSet is the granular capability set a designation grants within a
// company. The zero value grants nothing.
type PermissionSet struct {
	AddEmployee               bool `json:"addEmployee"`
	ViewEmployeeList          bool `json:"viewEmployeeList"`
	EditEmployee              bool `json:"editEmployee"`
	CreateDesignation         bool `json:"createDesignation"`
	ViewDesignations          bool `json:"viewDesignations"`
	EditDesignation           bool `json:"editDesignation"`
	DeleteDesignation         bool `json:"deleteDesignation"`
	CreateProject             bool `json:"createProject"`
	AssignEmployeeToProject   bool `json:"assignEmployeeToProject"`
	RemoveEmployeeFromProject bool `json:"removeEmployeeFromProject"`
	ManageCompanySettings     bool `json:"manageCompanySettings"`
}

// FullPermissions is what owners and superadmins resolve to.
func FullPermissions() PermissionSet {
	return PermissionSet{
		AddEmployee:               true,
		ViewEmployeeList:          true,
		EditEmployee:              true,
		CreateDesignation:         true,
		ViewDesignations:          true,
		EditDesignation:           true,
		DeleteDesignation:         true,
		CreateProject:             true,
		AssignEmployeeToProject:   true,
		RemoveEmployeeFromProject: true,
		ManageCompanySettings:     true,
	}
}

// DefaultMemberPermissions is the fallback for members whose designation name
// does not resolve to any designation record.
func DefaultMemberPermissions() PermissionSet {
	return PermissionSet{
		ViewEmployeeList: true,
		ViewDesignations: true,
	}
}

// Designation is a named role within a company carrying a fixed permission
// set. Lower level means higher in the hierarchy.
type Designation struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	CompanyID   uint64        `gorm:"not null;index" json:"company_id"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Level       int           `gorm:"not null;default:5" json:"level"`
	Permissions PermissionSet `gorm:"embedded;embeddedPrefix:perm_" json:"permissions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CompanyMember associates a user with a company. Designation references
// Designation.Name by string equality, not by key; the name may point at a
// designation that no longer exists.
type CompanyMember struct {
	ID            uint64         `gorm:"primarykey" json:"id"`
	CompanyID     uint64         `gorm:"not null;index" json:"company_id"`
	UserID        uint64         `gorm:"not null;index" json:"user_id"`
	Designation   string         `gorm:"type:varchar(255);not null;default:'Employee'" json:"designation"`
	ReportsToID   *uint64        `json:"reports_to_id,omitempty"`
	CurrentSalary float64        `gorm:"not null;default:0" json:"current_salary"`
	JoinedAt      time.Time      `json:"joined_at"`
	SalaryHistory []SalaryRecord `gorm:"foreignKey:MemberID" json:"salary_history,omitempty"`

	User      User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ReportsTo *User `gorm:"foreignKey:ReportsToID" json:"reports_to,omitempty"`
}

// SalaryRecord is an append-only salary history entry.
type SalaryRecord struct {
	ID            uint64    `gorm:"primarykey" json:"id"`
	MemberID      uint64    `gorm:"not null;index" json:"member_id"`
	Amount        float64   `gorm:"not null" json:"amount"`
	EffectiveDate time.Time `gorm:"not null" json:"effective_date"`
	Reason        string    `gorm:"type:varchar(255)" json:"reason"`
	UpdatedByID   *uint64   `json:"updated_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Holiday struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	CompanyID   uint64     `gorm:"not null;index" json:"company_id"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Date        *time.Time `json:"date,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsRange     bool       `gorm:"not null;default:false" json:"is_range"`
}

// CompanySettings holds company-wide time tracking parameters. Embedded into
// Company rather than stored as its own aggregate.
type CompanySettings struct {
	DefaultDurationUnit DurationUnit `gorm:"type:varchar(10);default:'hours'" json:"default_duration_unit"`
	HoursPerDay         int          `gorm:"default:8" json:"hours_per_day"`
	DaysPerWeek         int          `gorm:"default:5" json:"days_per_week"`
	WorkingHoursStart   string       `gorm:"type:varchar(5);default:'09:00'" json:"working_hours_start"`
	WorkingHoursEnd     string       `gorm:"type:varchar(5);default:'17:00'" json:"working_hours_end"`
}

type Company struct {
	ID          uint64          `gorm:"primarykey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Industry    string          `gorm:"type:varchar(255)" json:"industry,omitempty"`
	Website     string          `gorm:"type:varchar(512)" json:"website,omitempty"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	OwnerID     uint64          `gorm:"not null;index" json:"owner_id"`
	Settings    CompanySettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Owner        User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Designations []Designation `gorm:"foreignKey:CompanyID" json:"designations,omitempty"`
	Members      []CompanyMember `gorm:"foreignKey:CompanyID" json:"members,omitempty"`
	Holidays     []Holiday     `gorm:"foreignKey:CompanyID" json:"holidays,omitempty"`
}

// FindMember returns the member record for a user, or nil.
func (c *Company) FindMember(userID uint64) *CompanyMember {
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			return &c.Members[i]
		}
	}
	return nil
}

// FindDesignation resolves a designation by name, or nil when the name does
// not match any record.
func (c *Company) FindDesignation(name string) *Designation {
	for i := range c.Designations {
		if c.Designations[i].Name == name {
			return &c.Designations[i]
		}
	}
	return nil
}

// DefaultDesignations returns the designation set seeded into every new
// company.
func DefaultDesignations() []Designation {
	return []Designation{
		{
			Name:        "Managing Director",
			Description: "Chief Executive Officer",
			Level:       1,
			Permissions: FullPermissions(),
		},
		{
			Name:        "HR Manager",
			Description: "Human Resources Manager",
			Level:       2,
			Permissions: PermissionSet{
				AddEmployee:           true,
				ViewEmployeeList:      true,
				EditEmployee:          true,
				ViewDesignations:      true,
				ManageCompanySettings: true,
			},
		},
		{
			Name:        "Project Manager",
			Description: "Project Management Lead",
			Level:       2,
			Permissions: PermissionSet{
				ViewEmployeeList:          true,
				ViewDesignations:          true,
				CreateProject:             true,
				AssignEmployeeToProject:   true,
				RemoveEmployeeFromProject: true,
			},
		},
		{
			Name:        "Team Lead",
			Description: "Team Leadership Role",
			Level:       3,
			Permissions: PermissionSet{
				ViewEmployeeList:        true,
				ViewDesignations:        true,
				AssignEmployeeToProject: true,
			},
		},
		{
			Name:        "Senior Employee",
			Description: "Senior Level Employee",
			Level:       4,
			Permissions: DefaultMemberPermissions(),
		},
		{
			Name:        "Employee",
			Description: "General Employee",
			Level:       5,
			Permissions: DefaultMemberPermissions(),
		},
	}
}
