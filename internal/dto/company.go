package dto

import (
	"time"

	"github.com/mwrueen/offtix-back/internal/models"
)

// CompanyMemberDTO represents a company member in API responses
type CompanyMemberDTO struct {
	ID            uint64  `json:"id"`
	User          UserDTO `json:"user"`
	Designation   string  `json:"designation"`
	CurrentSalary float64 `json:"current_salary,omitempty"`

	JoinedAt time.Time `json:"joined_at"`
}

// CompanyEmployeesDTO is the employee list response. Salaries are stripped
// unless the caller holds the editEmployee capability.
type CompanyEmployeesDTO struct {
	CompanyID uint64             `json:"company_id"`
	Members   []CompanyMemberDTO `json:"members"`
}

// ToCompanyMemberDTO converts a member to DTO
func ToCompanyMemberDTO(member models.CompanyMember, includeSalary bool) CompanyMemberDTO {
	dto := CompanyMemberDTO{
		ID:          member.ID,
		User:        ToUserDTO(member.User),
		Designation: member.Designation,
		JoinedAt:    member.JoinedAt,
	}
	if includeSalary {
		dto.CurrentSalary = member.CurrentSalary
	}
	return dto
}

// ToCompanyEmployeesDTO converts a company's member list to DTO
func ToCompanyEmployeesDTO(company *models.Company, includeSalary bool) CompanyEmployeesDTO {
	members := make([]CompanyMemberDTO, len(company.Members))
	for i, member := range company.Members {
		members[i] = ToCompanyMemberDTO(member, includeSalary)
	}
	return CompanyEmployeesDTO{
		CompanyID: company.ID,
		Members:   members,
	}
}
