package dto

import (
	"github.com/mwrueen/offtix-back/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID     uint64          `json:"id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	Avatar string          `json:"avatar,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Avatar: user.Avatar,
	}
}
