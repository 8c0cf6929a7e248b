package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/tsiki-shop/storefront-backend/pkg/db/models"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
)

// PublicUser is the only user shape auth endpoints return.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	FirstName *string   `json:"first_name,omitempty"`
}

// AdminUserDTO is the admin view. It never carries the hash or national id.
type AdminUserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	FirstName *string        `json:"first_name,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	Country   string         `json:"country"`
	Address   string         `json:"address"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	FirstName    *string
	Phone        *string
	Country      string
	NationalID   string
	Address      string
	Role         enums.UserRole
}

func PublicFromModel(u *models.User) *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		FirstName: u.FirstName,
	}
}

func AdminFromModel(u *models.User) *AdminUserDTO {
	if u == nil {
		return nil
	}
	return &AdminUserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		FirstName: u.FirstName,
		Phone:     u.Phone,
		Country:   u.Country,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		FirstName:    c.FirstName,
		Phone:        c.Phone,
		Country:      c.Country,
		NationalID:   c.NationalID,
		Address:      c.Address,
		Role:         role,
	}
}
