package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
	"gorm.io/gorm"
)

// User represents a registered storefront account.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Name         string         `gorm:"column:name;not null"`
	FirstName    *string        `gorm:"column:first_name"`
	Phone        *string        `gorm:"column:phone"`
	Country      string         `gorm:"column:country;not null"`
	NationalID   string         `gorm:"column:national_id;not null"`
	Address      string         `gorm:"column:address;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = enums.UserRoleCustomer
	}
	return nil
}
