package auth

import (
	"time"

	"github.com/tsiki-shop/storefront-backend/internal/users"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Name            string  `json:"name" validate:"required,min=2"`
	FirstName       *string `json:"first_name,omitempty" validate:"omitempty,min=2"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,min=6"`
	Country         string  `json:"country" validate:"required,min=1"`
	NationalID      string  `json:"national_id" validate:"required,len=12"`
	Address         string  `json:"address" validate:"required,min=2"`
	Password        string  `json:"password" validate:"required,min=8,hasletter,hasdigit"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password"`
	AcceptTerms     bool    `json:"accept_terms" validate:"accepted"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is an issued session token plus the user it belongs to. The token
// travels only in the cookie.
type Session struct {
	Token     string            `json:"-"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      *users.PublicUser `json:"user"`
}

// Principal is the caller resolved from a session token.
type Principal struct {
	User *users.PublicUser
	Role enums.UserRole
}
