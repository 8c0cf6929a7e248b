package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
)

// SessionPayload captures the data available when minting a session token.
type SessionPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
	JTI    string
}

// SessionClaims represents the typed JWT carried in the session cookie.
// The user id travels as the registered subject.
type SessionClaims struct {
	Email string         `json:"email"`
	Role  enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *SessionClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
