package middleware

import (
	"context"

	"github.com/tsiki-shop/storefront-backend/internal/users"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
)

type contextKey string

const (
	ctxUser   contextKey = "session_user"
	ctxRole   contextKey = "actor_role"
	ctxCartID contextKey = "cart_id"
)

// UserFromContext returns the public profile resolved by Session, or nil.
func UserFromContext(ctx context.Context) *users.PublicUser {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxUser).(*users.PublicUser); ok {
		return v
	}
	return nil
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

func CartIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCartID).(string); ok {
		return v
	}
	return ""
}

// WithUser injects the resolved user and role into the context.
func WithUser(ctx context.Context, user *users.PublicUser, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUser, user)
	return context.WithValue(ctx, ctxRole, role)
}

// WithCartID injects the visitor's cart id into the context.
func WithCartID(ctx context.Context, cartID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartID, cartID)
}
