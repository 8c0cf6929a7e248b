package middleware

import (
	"context"
	"net/http"

	"github.com/tsiki-shop/storefront-backend/api/responses"
	"github.com/tsiki-shop/storefront-backend/internal/auth"
	pkgauth "github.com/tsiki-shop/storefront-backend/pkg/auth"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
)

// SessionResolver turns a session token into the calling user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*auth.Principal, error)
}

// Session resolves the auth cookie and seeds the request context with the
// caller. Requests without a valid session are rejected.
func Session(resolver SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolver.ResolveSession(r.Context(), pkgauth.SessionTokenFromRequest(r))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithUser(r.Context(), principal.User, principal.Role)
			if logg != nil {
				ctx = logg.WithUserID(ctx, principal.User.ID.String())
				ctx = logg.WithRole(ctx, string(principal.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
