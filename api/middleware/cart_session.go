package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
)

// CartCookieName carries the visitor's cart id.
const CartCookieName = "cart_id"

// CartCookieSettings controls the cart_id cookie attributes.
type CartCookieSettings struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// CartSession makes sure every request carries a cart id. A missing or
// malformed cookie is replaced with a fresh id.
func CartSession(settings CartCookieSettings, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cartID := ""
			if c, err := r.Cookie(CartCookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					cartID = id.String()
				}
			}
			if cartID == "" {
				cartID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CartCookieName,
					Value:    cartID,
					Path:     "/",
					Domain:   settings.Domain,
					MaxAge:   int(settings.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   settings.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithCartID(r.Context(), cartID)
			if logg != nil {
				ctx = logg.WithCartID(ctx, cartID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
