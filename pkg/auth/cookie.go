package auth

import (
	"net/http"
	"time"

	"github.com/tsiki-shop/storefront-backend/pkg/config"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "auth"

// CookieSettings describes the attributes shared by session cookies.
type CookieSettings struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// CookieSettingsFromConfig derives cookie attributes: Secure in production or when forced.
func CookieSettingsFromConfig(cfg *config.Config) CookieSettings {
	return CookieSettings{
		Domain: cfg.Cookie.Domain,
		Secure: cfg.App.IsProd() || cfg.Cookie.Secure,
		MaxAge: cfg.JWT.TTL(),
	}
}

// NewSessionCookie wraps a signed token into the http-only session cookie.
func NewSessionCookie(settings CookieSettings, token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   int(settings.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie clears the session cookie with the same attributes it was set with.
func ExpiredSessionCookie(settings CookieSettings) *http.Cookie {
	cookie := NewSessionCookie(settings, "")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

// SessionTokenFromRequest returns the session cookie value, or "" when absent.
func SessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
