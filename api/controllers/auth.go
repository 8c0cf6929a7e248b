package controllers

import (
	"net/http"

	"github.com/tsiki-shop/storefront-backend/api/responses"
	"github.com/tsiki-shop/storefront-backend/api/validators"
	"github.com/tsiki-shop/storefront-backend/internal/auth"
	pkgauth "github.com/tsiki-shop/storefront-backend/pkg/auth"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
)

// AuthRegister creates the account and signs the new user in.
func AuthRegister(svc auth.Service, cookies pkgauth.CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, pkgauth.NewSessionCookie(cookies, session.Token))
		responses.WriteSuccessStatus(w, http.StatusCreated, session.User)
	}
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, cookies pkgauth.CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, pkgauth.NewSessionCookie(cookies, session.Token))
		responses.WriteSuccess(w, session.User)
	}
}

// AuthLogout overwrites the session cookie with an expired, empty one.
func AuthLogout(cookies pkgauth.CookieSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, pkgauth.ExpiredSessionCookie(cookies))
		responses.WriteSuccess(w, map[string]bool{"logged_out": true})
	}
}

// AuthMe resolves the session cookie into the public user.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		principal, err := svc.ResolveSession(r.Context(), pkgauth.SessionTokenFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, principal.User)
	}
}
