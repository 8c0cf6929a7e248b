package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsiki-shop/storefront-backend/internal/auth"
	"github.com/tsiki-shop/storefront-backend/internal/users"
	pkgauth "github.com/tsiki-shop/storefront-backend/pkg/auth"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
	"github.com/tsiki-shop/storefront-backend/pkg/metrics"
)

type stubResolver struct {
	principal *auth.Principal
	err       error
	gotToken  string
}

func (s *stubResolver) ResolveSession(_ context.Context, token string) (*auth.Principal, error) {
	s.gotToken = token
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required")
	}
	return s.principal, s.err
}

func TestSessionSeedsContext(t *testing.T) {
	user := &users.PublicUser{ID: uuid.New(), Email: "ana@example.com"}
	resolver := &stubResolver{principal: &auth.Principal{User: user, Role: enums.UserRoleAdmin}}

	var seen *users.PublicUser
	var role enums.UserRole
	handler := Session(resolver, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		role = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: pkgauth.SessionCookieName, Value: "token-1"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "token-1", resolver.gotToken)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
	assert.Equal(t, enums.UserRoleAdmin, role)
}

func TestSessionRejectsMissingAndInvalidTokens(t *testing.T) {
	resolver := &stubResolver{err: pkgerrors.New(pkgerrors.CodeInvalidToken, "invalid or expired session")}
	handler := Session(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: pkgauth.SessionCookieName, Value: "expired"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.UserRoleAdmin, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	user := &users.PublicUser{ID: uuid.New()}

	cases := []struct {
		name   string
		ctx    context.Context
		status int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"customer", WithUser(context.Background(), user, enums.UserRoleCustomer), http.StatusForbidden},
		{"admin", WithUser(context.Background(), user, enums.UserRoleAdmin), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tc.ctx))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestCartSessionIssuesAndReusesCookie(t *testing.T) {
	var cartID string
	handler := CartSession(CartCookieSettings{MaxAge: time.Hour}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cartID = CartIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	_, err := uuid.Parse(cartID)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CartCookieName, cookies[0].Name)
	assert.Equal(t, cartID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	issued := cartID
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, issued, cartID)
	assert.Empty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "not-a-uuid"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", cartID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRequestIDPropagates(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", 500))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)
}

func TestLoggingRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(Logging(logger.Nop(), httpMetrics))
	r.Get("/api/v1/products/{productId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Len(t, families[0].GetMetric(), 1)

	labels := map[string]string{}
	for _, pair := range families[0].GetMetric()[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, "/api/v1/products/{productId}", labels["route"])
	assert.Equal(t, "418", labels["status"])
}
