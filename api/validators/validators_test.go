package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
)

type renameBody struct {
	Name string `json:"name" validate:"required,min=2"`
}

func TestDecodeJSONBody(t *testing.T) {
	var body renameBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana"}`))
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "Ana", body.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"A"}`))
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONRejectsEmptyAndUnknownFields(t *testing.T) {
	var body renameBody

	err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", http.NoBody), &body)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())

	err = DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana","role":"admin"}`)), &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONSkipsValidation(t *testing.T) {
	var body renameBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	assert.NoError(t, DecodeJSON(req, &body))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	got, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	got, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, got)

	_, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), "limit", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit=0", nil), "limit", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func withURLParam(key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	got, err := ParseUUIDParam(withURLParam("userId", id.String()), "userId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(withURLParam("userId", "nope"), "userId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "WELCOME10", SanitizeString("  WELCOME10 ", 64))
	assert.Equal(t, "ñañ", SanitizeString("ñañañ", 3))
}
