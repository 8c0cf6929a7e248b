package users

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/pagination"
)

func newTestAdminService(t *testing.T) (AdminService, *Repository) {
	t.Helper()
	repo := newTestRepository(t)
	svc, err := NewAdminService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestAdminServiceListPaginates(t *testing.T) {
	svc, repo := newTestAdminService(t)
	for i := 0; i < 3; i++ {
		mustCreateUser(t, repo, fmt.Sprintf("user%d@example.com", i), time.Duration(i)*time.Minute)
	}
	ctx := context.Background()

	first, err := svc.List(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "user2@example.com", first.Items[0].Email)

	second, err := svc.List(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "user0@example.com", second.Items[0].Email)
	assert.Empty(t, second.NextCursor)

	_, err = svc.List(ctx, pagination.Params{Cursor: "not a cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAdminServiceGetOmitsSecrets(t *testing.T) {
	svc, repo := newTestAdminService(t)
	user := mustCreateUser(t, repo, "secret@example.com", 0)

	dto, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)

	raw, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.NotContains(t, string(raw), "123456789012")
	assert.Contains(t, string(raw), `"role":"customer"`)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdminServiceUpdateName(t *testing.T) {
	svc, repo := newTestAdminService(t)
	user := mustCreateUser(t, repo, "rename@example.com", 0)
	ctx := context.Background()

	updated, err := svc.UpdateName(ctx, user.ID, UpdateNameInput{Name: "  Bea  "})
	require.NoError(t, err)
	assert.Equal(t, "Bea", updated.Name)

	_, err = svc.UpdateName(ctx, user.ID, UpdateNameInput{Name: "B"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at least 2 characters", details["name"])

	_, err = svc.UpdateName(ctx, uuid.New(), UpdateNameInput{Name: "Ghost"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdminServiceDelete(t *testing.T) {
	svc, repo := newTestAdminService(t)
	user := mustCreateUser(t, repo, "gone@example.com", 0)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, user.ID))
	err := svc.Delete(ctx, user.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
