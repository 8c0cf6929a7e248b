package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tsiki-shop/storefront-backend/pkg/db"
	"github.com/tsiki-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/pagination"
	"github.com/tsiki-shop/storefront-backend/pkg/types"
	"github.com/tsiki-shop/storefront-backend/pkg/validation"
)

type adminRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AdminService manages accounts on behalf of administrators.
type AdminService interface {
	List(ctx context.Context, params pagination.Params) (*types.Page[AdminUserDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*AdminUserDTO, error)
	UpdateName(ctx context.Context, id uuid.UUID, input UpdateNameInput) (*AdminUserDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UpdateNameInput is the PATCH payload.
type UpdateNameInput struct {
	Name string `json:"name" validate:"required,min=2"`
}

type adminService struct {
	repo adminRepository
}

func NewAdminService(repo adminRepository) (AdminService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user repository is required")
	}
	return &adminService{repo: repo}, nil
}

func (s *adminService) List(ctx context.Context, params pagination.Params) (*types.Page[AdminUserDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]string{"cursor": "is invalid"})
	}

	rows, err := s.repo.List(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	page, next := pagination.Trim(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	items := make([]AdminUserDTO, 0, len(page))
	for i := range page {
		items = append(items, *AdminFromModel(&page[i]))
	}
	return &types.Page[AdminUserDTO]{Items: items, NextCursor: next}, nil
}

func (s *adminService) Get(ctx context.Context, id uuid.UUID) (*AdminUserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "load user")
	}
	return AdminFromModel(user), nil
}

func (s *adminService) UpdateName(ctx context.Context, id uuid.UUID, input UpdateNameInput) (*AdminUserDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validation.Struct(&input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateName(ctx, id, input.Name); err != nil {
		return nil, mapStoreError(err, "update user")
	}
	return s.Get(ctx, id)
}

func (s *adminService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "delete user")
	}
	return nil
}

func mapStoreError(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
