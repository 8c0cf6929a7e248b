package product

import (
	"context"

	"github.com/google/uuid"
	"github.com/tsiki-shop/storefront-backend/pkg/db"
	"github.com/tsiki-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/pagination"
	"github.com/tsiki-shop/storefront-backend/pkg/types"
	"golang.org/x/sync/singleflight"
)

type productRepository interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListActive(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Product, error)
}

// Service exposes catalog read operations.
type Service interface {
	List(ctx context.Context, params pagination.Params) (*types.Page[ProductDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	GetActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo  productRepository
	group singleflight.Group
}

// NewService builds the catalog service.
func NewService(repo productRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*types.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]string{"cursor": "is invalid"})
	}

	rows, err := s.repo.ListActive(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page, next := pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	items := make([]ProductDTO, 0, len(page))
	for i := range page {
		items = append(items, NewProductDTO(&page[i]))
	}
	return &types.Page[ProductDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(p)
	return &dto, nil
}

// GetActive loads an active product. Concurrent loads of the same id share one
// query, which runs detached from any single caller's cancellation.
func (s *service) GetActive(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(id.String(), func() (any, error) {
		return s.repo.FindActiveByID(shared, id)
	})
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	loaded := v.(*models.Product)
	clone := *loaded
	clone.Options = make(map[string][]string, len(loaded.Options))
	for name, values := range loaded.Options {
		clone.Options[name] = append([]string(nil), values...)
	}
	return &clone, nil
}
