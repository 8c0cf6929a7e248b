package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tsiki-shop/storefront-backend/pkg/db/models"
)

// ProductDTO is the catalog payload returned to shoppers.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Price       decimal.Decimal     `json:"price"`
	ImageURL    *string             `json:"image_url,omitempty"`
	MaxQuantity *int                `json:"max_quantity,omitempty"`
	Options     map[string][]string `json:"options"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NewProductDTO maps the persisted model into its public shape.
func NewProductDTO(p *models.Product) ProductDTO {
	options := make(map[string][]string, len(p.Options))
	for name, values := range p.Options {
		options[name] = append([]string(nil), values...)
	}
	return ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.Round(2),
		ImageURL:    p.ImageURL,
		MaxQuantity: p.MaxQty,
		Options:     options,
		CreatedAt:   p.CreatedAt.UTC(),
	}
}
