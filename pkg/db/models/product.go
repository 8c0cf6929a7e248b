package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	dbtypes "github.com/tsiki-shop/storefront-backend/pkg/db/types"
	"gorm.io/gorm"
)

// Product is a catalog listing a visitor can add to the cart.
type Product struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Title       string               `gorm:"column:title;not null"`
	Description *string              `gorm:"column:description"`
	Price       decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null"`
	ImageURL    *string              `gorm:"column:image_url"`
	MaxQty      *int                 `gorm:"column:max_qty"`
	Options     dbtypes.OptionValues `gorm:"column:options;type:jsonb;not null"`
	IsActive    bool                 `gorm:"column:is_active;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Options == nil {
		p.Options = dbtypes.OptionValues{}
	}
	return nil
}
