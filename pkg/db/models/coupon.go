package models

import "time"

// Coupon is a percentage discount code redeemable against a cart.
type Coupon struct {
	Code       string    `gorm:"column:code;primaryKey"`
	PercentOff int       `gorm:"column:percent_off;not null"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// All lists the models managed by AutoMigrate.
func All() []any {
	return []any{&User{}, &Product{}, &Coupon{}}
}
