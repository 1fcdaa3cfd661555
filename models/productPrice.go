package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"github.com/shopspring/decimal"
)

// ProductPrice is a reseller price list entry, used when a vendor export
// carries no sales-amount column and the amount must be computed as
// quantity x list price.
type ProductPrice struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ResellerId  int             `gorm:"not null;index:uniq_price_code,unique" json:"reseller_id"`
	ProductCode string          `gorm:"size:255;not null;index:uniq_price_code,unique" json:"product_code"`
	ListPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"list_price"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetProductPricesByReseller(ctx context.Context, resellerId int) ([]*ProductPrice, error) {
	db := config.GetDB()
	var prices []*ProductPrice
	err := db.WithContext(ctx).
		Where("reseller_id = ?", resellerId).
		Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}
