package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductMapping links a reseller's free-text product code to a canonical
// EAN. Rows are written when a fuzzy match is accepted (confidence < 1) or
// seeded from reseller onboarding data (confidence = 1). Unique per
// (reseller_id, product_code) so repeated files resolve consistently.
type ProductMapping struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ResellerId         int             `gorm:"not null;index:uniq_product_code,unique" json:"reseller_id"`
	ProductCode        string          `gorm:"size:255;not null;index:uniq_product_code,unique" json:"product_code"`
	CanonicalProductId string          `gorm:"size:13;not null;index" json:"canonical_product_id"`
	MatchConfidence    decimal.Decimal `gorm:"type:decimal(4,3);not null" json:"match_confidence"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetProductMappingsByReseller(ctx context.Context, resellerId int) ([]*ProductMapping, error) {
	db := config.GetDB()
	var mappings []*ProductMapping
	err := db.WithContext(ctx).
		Where("reseller_id = ?", resellerId).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

func FindProductMapping(ctx context.Context, resellerId int, productCode string) (*ProductMapping, error) {
	db := config.GetDB()
	var mapping ProductMapping
	err := db.WithContext(ctx).
		Where("reseller_id = ? AND product_code = ?", resellerId, productCode).
		First(&mapping).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// CreateProductMapping persists an accepted match. Duplicate-tolerant:
// a concurrent worker writing the same code first wins and its row is
// returned.
func CreateProductMapping(ctx context.Context, mapping *ProductMapping) (*ProductMapping, error) {
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(mapping).Error; err != nil {
		if !IsDuplicateKeyErr(err) {
			return nil, err
		}
		existing, ferr := FindProductMapping(ctx, mapping.ResellerId, mapping.ProductCode)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return mapping, nil
}
