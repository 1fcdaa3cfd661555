package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"github.com/shopspring/decimal"
)

// CurrencyRateOverride lets a tenant pin its own conversion rate for a
// vendor currency. Layered over the shipped rate table at pipeline start.
type CurrencyRateOverride struct {
	ID        int             `gorm:"primary_key" json:"id"`
	TenantId  string          `gorm:"size:64;not null;index:uniq_tenant_currency,unique" json:"tenant_id"`
	Currency  string          `gorm:"size:3;not null;index:uniq_tenant_currency,unique" json:"currency"`
	Rate      decimal.Decimal `gorm:"type:decimal(12,6);not null" json:"rate"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func LoadRateOverrides(ctx context.Context, tenantId string) (map[string]decimal.Decimal, error) {
	db := config.GetDB()
	var overrides []CurrencyRateOverride
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]decimal.Decimal, len(overrides))
	for _, o := range overrides {
		result[o.Currency] = o.Rate
	}
	return result, nil
}
