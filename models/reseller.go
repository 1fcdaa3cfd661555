package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"gorm.io/gorm"
)

// Reseller is the vendor relationship an upload belongs to. Vendor is the
// detector's canonical vendor name; an upload's reseller_id stays nil until
// detection resolves it.
type Reseller struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"size:64;not null;index:uniq_tenant_vendor,unique" json:"tenant_id"`
	Vendor    string    `gorm:"size:50;not null;index:uniq_tenant_vendor,unique" json:"vendor"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Currency  string    `gorm:"size:3;not null" json:"currency"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetReseller(ctx context.Context, id int) (*Reseller, error) {
	var reseller Reseller
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).First(&reseller).Error
	if err != nil {
		return nil, err
	}
	return &reseller, nil
}

// GetResellerByVendor resolves the tenant's reseller for a detected vendor.
func GetResellerByVendor(ctx context.Context, tenantId string, vendor string) (*Reseller, error) {
	var reseller Reseller
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND vendor = ? AND is_active = true", tenantId, vendor).
		First(&reseller).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reseller, nil
}
