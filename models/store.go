package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"gorm.io/gorm"
)

// Store is a reseller outlet. store_identifier is the natural key the
// vendor file uses (sheet name, store code column, ...), unique per
// (tenant, reseller).
type Store struct {
	ID              int       `gorm:"primary_key" json:"id"`
	TenantId        string    `gorm:"size:64;not null;index:uniq_store_key,unique" json:"tenant_id"`
	ResellerId      int       `gorm:"not null;index:uniq_store_key,unique" json:"reseller_id"`
	StoreIdentifier string    `gorm:"size:100;not null;index:uniq_store_key,unique" json:"store_identifier"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	Type            StoreType `gorm:"size:10;not null;default:'physical'" json:"type"`
	City            string    `gorm:"size:100" json:"city"`
	CountryCode     string    `gorm:"size:2" json:"country_code"`
	IsActive        *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	StoreIdentifier string    `json:"store_identifier" binding:"required"`
	Name            string    `json:"name"`
	Type            StoreType `json:"type"`
	City            string    `json:"city"`
	CountryCode     string    `json:"country_code"`
}

// FindOrCreateStore resolves a store by natural key, creating it on first
// sight. A duplicate-key error means a concurrent worker created the same
// store between our lookup and insert; re-fetch and return the winner.
// Optimistic, lock-free recovery: the unique constraint is the arbiter.
func FindOrCreateStore(ctx context.Context, tenantId string, resellerId int, input NewStore) (*Store, error) {
	if input.StoreIdentifier == "" {
		return nil, errors.New("store identifier is required")
	}

	db := config.GetDB()

	var existing Store
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND reseller_id = ? AND store_identifier = ?", tenantId, resellerId, input.StoreIdentifier).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	storeType := input.Type
	if storeType == "" {
		storeType = StoreTypePhysical
	}
	name := input.Name
	if name == "" {
		name = input.StoreIdentifier
	}
	store := Store{
		TenantId:        tenantId,
		ResellerId:      resellerId,
		StoreIdentifier: input.StoreIdentifier,
		Name:            name,
		Type:            storeType,
		City:            input.City,
		CountryCode:     input.CountryCode,
	}
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		if !IsDuplicateKeyErr(err) {
			return nil, err
		}
		// Lost the race; the winning row is the store.
		if err := db.WithContext(ctx).
			Where("tenant_id = ? AND reseller_id = ? AND store_identifier = ?", tenantId, resellerId, input.StoreIdentifier).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return &store, nil
}

func GetStoresByReseller(ctx context.Context, tenantId string, resellerId int) ([]*Store, error) {
	db := config.GetDB()
	var stores []*Store
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND reseller_id = ?", tenantId, resellerId).
		Find(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}
