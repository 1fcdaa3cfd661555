package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"github.com/shopspring/decimal"
)

// SalesFact is the canonical, tenant-normalized sales record every vendor
// export is transformed into. Append-only: rows are created by the
// insertion engine and removed only by an explicit batch rollback.
//
// (tenant_id, reseller_id, product_id, sale_date, store_id, quantity)
// uniquely identifies a sale event; the unique index is what makes
// re-ingesting living documents safe.
type SalesFact struct {
	ID                      int             `gorm:"primary_key" json:"id"`
	TenantId                string          `gorm:"size:64;not null;uniqueIndex:uniq_sale_event,priority:1" json:"tenant_id"`
	ResellerId              int             `gorm:"not null;uniqueIndex:uniq_sale_event,priority:2" json:"reseller_id"`
	ProductId               string          `gorm:"size:36;not null;uniqueIndex:uniq_sale_event,priority:3" json:"product_id"`
	SaleDate                time.Time       `gorm:"type:date;not null;uniqueIndex:uniq_sale_event,priority:4" json:"sale_date"`
	StoreId                 int             `gorm:"not null;uniqueIndex:uniq_sale_event,priority:5" json:"store_id"`
	Quantity                int64           `gorm:"not null;uniqueIndex:uniq_sale_event,priority:6" json:"quantity"`
	SalesAmount             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"sales_amount"`
	Currency                string          `gorm:"size:3;not null" json:"currency"`
	SalesAmountBaseCurrency decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"sales_amount_base_currency"`
	Year                    int             `gorm:"not null;index" json:"year"`
	Month                   int             `gorm:"not null" json:"month"`
	Quarter                 int             `gorm:"not null" json:"quarter"`
	UploadBatchId           string          `gorm:"size:36;not null;index" json:"upload_batch_id"`
	CreatedAt               time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// DeleteSalesFactsByBatch removes every fact tied to one upload batch.
// This is the rollback primitive that makes reprocessing safe.
func DeleteSalesFactsByBatch(ctx context.Context, batchId string) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).
		Where("upload_batch_id = ?", batchId).
		Delete(&SalesFact{})
	return result.RowsAffected, result.Error
}

func CountSalesFactsByBatch(ctx context.Context, batchId string) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&SalesFact{}).
		Where("upload_batch_id = ?", batchId).
		Count(&count).Error
	return count, err
}
