package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StagingFile captures raw workbook metadata for diagnosis: sheet names, a
// sample of the header row and the total row count. Linked 1:1 to an Upload
// and updated as stages progress. Kept even when the upload fails.
type StagingFile struct {
	ID           int       `gorm:"primary_key" json:"id"`
	UploadId     int       `gorm:"not null;uniqueIndex" json:"upload_id"`
	TenantId     string    `gorm:"size:64;not null;index" json:"tenant_id"`
	SheetNames   []byte    `gorm:"type:json" json:"sheet_names"`
	HeaderSample []byte    `gorm:"type:json" json:"header_sample"`
	RowCount     int       `gorm:"not null;default:0" json:"row_count"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertStagingFile records (or refreshes, on reprocessing) the staging
// metadata for an upload.
func UpsertStagingFile(ctx context.Context, tenantId string, uploadId int, sheetNames []string, headerSample []string, rowCount int) error {
	sheets, err := json.Marshal(sheetNames)
	if err != nil {
		return err
	}
	headers, err := json.Marshal(headerSample)
	if err != nil {
		return err
	}

	staging := StagingFile{
		UploadId:     uploadId,
		TenantId:     tenantId,
		SheetNames:   sheets,
		HeaderSample: headers,
		RowCount:     rowCount,
	}

	db := config.GetDB()
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "upload_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sheet_names", "header_sample", "row_count", "updated_at"}),
	}).Create(&staging).Error
}

func GetStagingFile(ctx context.Context, db *gorm.DB, uploadId int) (*StagingFile, error) {
	var staging StagingFile
	err := db.WithContext(ctx).Where("upload_id = ?", uploadId).First(&staging).Error
	if err != nil {
		return nil, err
	}
	return &staging, nil
}
