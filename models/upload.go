package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Upload is the durable record of one vendor file submission. Created at
// intake, mutated only by the ingestion pipeline, never hard-deleted.
// (tenant_id, file_hash) is unique: re-submitting identical bytes returns
// the existing upload instead of creating a second one.
type Upload struct {
	ID             int          `gorm:"primary_key" json:"id"`
	TenantId       string       `gorm:"size:64;not null;index:uniq_tenant_hash,unique" json:"tenant_id"`
	FileHash       string       `gorm:"size:64;not null;index:uniq_tenant_hash,unique" json:"file_hash"`
	ResellerId     *int         `gorm:"index" json:"reseller_id"`
	FileName       string       `gorm:"size:255;not null" json:"file_name"`
	FilePath       string       `gorm:"size:512" json:"-"`
	Vendor         string       `gorm:"size:50;index" json:"vendor"`
	BatchId        string       `gorm:"size:36;not null;index" json:"batch_id"`
	Status         UploadStatus `gorm:"size:20;not null;index" json:"status"`
	TotalRows      int          `gorm:"not null;default:0" json:"total_rows"`
	InsertedCount  int          `gorm:"not null;default:0" json:"inserted_count"`
	DuplicateCount int          `gorm:"not null;default:0" json:"duplicate_count"`
	FailedCount    int          `gorm:"not null;default:0" json:"failed_count"`
	ErrorReport    []byte       `gorm:"type:json" json:"error_report"`
	FailureMessage *string      `gorm:"type:text" json:"failure_message"`
	QueuedAt       *time.Time   `json:"queued_at"`
	LockedAt       *time.Time   `gorm:"index" json:"-"`
	LockedBy       *string      `gorm:"size:100" json:"-"`
	IsArchived     bool         `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUpload struct {
	FileName   string `json:"file_name" binding:"required"`
	FileHash   string `json:"file_hash" binding:"required"`
	FilePath   string `json:"file_path" binding:"required"`
	ResellerId *int   `json:"reseller_id"`
}

// CreateUpload registers a new upload in pending state and queues it.
// If the same bytes were already submitted by this tenant, the existing
// record is returned with created=false.
func CreateUpload(ctx context.Context, input *NewUpload) (upload *Upload, created bool, err error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, false, errors.New("tenant id is required")
	}

	now := time.Now().UTC()
	upload = &Upload{
		TenantId:   tenantId,
		FileHash:   input.FileHash,
		FileName:   input.FileName,
		FilePath:   input.FilePath,
		ResellerId: input.ResellerId,
		BatchId:    uuid.NewString(),
		Status:     UploadStatusPending,
		QueuedAt:   &now,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(upload).Error; err != nil {
		if !IsDuplicateKeyErr(err) {
			return nil, false, err
		}
		existing, ferr := GetUploadByHash(ctx, input.FileHash)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	return upload, true, nil
}

func GetUpload(ctx context.Context, id int) (*Upload, error) {
	var upload Upload
	db := config.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).First(&upload).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func GetUploadByHash(ctx context.Context, fileHash string) (*Upload, error) {
	var upload Upload
	db := config.GetDB()
	err := db.WithContext(ctx).Where("file_hash = ?", fileHash).First(&upload).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

// TransitionUpload persists a state-machine transition. Rejecting invalid
// transitions here keeps every pipeline stage honest about ordering.
func TransitionUpload(ctx context.Context, db *gorm.DB, upload *Upload, to UploadStatus) error {
	if !CanTransitionUpload(upload.Status, to) {
		return fmt.Errorf("invalid upload transition %s -> %s", upload.Status, to)
	}
	if err := db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", upload.ID).
		Update("status", to).Error; err != nil {
		return err
	}
	upload.Status = to
	return nil
}

// FailUpload moves any non-terminal upload to failed and records the cause.
func FailUpload(ctx context.Context, db *gorm.DB, upload *Upload, cause string) error {
	if err := db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", upload.ID).
		Updates(map[string]interface{}{
			"status":          UploadStatusFailed,
			"failure_message": &cause,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error; err != nil {
		return err
	}
	upload.Status = UploadStatusFailed
	upload.FailureMessage = &cause
	return nil
}

// FinalizeUpload persists terminal counts and the structured error report.
func FinalizeUpload(ctx context.Context, db *gorm.DB, upload *Upload, status UploadStatus, report []byte) error {
	if !CanTransitionUpload(upload.Status, status) {
		return fmt.Errorf("invalid upload transition %s -> %s", upload.Status, status)
	}
	if err := db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", upload.ID).
		Updates(map[string]interface{}{
			"status":          status,
			"total_rows":      upload.TotalRows,
			"inserted_count":  upload.InsertedCount,
			"duplicate_count": upload.DuplicateCount,
			"failed_count":    upload.FailedCount,
			"error_report":    report,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error; err != nil {
		return err
	}
	upload.Status = status
	upload.ErrorReport = report
	return nil
}

// RequeueUpload resets a terminal upload to pending for reprocessing.
// Counts and the previous report are cleared; the batch id is kept so a
// prior partial batch stays addressable for rollback.
func RequeueUpload(ctx context.Context, id int) error {
	db := config.GetDB()
	upload, err := GetUpload(ctx, id)
	if err != nil {
		return err
	}
	if !upload.Status.IsTerminal() {
		return fmt.Errorf("upload %d is %s, only terminal uploads can be requeued", id, upload.Status)
	}
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          UploadStatusPending,
			"total_rows":      0,
			"inserted_count":  0,
			"duplicate_count": 0,
			"failed_count":    0,
			"error_report":    nil,
			"failure_message": nil,
			"queued_at":       &now,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error
}

// ClaimQueuedUploads claims up to limit pending uploads for a worker using
// FOR UPDATE SKIP LOCKED, reclaiming stale locks from dead workers.
func ClaimQueuedUploads(ctx context.Context, db *gorm.DB, workerId string, limit int, lockTTL time.Duration) ([]Upload, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-lockTTL)

	var claimed []Upload
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("status = ?", UploadStatusPending).
			Where("(locked_at IS NULL OR locked_at <= ?)", staleBefore).
			Order("queued_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &workerId
			if err := tx.Model(&Upload{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"locked_at": claimed[i].LockedAt,
					"locked_by": claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// FailAbandonedUploads moves uploads stranded mid-pipeline by a dead or
// timed-out worker to failed. Claims only cover pending rows, so an upload
// whose worker died after a stage transition would otherwise never reach a
// terminal status and could never be retried.
func FailAbandonedUploads(ctx context.Context, db *gorm.DB, lockTTL time.Duration) (int64, error) {
	staleBefore := time.Now().UTC().Add(-lockTTL)
	result := db.WithContext(ctx).Model(&Upload{}).
		Where("status IN ?", []UploadStatus{
			UploadStatusStaged,
			UploadStatusVendorDetected,
			UploadStatusProcessed,
			UploadStatusValidated,
		}).
		Where("locked_at IS NOT NULL AND locked_at <= ?", staleBefore).
		Updates(map[string]interface{}{
			"status":          UploadStatusFailed,
			"failure_message": "worker lost mid-run, upload abandoned",
			"locked_at":       nil,
			"locked_by":       nil,
		})
	return result.RowsAffected, result.Error
}

// ReleaseUploadLock clears a worker claim without touching status.
func ReleaseUploadLock(ctx context.Context, db *gorm.DB, id int) error {
	return db.WithContext(ctx).Model(&Upload{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"locked_at": nil,
			"locked_by": nil,
		}).Error
}
