package main

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/ingest"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
)

const maxUploadSizeBytes int64 = 50 * 1024 * 1024

var workbookExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// archiveObjectName is hash-addressed so the archive deduplicates with the
// upload table and a retry can always find its bytes again.
func archiveObjectName(tenantId, fileHash, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return path.Join(tenantId, "uploads", fileHash+ext)
}

// createUploadHandler receives a vendor workbook, stores it in the temp
// store, registers the upload and queues it for processing. Identical bytes
// from the same tenant return the existing upload instead of a new one.
func createUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		tenantId, _ := utils.GetTenantIdFromContext(ctx)
		if tenantId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "x-tenant-id header is required"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 50MB limit"})
			return
		}
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if !workbookExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type, expected .xlsx or .xls"})
			return
		}

		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer src.Close()

		tempPath, fileHash, size, err := utils.SaveTempUpload(fileHeader.Filename, src)
		if err != nil {
			config.LogError(logger, "uploads.go", "createUploadHandler", "SaveTempUpload", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
			return
		}

		upload, created, err := models.CreateUpload(ctx, &models.NewUpload{
			FileName: fileHeader.Filename,
			FileHash: fileHash,
			FilePath: tempPath,
		})
		if err != nil {
			utils.RemoveTempUpload(tempPath)
			config.LogError(logger, "uploads.go", "createUploadHandler", "CreateUpload", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register upload"})
			return
		}
		if !created {
			// Same bytes already known to this tenant; the new temp copy is
			// unneeded.
			utils.RemoveTempUpload(tempPath)
			c.JSON(http.StatusOK, gin.H{
				"data":      upload,
				"duplicate": true,
			})
			return
		}

		// Archive is best-effort; the pipeline reads the temp copy.
		if utils.ArchiveEnabled() {
			if archived, err := os.Open(tempPath); err == nil {
				objectName := archiveObjectName(tenantId, fileHash, fileHeader.Filename)
				if err := utils.ArchiveUploadToGCS(ctx, objectName, archived); err != nil {
					config.LogError(logger, "uploads.go", "createUploadHandler", "ArchiveUploadToGCS", objectName, err)
				} else {
					db := config.GetDB()
					_ = db.WithContext(ctx).Model(&models.Upload{}).
						Where("id = ?", upload.ID).
						Update("is_archived", true).Error
				}
				archived.Close()
			}
		}

		logger.WithFields(logrus.Fields{
			"tenant_id": tenantId,
			"upload_id": upload.ID,
			"file_name": upload.FileName,
			"size":      size,
		}).Info("[upload.received]")

		c.JSON(http.StatusCreated, gin.H{"data": upload})
	}
}

func getUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
			return
		}
		upload, err := models.GetUpload(c.Request.Context(), id)
		if err == utils.ErrorRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": upload})
	}
}

// uploadReportHandler returns the structured row-level error report of a
// finished upload.
func uploadReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
			return
		}
		upload, err := models.GetUpload(c.Request.Context(), id)
		if err == utils.ErrorRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !upload.Status.IsTerminal() {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("upload is %s, report not available yet", upload.Status)})
			return
		}

		var report ingest.ErrorReport
		if len(upload.ErrorReport) > 0 {
			if err := utils.UnmarshalFromJSON(upload.ErrorReport, &report); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "stored report is unreadable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"upload_id":       upload.ID,
				"status":          upload.Status,
				"failure_message": upload.FailureMessage,
				"report":          report,
			},
		})
	}
}

// retryUploadHandler requeues a terminal upload. If the temp file was
// already cleaned up, the archived copy is fetched back first.
func retryUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
			return
		}
		upload, err := models.GetUpload(ctx, id)
		if err == utils.ErrorRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !upload.Status.IsTerminal() {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("upload is %s, only terminal uploads can be retried", upload.Status)})
			return
		}

		if _, statErr := os.Stat(upload.FilePath); statErr != nil {
			if !utils.ArchiveEnabled() {
				c.JSON(http.StatusConflict, gin.H{"error": "original file is gone and no archive is configured"})
				return
			}
			objectName := archiveObjectName(upload.TenantId, upload.FileHash, upload.FileName)
			newPath, fetchErr := utils.FetchUploadFromGCS(ctx, objectName, upload.FileName)
			if fetchErr != nil {
				config.LogError(logger, "uploads.go", "retryUploadHandler", "FetchUploadFromGCS", objectName, fetchErr)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not restore archived file"})
				return
			}
			db := config.GetDB()
			if err := db.WithContext(ctx).Model(&models.Upload{}).
				Where("id = ?", upload.ID).
				Update("file_path", newPath).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		if err := models.RequeueUpload(ctx, id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"tenant_id": upload.TenantId,
			"upload_id": upload.ID,
		}).Info("[upload.requeued]")
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"upload_id": upload.ID,
			"status":    models.UploadStatusPending,
		}})
	}
}

func listVendorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		vendors := ingest.SupportedVendors()
		c.JSON(http.StatusOK, gin.H{"data": vendors})
	}
}
