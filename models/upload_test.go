package models

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

// newMockDB swaps the global handle for a sqlmock-backed gorm connection
// for the duration of one test.
func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	prev := config.GetDB()
	config.SetDB(gdb)
	t.Cleanup(func() {
		config.SetDB(prev)
		sqlDB.Close()
	})
	return mock
}

func TestFailAbandonedUploads(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `uploads` SET").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	moved, err := FailAbandonedUploads(context.Background(), config.GetDB(), 15*time.Minute)
	if err != nil {
		t.Fatalf("FailAbandonedUploads error: %v", err)
	}
	if moved != 2 {
		t.Fatalf("expected 2 uploads moved to failed, got %d", moved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFailUploadWorksFromAnyPipelineStage(t *testing.T) {
	stages := []UploadStatus{
		UploadStatusPending,
		UploadStatusStaged,
		UploadStatusVendorDetected,
		UploadStatusProcessed,
		UploadStatusValidated,
	}
	mock := newMockDB(t)
	for range stages {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `uploads` SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	for _, stage := range stages {
		upload := &Upload{ID: 9, TenantId: "t1", Status: stage}
		if err := FailUpload(context.Background(), config.GetDB(), upload, "boom"); err != nil {
			t.Fatalf("FailUpload from %s: %v", stage, err)
		}
		if upload.Status != UploadStatusFailed {
			t.Fatalf("FailUpload from %s left status %s", stage, upload.Status)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
