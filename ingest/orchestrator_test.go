package ingest

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
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

func TestFailPersistsAfterContextCanceled(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `uploads` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// A hard timeout cancels the run's context before fail runs; the failed
	// status must land regardless.
	ctx, cancel := context.WithCancel(utils.SetTenantIdInContext(context.Background(), "t1"))
	cancel()

	o := NewOrchestrator()
	upload := &models.Upload{ID: 41, TenantId: "t1", Status: models.UploadStatusProcessed}
	if err := o.fail(ctx, upload, "hard timeout exceeded"); err == nil {
		t.Fatal("fail must hand the cause back to the worker loop")
	}
	if upload.Status != models.UploadStatusFailed {
		t.Fatalf("expected failed status on the record, got %s", upload.Status)
	}
	if upload.FailureMessage == nil || *upload.FailureMessage != "hard timeout exceeded" {
		t.Fatalf("failure message not recorded: %v", upload.FailureMessage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("failed status was not written to the database: %v", err)
	}
}

func TestSyncStoresRegistersWorkbookStores(t *testing.T) {
	wb := buildWorkbook(t, []sheetData{{
		name: "Abverkauf",
		rows: [][]interface{}{
			{"Artikelnummer", "Filiale", "Datum", "Menge", "Umsatz"},
			{"4006381333931", "Berlin Mitte", "05.03.2024", "3", "10,00"},
			{"96385074", "Berlin Mitte", "05.03.2024", "2", "20,00"},
			{"96385074", "Hamburg Altona", "06.03.2024", "1", "30,00"},
		},
	}})
	defer wb.Close()

	fake := newFakeReference()
	o := &Orchestrator{reference: fake}
	proc := newMediamartProcessor("t1", 7, config.DefaultRateTable())

	if err := o.syncStores(context.Background(), "t1", 7, proc, wb); err != nil {
		t.Fatalf("syncStores error: %v", err)
	}
	if len(fake.stores) != 2 {
		t.Fatalf("expected 2 stores registered, got %d", len(fake.stores))
	}
	if fake.stores["Berlin Mitte"] == nil || fake.stores["Hamburg Altona"] == nil {
		t.Fatalf("unexpected store set: %+v", fake.stores)
	}
}
