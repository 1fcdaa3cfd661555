package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
	"github.com/xuri/excelize/v2"
)

const moduleName = "ingest"

// Orchestrator drives one upload through the pipeline state machine:
// staging, vendor detection, extraction, transformation, reference
// resolution, validation, insertion. Each stage persists its transition
// before the next begins, so a crashed worker leaves an upload whose
// status says exactly how far it got.
type Orchestrator struct {
	router    *Router
	reference ReferenceClient
	insert    *InsertionEngine
	rates     *config.RateTable
}

func NewOrchestrator() *Orchestrator {
	reference := NewReferenceResolver()
	return &Orchestrator{
		router:    NewRouter(reference),
		reference: reference,
		insert:    NewInsertionEngine(),
		rates:     config.LoadRateTable(),
	}
}

// ProcessUpload runs the full pipeline for one claimed upload. Row-level
// problems are collected into the error report; only structural problems
// (unreadable file, unknown vendor, storage down) fail the upload.
func (o *Orchestrator) ProcessUpload(ctx context.Context, uploadId int) error {
	logger := config.GetLogger()
	db := config.GetDB()

	upload, err := models.GetUpload(ctx, uploadId)
	if err != nil {
		return err
	}

	ctx = utils.SetTenantIdInContext(ctx, upload.TenantId)
	ctx = utils.SetUploadIdInContext(ctx, upload.ID)

	// The temp file is consumed by this run on every exit path; the GCS
	// archive keeps the original bytes.
	defer utils.RemoveTempUpload(upload.FilePath)

	wb, err := excelize.OpenFile(upload.FilePath)
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("%v: %v", ErrWorkbookUnreadable, err))
	}
	defer wb.Close()

	sheetNames, headerSample, rowCount, err := collectStagingMetadata(wb)
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("%v: %v", ErrWorkbookUnreadable, err))
	}
	if err := models.UpsertStagingFile(ctx, upload.TenantId, upload.ID, sheetNames, headerSample, rowCount); err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("staging metadata: %v", err))
	}
	if err := models.TransitionUpload(ctx, db, upload, models.UploadStatusStaged); err != nil {
		return o.fail(ctx, upload, err.Error())
	}

	detection, err := DetectVendor(DetectionInput{
		FileName:   upload.FileName,
		SheetNames: sheetNames,
		Headers:    headerSample,
	})
	if err != nil {
		return o.fail(ctx, upload, err.Error())
	}

	reseller, err := models.GetResellerByVendor(ctx, upload.TenantId, detection.Vendor)
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("reseller lookup: %v", err))
	}
	if reseller == nil {
		return o.fail(ctx, upload, fmt.Sprintf("%v: %s", ErrResellerNotFound, detection.Vendor))
	}
	ctx = utils.SetResellerIdInContext(ctx, reseller.ID)

	if err := db.WithContext(ctx).Model(&models.Upload{}).
		Where("id = ?", upload.ID).
		Updates(map[string]interface{}{
			"vendor":      detection.Vendor,
			"reseller_id": reseller.ID,
		}).Error; err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("recording detection: %v", err))
	}
	upload.Vendor = detection.Vendor
	upload.ResellerId = &reseller.ID

	// One ingestion run at a time per (tenant, reseller). The fact table's
	// unique key is what actually guarantees idempotency; the lock only
	// keeps concurrent runs from burning work on each other's duplicates.
	release, err := utils.TenantLock(ctx, upload.TenantId, reseller.ID, moduleName, "ProcessUpload")
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("ingest lock: %v", err))
	}
	defer release()

	if err := models.TransitionUpload(ctx, db, upload, models.UploadStatusVendorDetected); err != nil {
		return o.fail(ctx, upload, err.Error())
	}

	overrides, err := models.LoadRateOverrides(ctx, upload.TenantId)
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("rate overrides: %v", err))
	}
	rates := o.rates.WithOverrides(overrides)

	profile, ok := GetVendorProfile(detection.Vendor)
	if !ok {
		return o.fail(ctx, upload, fmt.Sprintf("no profile for vendor %s", detection.Vendor))
	}
	proc, err := o.router.ProcessorFor(detection.Vendor, upload.TenantId, reseller.ID, rates)
	if err != nil {
		return o.fail(ctx, upload, err.Error())
	}

	if err := o.syncStores(ctx, upload.TenantId, reseller.ID, proc, wb); err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("store sync: %v", err))
	}

	rawRows, err := proc.ExtractRows(wb)
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("extraction: %v", err))
	}
	totalRows := len(rawRows)

	var rowErrs []RowError
	var cands []*Candidate
	for _, raw := range rawRows {
		cand, rowErr := proc.TransformRow(ctx, raw)
		if rowErr != nil {
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		cands = append(cands, cand)
	}
	cands = proc.PostProcess(cands)

	if err := models.TransitionUpload(ctx, db, upload, models.UploadStatusProcessed); err != nil {
		return o.fail(ctx, upload, err.Error())
	}

	resolved, resolveErrs, err := o.resolveReferences(ctx, upload.TenantId, reseller.ID, profile, cands)
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("reference resolution: %v", err))
	}
	rowErrs = append(rowErrs, resolveErrs...)

	valid, validationErrs, _ := NewValidationEngine(profile).Validate(ctx, resolved)
	rowErrs = append(rowErrs, validationErrs...)

	if err := models.TransitionUpload(ctx, db, upload, models.UploadStatusValidated); err != nil {
		return o.fail(ctx, upload, err.Error())
	}

	factRows := make([]FactRow, len(valid))
	for i, cand := range valid {
		factRows[i] = FactRow{
			Fact:      cand.Fact(upload.BatchId),
			RowNumber: cand.RowNumber,
			Sample:    cand.Sample,
		}
	}
	result, err := o.insert.Insert(ctx, factRows)
	if err != nil {
		return o.fail(ctx, upload, err.Error())
	}
	rowErrs = append(rowErrs, result.Errors...)

	report := buildErrorReport(totalRows, totalRows-len(rowErrs), rowErrs)
	reportJSON, err := utils.MarshalToJSON(report)
	if err != nil {
		return o.fail(ctx, upload, fmt.Sprintf("error report: %v", err))
	}

	status := models.UploadStatusCompleted
	if len(rowErrs) > 0 {
		status = models.UploadStatusPartial
	}
	upload.TotalRows = totalRows
	upload.InsertedCount = result.Inserted
	upload.DuplicateCount = result.Duplicates
	upload.FailedCount = len(rowErrs)
	if err := models.FinalizeUpload(ctx, db, upload, status, []byte(reportJSON)); err != nil {
		return o.fail(ctx, upload, err.Error())
	}

	o.notify(ctx, upload)
	logger.WithField("module", moduleName).
		WithField("upload_id", upload.ID).
		WithField("status", string(upload.Status)).
		WithField("inserted", result.Inserted).
		WithField("duplicates", result.Duplicates).
		Info("upload processed")
	return nil
}

// syncStores registers every store the workbook names before row-level
// resolution starts. Stores come from sheet names or store columns
// depending on the vendor; registering them up front warms the store
// cache so per-row lookups do not race inserts across workers.
func (o *Orchestrator) syncStores(ctx context.Context, tenantId string, resellerId int, proc Processor, wb *excelize.File) error {
	stores, err := proc.ExtractStores(wb)
	if err != nil {
		return err
	}
	for _, store := range stores {
		if _, err := o.reference.GetOrCreateStore(ctx, tenantId, resellerId, store); err != nil {
			return err
		}
	}
	return nil
}

// resolveReferences fills StoreId and ProductId on each candidate. Rows
// referencing unknown products or blank stores become row errors; database
// failures abort the run.
func (o *Orchestrator) resolveReferences(ctx context.Context, tenantId string, resellerId int, profile VendorProfile, cands []*Candidate) ([]*Candidate, []RowError, error) {
	allowNonNumeric := profile.AllowNonNumericCodes && !config.StrictNumericProductCodes()

	var resolved []*Candidate
	var rowErrs []RowError
	for _, cand := range cands {
		if cand.StoreIdentifier == "" {
			rowErrs = append(rowErrs, RowError{
				RowNumber: cand.RowNumber,
				Kind:      ErrKindUnmappedStore,
				Message:   "row has no store identifier",
				Sample:    cand.Sample,
			})
			continue
		}
		store, err := o.reference.GetOrCreateStore(ctx, tenantId, resellerId, models.NewStore{
			StoreIdentifier: cand.StoreIdentifier,
			Type:            cand.StoreType,
		})
		if err != nil {
			return nil, nil, err
		}
		cand.StoreId = store.ID

		productId, err := o.reference.ResolveProduct(ctx, resellerId, cand.ProductCode, allowNonNumeric)
		if err != nil {
			switch {
			case errors.Is(err, ErrProductUnmapped):
				rowErrs = append(rowErrs, RowError{
					RowNumber: cand.RowNumber,
					Kind:      ErrKindUnmappedProduct,
					Message:   err.Error(),
					Sample:    cand.Sample,
				})
			case errors.Is(err, ErrProductCodeFormat):
				rowErrs = append(rowErrs, RowError{
					RowNumber: cand.RowNumber,
					Kind:      ErrKindValidation,
					Message:   err.Error(),
					Sample:    cand.Sample,
				})
			default:
				return nil, nil, err
			}
			continue
		}
		cand.ProductId = productId
		resolved = append(resolved, cand)
	}
	return resolved, rowErrs, nil
}

// fail moves the upload to failed, records the cause and emits the
// terminal event. The returned error carries the cause up to the worker
// loop for logging.
func (o *Orchestrator) fail(ctx context.Context, upload *models.Upload, cause string) error {
	logger := config.GetLogger()
	db := config.GetDB()
	// The run's context may already be canceled (hard timeout is one of the
	// causes that land here); the failed status must still be written or the
	// upload is stranded in a non-terminal state forever.
	persistCtx := context.WithoutCancel(ctx)
	if err := models.FailUpload(persistCtx, db, upload, cause); err != nil {
		config.LogError(logger, moduleName, "fail", "could not persist failure", upload.ID, err)
	}
	o.notify(persistCtx, upload)
	return fmt.Errorf("upload %d failed: %s", upload.ID, cause)
}

func (o *Orchestrator) notify(ctx context.Context, upload *models.Upload) {
	logger := config.GetLogger()
	event := config.UploadStatusEvent{
		TenantId:   upload.TenantId,
		UploadId:   upload.ID,
		Status:     string(upload.Status),
		Total:      upload.TotalRows,
		Inserted:   upload.InsertedCount,
		Duplicate:  upload.DuplicateCount,
		Failed:     upload.FailedCount,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := config.PublishUploadStatus(ctx, event); err != nil {
		config.LogError(logger, moduleName, "notify", "could not publish status event", upload.ID, err)
	}
}

// collectStagingMetadata gathers the raw facts detection and diagnosis
// need: sheet names, the first rows of every sheet as a header sample, and
// the data row count.
func collectStagingMetadata(wb *excelize.File) (sheetNames []string, headerSample []string, rowCount int, err error) {
	sheetNames = wb.GetSheetList()
	for _, sheet := range sheetNames {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("reading sheet %q: %v", sheet, err)
		}
		// header rows differ per vendor; sample the first two rows
		for i := 0; i < len(rows) && i < 2; i++ {
			for _, cell := range rows[i] {
				if cell != "" {
					headerSample = append(headerSample, cell)
				}
			}
		}
		if len(rows) > 1 {
			rowCount += len(rows) - 1
		}
	}
	return sheetNames, headerSample, rowCount, nil
}
