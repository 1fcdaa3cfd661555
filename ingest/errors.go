package ingest

import "errors"

// Fatal conditions abort the whole upload. Row-level conditions are
// aggregated into the error report and never abort the batch.
var (
	// ErrVendorNotDetected: no vendor signature scored at or above the
	// detection threshold.
	ErrVendorNotDetected = errors.New("vendor not detected")

	// ErrWorkbookUnreadable: the file is not a readable Excel workbook.
	ErrWorkbookUnreadable = errors.New("workbook unreadable")

	// ErrSheetMissing: a sheet the vendor profile requires is absent.
	ErrSheetMissing = errors.New("expected sheet missing")

	// ErrResellerNotFound: the tenant has no active reseller for the
	// detected vendor.
	ErrResellerNotFound = errors.New("no active reseller for detected vendor")

	// ErrPipelineFatal: storage or queue unreachable mid-pipeline.
	ErrPipelineFatal = errors.New("pipeline fatal error")
)

// Row-level error kinds, serialized into the upload error report.
const (
	ErrKindTransform        = "transform_error"
	ErrKindValidation       = "validation_error"
	ErrKindUnmappedProduct  = "unmapped_product"
	ErrKindUnmappedStore    = "unmapped_store"
	ErrKindInsertionFailure = "insertion_failure"
)

// RowError records one recovered row-level condition. The row is skipped,
// the rest of the batch continues.
type RowError struct {
	RowNumber int    `json:"row_number"`
	Kind      string `json:"error_type"`
	Message   string `json:"error_message"`
	Sample    string `json:"row_data_sample"`
}
