package ingest

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
)

// DefaultInsertBatchSize bounds one INSERT statement.
const DefaultInsertBatchSize = 1000

// FactRow pairs a storable fact with its source row for error attribution.
type FactRow struct {
	Fact      models.SalesFact
	RowNumber int
	Sample    string
}

type InsertionResult struct {
	Inserted   int
	Duplicates int
	Errors     []RowError
}

// InsertionEngine writes validated facts in batches. The natural key
// (tenant, reseller, product, date, store, quantity) makes re-uploads
// idempotent: a batch that trips the unique index is retried row by row so
// duplicates are counted and skipped while new rows still land.
type InsertionEngine struct {
	BatchSize int
}

func NewInsertionEngine() *InsertionEngine {
	return &InsertionEngine{BatchSize: DefaultInsertBatchSize}
}

func (e *InsertionEngine) Insert(ctx context.Context, rows []FactRow) (InsertionResult, error) {
	var result InsertionResult
	if len(rows) == 0 {
		return result, nil
	}
	db := config.GetDB()

	for _, chunk := range chunkFactRows(rows, e.BatchSize) {
		facts := make([]models.SalesFact, len(chunk))
		for i, row := range chunk {
			facts[i] = row.Fact
		}
		err := db.WithContext(ctx).Create(&facts).Error
		if err == nil {
			result.Inserted += len(chunk)
			continue
		}
		if !models.IsDuplicateKeyErr(err) {
			return result, fmt.Errorf("%w: batch insert: %v", ErrPipelineFatal, err)
		}

		// At least one row in the chunk already exists. Fall back to
		// row-by-row so the new rows still insert and the duplicates are
		// counted rather than failing the upload.
		for _, row := range chunk {
			fact := row.Fact
			rowErr := db.WithContext(ctx).Create(&fact).Error
			switch {
			case rowErr == nil:
				result.Inserted++
			case models.IsDuplicateKeyErr(rowErr):
				result.Duplicates++
			default:
				result.Errors = append(result.Errors, RowError{
					RowNumber: row.RowNumber,
					Kind:      ErrKindInsertionFailure,
					Message:   rowErr.Error(),
					Sample:    row.Sample,
				})
			}
		}
	}
	return result, nil
}

// Rollback removes every fact an upload batch inserted.
func (e *InsertionEngine) Rollback(ctx context.Context, batchId string) (int64, error) {
	return models.DeleteSalesFactsByBatch(ctx, batchId)
}

func chunkFactRows(rows []FactRow, size int) [][]FactRow {
	if size <= 0 {
		size = DefaultInsertBatchSize
	}
	var chunks [][]FactRow
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
