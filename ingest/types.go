package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"github.com/shopspring/decimal"
)

// RawRow is one extracted spreadsheet row with cells keyed by canonical
// field name (per the vendor profile's header aliases). Extraction is
// deterministic: re-opening the workbook reproduces the same sequence.
type RawRow struct {
	Sheet     string
	RowNumber int // 1-based workbook row, for error reporting only
	Fields    map[string]string

	// Set by layouts where the store comes from outside the row's own
	// store column (sheet-per-store).
	StoreIdentifier string
	StoreType       models.StoreType
}

func (r RawRow) sample() string {
	if len(r.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r.Fields[k]))
	}
	return strings.Join(parts, " | ")
}

// Candidate is a canonical sales record on its way through resolution,
// validation and insertion.
type Candidate struct {
	RowNumber int
	Sample    string

	TenantId   string
	ResellerId int

	ProductCode string // raw vendor code
	ProductId   string // resolved EAN-13 or internal id

	StoreIdentifier string
	StoreType       models.StoreType
	StoreId         int

	SaleDate time.Time
	Quantity int64
	IsReturn bool

	SalesAmount     decimal.Decimal
	Currency        string
	SalesAmountBase decimal.Decimal

	Year    int
	Month   int
	Quarter int
}

// Fact converts a fully resolved, validated candidate into the canonical
// storage record.
func (c *Candidate) Fact(batchId string) models.SalesFact {
	return models.SalesFact{
		TenantId:                c.TenantId,
		ResellerId:              c.ResellerId,
		ProductId:               c.ProductId,
		SaleDate:                c.SaleDate,
		StoreId:                 c.StoreId,
		Quantity:                c.Quantity,
		SalesAmount:             c.SalesAmount,
		Currency:                c.Currency,
		SalesAmountBaseCurrency: c.SalesAmountBase,
		Year:                    c.Year,
		Month:                   c.Month,
		Quarter:                 c.Quarter,
		UploadBatchId:           batchId,
	}
}

// ErrorReport is the structured, retrievable outcome attached to an upload.
type ErrorReport struct {
	TotalRows   int        `json:"total_rows"`
	ValidRows   int        `json:"valid_rows"`
	InvalidRows int        `json:"invalid_rows"`
	SuccessRate float64    `json:"success_rate"`
	Errors      []RowError `json:"errors"`
}

func buildErrorReport(total, valid int, errs []RowError) ErrorReport {
	report := ErrorReport{
		TotalRows:   total,
		ValidRows:   valid,
		InvalidRows: total - valid,
		Errors:      errs,
	}
	if report.Errors == nil {
		report.Errors = []RowError{}
	}
	if total > 0 {
		report.SuccessRate = float64(valid) / float64(total)
	}
	sort.SliceStable(report.Errors, func(i, j int) bool {
		return report.Errors[i].RowNumber < report.Errors[j].RowNumber
	})
	return report
}
