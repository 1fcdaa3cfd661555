package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"bitbucket.org/mmdatafocus/salesfacts_backend/models"
	"bitbucket.org/mmdatafocus/salesfacts_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Processor turns one vendor's workbook into canonical candidates.
// One variant per vendor: quirks live in the variant, not in conditionals
// scattered through shared code.
//
// ExtractRows is restartable: re-opening the workbook and re-extracting
// reproduces the same sequence, so a retried upload behaves identically.
type Processor interface {
	Vendor() string
	ExtractRows(wb *excelize.File) ([]RawRow, error)
	TransformRow(ctx context.Context, raw RawRow) (*Candidate, *RowError)
	ExtractStores(wb *excelize.File) ([]models.NewStore, error)

	// PostProcess runs after all rows are transformed. Most vendors pass
	// through; aggregating vendors collapse rows here.
	PostProcess(cands []*Candidate) []*Candidate
}

// errNoMappedColumns marks a sheet whose header row matched none of the
// vendor's column aliases.
var errNoMappedColumns = errors.New("no recognizable columns")

// baseProcessor carries the shared extraction/transform machinery all
// vendor variants build on.
type baseProcessor struct {
	profile    VendorProfile
	tenantId   string
	resellerId int
	rates      *config.RateTable
}

func (p *baseProcessor) Vendor() string { return p.profile.Vendor }

func (p *baseProcessor) PostProcess(cands []*Candidate) []*Candidate { return cands }

// targetSheets resolves the profile's sheet list against the workbook.
// A configured sheet that is absent is an extraction error; the file does
// not match its vendor's layout.
func (p *baseProcessor) targetSheets(wb *excelize.File) ([]string, error) {
	available := wb.GetSheetList()
	if len(p.profile.TargetSheets) == 0 {
		return available, nil
	}
	availSet := make(map[string]string, len(available))
	for _, name := range available {
		availSet[strings.ToLower(name)] = name
	}
	var sheets []string
	for _, want := range p.profile.TargetSheets {
		actual, ok := availSet[strings.ToLower(want)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrSheetMissing, want)
		}
		sheets = append(sheets, actual)
	}
	return sheets, nil
}

// extractSheetRows reads one sheet: locates the header row, maps columns to
// canonical fields via the profile aliases, and emits one RawRow per data
// row. Blank rows are skipped.
func (p *baseProcessor) extractSheetRows(wb *excelize.File, sheet string) ([]RawRow, error) {
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %v", sheet, err)
	}
	headerIdx := p.profile.HeaderRow - 1
	if headerIdx < 0 {
		headerIdx = 0
	}
	if len(rows) <= headerIdx {
		return nil, fmt.Errorf("%w: sheet %q has no header row", errNoMappedColumns, sheet)
	}

	// column index -> canonical field
	fieldByCol := map[int]string{}
	for col, header := range rows[headerIdx] {
		if field := p.profile.FieldForHeader(header); field != "" {
			fieldByCol[col] = field
		}
	}
	if len(fieldByCol) == 0 {
		return nil, fmt.Errorf("%w: sheet %q, vendor %s", errNoMappedColumns, sheet, p.profile.Vendor)
	}

	var extracted []RawRow
	for i := headerIdx + 1; i < len(rows); i++ {
		fields := map[string]string{}
		empty := true
		for col, field := range fieldByCol {
			var value string
			if col < len(rows[i]) {
				value = strings.TrimSpace(rows[i][col])
			}
			fields[field] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		extracted = append(extracted, RawRow{
			Sheet:     sheet,
			RowNumber: i + 1,
			Fields:    fields,
		})
	}
	return extracted, nil
}

func (p *baseProcessor) ExtractRows(wb *excelize.File) ([]RawRow, error) {
	sheets, err := p.targetSheets(wb)
	if err != nil {
		return nil, err
	}
	var all []RawRow
	for _, sheet := range sheets {
		rows, err := p.extractSheetRows(wb, sheet)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// ExtractStores defaults to the distinct values of the row-level store
// column. Variants with other layouts override.
func (p *baseProcessor) ExtractStores(wb *excelize.File) ([]models.NewStore, error) {
	rows, err := p.ExtractRows(wb)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var stores []models.NewStore
	for _, row := range rows {
		identifier := strings.TrimSpace(row.Fields[FieldStore])
		if identifier == "" || seen[identifier] {
			continue
		}
		seen[identifier] = true
		stores = append(stores, models.NewStore{
			StoreIdentifier: identifier,
			Type:            models.StoreTypePhysical,
		})
	}
	return stores, nil
}

// transformCommon performs the vendor-independent part of a row transform:
// product code, date, quantity, amount, currency conversion, calendar
// derivation. Variants call it and layer their quirks on top.
func (p *baseProcessor) transformCommon(raw RawRow) (*Candidate, *RowError) {
	rowErr := func(format string, args ...interface{}) *RowError {
		return &RowError{
			RowNumber: raw.RowNumber,
			Kind:      ErrKindTransform,
			Message:   fmt.Sprintf(format, args...),
			Sample:    raw.sample(),
		}
	}

	code := strings.TrimSpace(raw.Fields[FieldProductCode])
	if code == "" {
		return nil, rowErr("missing product code")
	}

	saleDate, err := p.parseDate(raw.Fields[FieldDate])
	if err != nil {
		return nil, rowErr("invalid date %q", raw.Fields[FieldDate])
	}

	quantity, isReturn, err := parseQuantity(raw.Fields[FieldQuantity], p.profile.ParenthesisReturns)
	if err != nil {
		return nil, rowErr("invalid quantity %q", raw.Fields[FieldQuantity])
	}

	candidate := &Candidate{
		RowNumber:       raw.RowNumber,
		Sample:          raw.sample(),
		TenantId:        p.tenantId,
		ResellerId:      p.resellerId,
		ProductCode:     code,
		StoreIdentifier: strings.TrimSpace(raw.Fields[FieldStore]),
		StoreType:       models.StoreTypePhysical,
		SaleDate:        saleDate,
		Quantity:        quantity,
		IsReturn:        isReturn,
		Currency:        p.profile.Currency,
		Year:            saleDate.Year(),
		Month:           int(saleDate.Month()),
		Quarter:         quarterOf(int(saleDate.Month())),
	}
	if raw.StoreIdentifier != "" {
		candidate.StoreIdentifier = raw.StoreIdentifier
		candidate.StoreType = raw.StoreType
	}

	if p.profile.HasAmountColumn() {
		amount, err := p.parseAmount(raw.Fields[FieldAmount])
		if err != nil {
			return nil, rowErr("invalid amount %q", raw.Fields[FieldAmount])
		}
		candidate.SalesAmount = amount
		base, err := p.convertToBase(amount)
		if err != nil {
			return nil, rowErr("%v", err)
		}
		candidate.SalesAmountBase = base
	}

	return candidate, nil
}

func (p *baseProcessor) parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	formats := p.profile.DateFormats
	if len(formats) == 0 {
		formats = []string{"2006-01-02"}
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC(), nil
		}
	}
	// excelize may hand back datetime-formatted cells
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

func (p *baseProcessor) parseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	// Refund magnitudes may arrive parenthesised like quantities; the
	// amount itself is always a non-negative value.
	value = strings.TrimPrefix(value, "(")
	value = strings.TrimSuffix(value, ")")
	if p.profile.DecimalComma {
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, ",", ".")
	} else {
		value = strings.ReplaceAll(value, ",", "")
	}
	amount, err := utils.ParseDecimal(value)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Abs().Round(2), nil
}

func (p *baseProcessor) convertToBase(amount decimal.Decimal) (decimal.Decimal, error) {
	rate, ok := p.rates.Rate(p.profile.Currency)
	if !ok {
		return decimal.Zero, fmt.Errorf("no conversion rate for currency %s", p.profile.Currency)
	}
	return amount.Mul(rate).Round(2), nil
}

// parseQuantity handles plain integers, signed integers and, when the
// vendor wraps returns in parentheses, "(10)" -> -10.
func parseQuantity(value string, parenthesisReturns bool) (quantity int64, isReturn bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, fmt.Errorf("empty quantity")
	}
	negative := false
	if parenthesisReturns && strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		negative = true
		value = strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
	}
	dec, err := utils.ParseDecimal(value)
	if err != nil {
		return 0, false, err
	}
	if !dec.IsInteger() {
		return 0, false, fmt.Errorf("quantity %q is not a whole number", value)
	}
	quantity = dec.IntPart()
	if negative {
		quantity = -quantity
	}
	return quantity, quantity < 0, nil
}

func quarterOf(month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return (month-1)/3 + 1
}
