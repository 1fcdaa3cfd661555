package ingest

import (
	"sort"
	"strings"
)

// Canonical field names used by all vendor profiles.
const (
	FieldProductCode = "product_code"
	FieldStore       = "store"
	FieldStoreCode   = "store_code"
	FieldDate        = "date"
	FieldQuantity    = "quantity"
	FieldAmount      = "amount"
)

// VendorProfile is configuration data, not logic: header-row location,
// target sheets and column aliases live here so most new vendors can be
// onboarded without code changes. Behavioral quirks that genuinely need
// code are flagged and implemented as processor variants.
type VendorProfile struct {
	Vendor string

	// Priority breaks detection ties between vendors scoring identically
	// above threshold. Lower wins; ordered by onboarding date. Equal
	// priorities fall back to vendor name.
	Priority int

	FileNameKeywords  []string
	SheetNameKeywords []string
	HeaderKeywords    []string

	// TargetSheets empty means every sheet.
	TargetSheets []string
	// HeaderRow is the 1-based row holding column headers.
	HeaderRow int

	// ColumnAliases maps canonical fields to the header spellings the
	// vendor uses (any language, case-insensitive).
	ColumnAliases map[string][]string

	Currency    string
	DateFormats []string
	// DecimalComma: amounts use "1.234,56" notation.
	DecimalComma bool

	AllowNonNumericCodes bool

	// Quirk flags, one processor variant each.
	ParenthesisReturns bool
	SheetPerStore      bool
	StoreCodeColumn    bool
	AmountFromPrices   bool
	MonthlyAggregation bool
}

// HasAmountColumn reports whether the vendor file carries its own
// sales-amount column.
func (p VendorProfile) HasAmountColumn() bool {
	return !p.AmountFromPrices
}

// FieldForHeader resolves a raw header cell to a canonical field name, or
// "" when the column is not mapped.
func (p VendorProfile) FieldForHeader(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))
	if normalized == "" {
		return ""
	}
	for field, aliases := range p.ColumnAliases {
		for _, alias := range aliases {
			if normalized == strings.ToLower(alias) {
				return field
			}
		}
	}
	return ""
}

// vendorProfiles is the registry of supported vendors. Order of Priority:
// by onboarding date (mediamart first).
var vendorProfiles = map[string]VendorProfile{
	VendorMediamart: {
		Vendor:            VendorMediamart,
		Priority:          1,
		FileNameKeywords:  []string{"mediamart"},
		SheetNameKeywords: []string{"abverkauf"},
		HeaderKeywords:    []string{"artikelnummer", "filiale", "menge"},
		TargetSheets:      []string{"Abverkauf"},
		HeaderRow:         1,
		ColumnAliases: map[string][]string{
			FieldProductCode: {"Artikelnummer", "EAN", "Artikel-Nr."},
			FieldStore:       {"Filiale", "Markt"},
			FieldDate:        {"Datum", "Verkaufsdatum"},
			FieldQuantity:    {"Menge", "Stück"},
			FieldAmount:      {"Umsatz", "Umsatz EUR"},
		},
		Currency:     "EUR",
		DateFormats:  []string{"02.01.2006", "2006-01-02"},
		DecimalComma: true,
	},
	VendorTechhouse: {
		Vendor:            VendorTechhouse,
		Priority:          2,
		FileNameKeywords:  []string{"techhouse", "th_sales"},
		SheetNameKeywords: []string{"sell through", "sell-through"},
		HeaderKeywords:    []string{"sku", "branch", "units"},
		TargetSheets:      []string{"Sell Through"},
		HeaderRow:         2,
		ColumnAliases: map[string][]string{
			FieldProductCode: {"SKU", "Product Code", "Barcode"},
			FieldStore:       {"Branch", "Store"},
			FieldDate:        {"Week Ending", "Date"},
			FieldQuantity:    {"Units", "Qty"},
			FieldAmount:      {"Revenue", "Value GBP"},
		},
		Currency:           "GBP",
		DateFormats:        []string{"02/01/2006", "2006-01-02"},
		ParenthesisReturns: true,
	},
	VendorElektrosfera: {
		Vendor:            VendorElektrosfera,
		Priority:          3,
		FileNameKeywords:  []string{"elektrosfera", "raport"},
		SheetNameKeywords: []string{"sklep"},
		HeaderKeywords:    []string{"kod produktu", "ilość", "data"},
		HeaderRow:         1,
		ColumnAliases: map[string][]string{
			FieldProductCode: {"Kod produktu", "EAN"},
			FieldDate:        {"Data", "Data sprzedaży"},
			FieldQuantity:    {"Ilość", "Szt."},
			FieldAmount:      {"Wartość", "Wartość PLN"},
		},
		Currency:      "PLN",
		DateFormats:   []string{"2006-01-02", "02.01.2006"},
		DecimalComma:  true,
		SheetPerStore: true,
	},
	VendorCapegadgets: {
		Vendor:            VendorCapegadgets,
		Priority:          4,
		FileNameKeywords:  []string{"cape", "gadgets"},
		SheetNameKeywords: []string{"sales export"},
		HeaderKeywords:    []string{"outlet", "item code", "sold"},
		TargetSheets:      []string{"Sales Export"},
		HeaderRow:         1,
		ColumnAliases: map[string][]string{
			FieldStoreCode:   {"Outlet", "Outlet Code"},
			FieldProductCode: {"Item Code", "Item"},
			FieldDate:        {"Date", "Sale Date"},
			FieldQuantity:    {"Sold", "Qty Sold"},
		},
		Currency:             "ZAR",
		DateFormats:          []string{"2006/01/02", "2006-01-02"},
		AllowNonNumericCodes: true,
		StoreCodeColumn:      true,
		AmountFromPrices:     true,
	},
	VendorNordicline: {
		Vendor:            VendorNordicline,
		Priority:          5,
		FileNameKeywords:  []string{"nordicline", "daily"},
		SheetNameKeywords: []string{"daily sales"},
		HeaderKeywords:    []string{"ean", "store id", "net sales"},
		TargetSheets:      []string{"Daily Sales"},
		HeaderRow:         1,
		ColumnAliases: map[string][]string{
			FieldProductCode: {"EAN", "Product EAN"},
			FieldStore:       {"Store ID", "Store"},
			FieldDate:        {"Day", "Date"},
			FieldQuantity:    {"Quantity", "Pcs"},
			FieldAmount:      {"Net Sales", "Net Sales EUR"},
		},
		Currency:           "EUR",
		DateFormats:        []string{"2006-01-02", "02.01.2006"},
		MonthlyAggregation: true,
	},
}

// Supported vendor names.
const (
	VendorMediamart    = "mediamart"
	VendorTechhouse    = "techhouse"
	VendorElektrosfera = "elektrosfera"
	VendorCapegadgets  = "capegadgets"
	VendorNordicline   = "nordicline"
)

func GetVendorProfile(vendor string) (VendorProfile, bool) {
	p, ok := vendorProfiles[vendor]
	return p, ok
}

func SupportedVendors() []string {
	names := make([]string, 0, len(vendorProfiles))
	for name := range vendorProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
