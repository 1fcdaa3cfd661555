package ingest

import (
	"context"
	"reflect"
	"testing"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in       string
		parens   bool
		expected int64
		isReturn bool
		wantErr  bool
	}{
		{"10", false, 10, false, false},
		{"-4", false, -4, true, false},
		{"(10)", true, -10, true, false},
		{"(1)", true, -1, true, false},
		{"(10)", false, 0, false, true},
		{"3.5", false, 0, false, true},
		{"", false, 0, false, true},
		{"abc", true, 0, false, true},
	}
	for _, tc := range cases {
		quantity, isReturn, err := parseQuantity(tc.in, tc.parens)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseQuantity(%q, parens=%v) expected error", tc.in, tc.parens)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseQuantity(%q, parens=%v) error: %v", tc.in, tc.parens, err)
		}
		if quantity != tc.expected || isReturn != tc.isReturn {
			t.Fatalf("parseQuantity(%q, parens=%v) expected (%d, %v), got (%d, %v)", tc.in, tc.parens, tc.expected, tc.isReturn, quantity, isReturn)
		}
	}
}

func TestQuarterOf(t *testing.T) {
	cases := map[int]int{1: 1, 3: 1, 4: 2, 6: 2, 7: 3, 9: 3, 10: 4, 12: 4, 0: 0, 13: 0}
	for month, expected := range cases {
		if got := quarterOf(month); got != expected {
			t.Fatalf("quarterOf(%d) expected %d, got %d", month, expected, got)
		}
	}
}

func TestParseAmount_DecimalComma(t *testing.T) {
	p := &baseProcessor{profile: VendorProfile{DecimalComma: true}}
	cases := []struct {
		in       string
		expected string
	}{
		{"1.234,56", "1234.56"},
		{"99,90", "99.9"},
		{"(129,90)", "129.9"},
		{"1500", "1500"},
	}
	for _, tc := range cases {
		got, err := p.parseAmount(tc.in)
		if err != nil {
			t.Fatalf("parseAmount(%q) error: %v", tc.in, err)
		}
		if got.String() != tc.expected {
			t.Fatalf("parseAmount(%q) expected %s, got %s", tc.in, tc.expected, got.String())
		}
	}
}

func TestParseAmount_ThousandsSeparator(t *testing.T) {
	p := &baseProcessor{profile: VendorProfile{}}
	got, err := p.parseAmount("1,234.56")
	if err != nil {
		t.Fatalf("parseAmount error: %v", err)
	}
	if got.String() != "1234.56" {
		t.Fatalf("expected 1234.56, got %s", got.String())
	}
}

func TestMediamartExtractAndTransform(t *testing.T) {
	wb := buildWorkbook(t, []sheetData{{
		name: "Abverkauf",
		rows: [][]interface{}{
			{"Artikelnummer", "Filiale", "Datum", "Menge", "Umsatz"},
			{"4006381333931", "Berlin Mitte", "05.03.2024", "3", "1.234,56"},
			{"96385074", "Hamburg Altona", "06.03.2024", "1", "49,90"},
			{},
		},
	}})
	defer wb.Close()

	p := newMediamartProcessor("t1", 7, config.DefaultRateTable())
	rows, err := p.ExtractRows(wb)
	if err != nil {
		t.Fatalf("ExtractRows error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].RowNumber != 2 || rows[1].RowNumber != 3 {
		t.Fatalf("unexpected row numbers: %d, %d", rows[0].RowNumber, rows[1].RowNumber)
	}

	cand, rowErr := p.TransformRow(context.Background(), rows[0])
	if rowErr != nil {
		t.Fatalf("TransformRow error: %+v", rowErr)
	}
	if cand.ProductCode != "4006381333931" {
		t.Fatalf("unexpected product code %s", cand.ProductCode)
	}
	if cand.StoreIdentifier != "Berlin Mitte" {
		t.Fatalf("unexpected store %s", cand.StoreIdentifier)
	}
	if cand.SaleDate.Format("2006-01-02") != "2024-03-05" {
		t.Fatalf("unexpected sale date %s", cand.SaleDate)
	}
	if cand.Quantity != 3 || cand.IsReturn {
		t.Fatalf("unexpected quantity %d isReturn=%v", cand.Quantity, cand.IsReturn)
	}
	if cand.SalesAmount.String() != "1234.56" {
		t.Fatalf("unexpected amount %s", cand.SalesAmount.String())
	}
	// EUR is the base currency, 1:1.
	if cand.SalesAmountBase.String() != "1234.56" {
		t.Fatalf("unexpected base amount %s", cand.SalesAmountBase.String())
	}
	if cand.Year != 2024 || cand.Month != 3 || cand.Quarter != 1 {
		t.Fatalf("unexpected calendar %d-%d Q%d", cand.Year, cand.Month, cand.Quarter)
	}
}

func TestExtractRowsIsRestartable(t *testing.T) {
	wb := buildWorkbook(t, []sheetData{{
		name: "Abverkauf",
		rows: [][]interface{}{
			{"Artikelnummer", "Filiale", "Datum", "Menge", "Umsatz"},
			{"4006381333931", "Berlin Mitte", "05.03.2024", "3", "100,00"},
			{"96385074", "Hamburg Altona", "06.03.2024", "1", "49,90"},
		},
	}})
	defer wb.Close()

	p := newMediamartProcessor("t1", 7, config.DefaultRateTable())
	first, err := p.ExtractRows(wb)
	if err != nil {
		t.Fatalf("first ExtractRows error: %v", err)
	}
	second, err := p.ExtractRows(wb)
	if err != nil {
		t.Fatalf("second ExtractRows error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("extraction is not deterministic across runs")
	}
}

func TestExtractRows_MissingTargetSheet(t *testing.T) {
	wb := buildWorkbook(t, []sheetData{{
		name: "Wrong Sheet",
		rows: [][]interface{}{{"Artikelnummer", "Menge"}},
	}})
	defer wb.Close()

	p := newMediamartProcessor("t1", 7, config.DefaultRateTable())
	if _, err := p.ExtractRows(wb); err == nil {
		t.Fatal("expected error for missing target sheet")
	}
}

func TestExtractStores_DistinctFromRows(t *testing.T) {
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

	p := newMediamartProcessor("t1", 7, config.DefaultRateTable())
	stores, err := p.ExtractStores(wb)
	if err != nil {
		t.Fatalf("ExtractStores error: %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("expected 2 distinct stores, got %d", len(stores))
	}
	if stores[0].StoreIdentifier != "Berlin Mitte" || stores[1].StoreIdentifier != "Hamburg Altona" {
		t.Fatalf("unexpected stores: %+v", stores)
	}
}

func TestTransformRow_InvalidDateAndQuantity(t *testing.T) {
	p := newMediamartProcessor("t1", 7, config.DefaultRateTable())

	_, rowErr := p.TransformRow(context.Background(), RawRow{
		RowNumber: 4,
		Fields: map[string]string{
			FieldProductCode: "96385074",
			FieldStore:       "Berlin Mitte",
			FieldDate:        "not-a-date",
			FieldQuantity:    "1",
			FieldAmount:      "10,00",
		},
	})
	if rowErr == nil || rowErr.Kind != ErrKindTransform {
		t.Fatalf("expected transform error for bad date, got %+v", rowErr)
	}
	if rowErr.RowNumber != 4 {
		t.Fatalf("expected row number 4, got %d", rowErr.RowNumber)
	}

	_, rowErr = p.TransformRow(context.Background(), RawRow{
		RowNumber: 5,
		Fields: map[string]string{
			FieldProductCode: "96385074",
			FieldStore:       "Berlin Mitte",
			FieldDate:        "05.03.2024",
			FieldQuantity:    "x",
			FieldAmount:      "10,00",
		},
	})
	if rowErr == nil || rowErr.Kind != ErrKindTransform {
		t.Fatalf("expected transform error for bad quantity, got %+v", rowErr)
	}
}
